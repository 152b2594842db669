// gormtool\mylog.go
package gormtool

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/studieren/foodgram/logging"
)

// Logger 接口
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

// DefaultLogger 默认实现，写入全局 zerolog
type DefaultLogger struct {
	component string
}

func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{component: "gormtool"}
}

func (l *DefaultLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(logging.Ctx(ctx).Debug(), msg, fields)
}

func (l *DefaultLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(logging.Ctx(ctx).Info(), msg, fields)
}

func (l *DefaultLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(logging.Ctx(ctx).Warn(), msg, fields)
}

func (l *DefaultLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(logging.Ctx(ctx).Error(), msg, fields)
}

func (l *DefaultLogger) log(ev *zerolog.Event, msg string, fields map[string]interface{}) {
	ev.Str("component", l.component).Fields(fields).Msg(msg)
}
