package gormtool

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)
)

func observeOperation(operation string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	operationDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// RegisterDBStats 把连接池统计暴露给 Prometheus
func (t *CRUDTool) RegisterDBStats(reg prometheus.Registerer, dbName string) error {
	sqlDB, err := t.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, dbName))
}

// Health 数据库与缓存的连通性
type Health struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (h Health) OK() bool { return h.Database == "ok" && h.Cache == "ok" }

func (t *CRUDTool) Health(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	h := Health{Database: "ok", Cache: "ok"}
	if sqlDB, err := t.DB.DB(); err != nil {
		h.Database = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		h.Database = err.Error()
	}
	if err := t.Cache.Ping(ctx); err != nil {
		h.Cache = err.Error()
	}
	return h
}
