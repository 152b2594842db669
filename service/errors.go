package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	// KindNotLinked 取消一个不存在的收藏/购物车/关注关系
	KindNotLinked
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNotLinked:
		return "not_linked"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error 业务错误；Fields 仅用于校验失败时的字段说明
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "authentication credentials were not provided"}

func forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func notFound(entity string, id interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

func notLinked(msg string) error { return &Error{Kind: KindNotLinked, Message: msg} }

func invalid(field, reason string) error {
	return &Error{Kind: KindValidation, Message: field + ": " + reason, Fields: map[string]string{field: reason}}
}
