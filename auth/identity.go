package auth

import "context"

// Identity 请求调用者；UserID 为 0 表示匿名
type Identity struct {
	UserID uint
}

func (i Identity) Anonymous() bool { return i.UserID == 0 }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
