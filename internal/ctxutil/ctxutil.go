package ctxutil

import (
	"context"
	"time"
)

type key int

const (
	keyEventSlug key = iota
	keyPersonID
	keyOpName
	keyRequestID
)

func WithEventSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, keyEventSlug, slug)
}

func EventSlug(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyEventSlug).(string)
	return s, ok
}

func WithPersonID(ctx context.Context, personID int64) context.Context {
	return context.WithValue(ctx, keyPersonID, personID)
}

func PersonID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyPersonID).(int64)
	return id, ok
}

// WithOp names the running operation for logs and error reports.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyRequestID).(string)
	return s, ok
}

var DefaultDBTimeout = 5 * time.Second

// WithDBTimeout applies the standard DB timeout, shortened to the parent's remaining deadline.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
