package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kompassi/kompassi/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureCtxErr tags the event with the operation and event slug found in ctx.
func CaptureCtxErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if op, ok := ctxutil.Op(ctx); ok {
			scope.SetTag("op", op)
		}
		if slug, ok := ctxutil.EventSlug(ctx); ok {
			scope.SetTag("event", slug)
		}
		sentry.CaptureException(err)
	})
}
