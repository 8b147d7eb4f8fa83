package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/observability"
)

type Job func(ctx context.Context) error

// Runner runs named jobs on fixed intervals until its context is cancelled.
type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Wait blocks until every job loop has returned.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(name string, fn Job) {
	ctx := ctxutil.WithOp(r.ctx, "job."+name)
	start := time.Now()
	err := safeRun(ctx, fn)
	observe(name, start, err)
	if err != nil {
		r.log.Error("job failed", zap.String("job", name), zap.Error(err))
		observability.CaptureCtxErr(ctx, err)
	}
}

func safeRun(ctx context.Context, fn Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in job: %v", rec)
		}
	}()
	return fn(ctx)
}
