package tasks

import (
	"context"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/observability"
)

type Source interface {
	Consume(handler func([]byte) error) error
}

// Consumer runs queued tasks through the registry.
type Consumer struct {
	src      Source
	registry *Registry
	log      *zap.Logger
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewConsumer(src Source, registry *Registry, log *zap.Logger) *Consumer {
	return &Consumer{src: src, registry: registry, log: log, done: make(chan struct{})}
}

func (c *Consumer) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.src.Consume(func(body []byte) error { return c.handle(cctx, body) }); err != nil {
		cancel()
		close(c.done)
		return err
	}

	go func() {
		defer close(c.done)
		<-cctx.Done()
		c.log.Info("task consumer stopped")
	}()
	return nil
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	msg, err := Decode(body)
	if err != nil {
		c.log.Error("bad task message", zap.Error(err), zap.ByteString("body", body))
		// Malformed messages will never succeed; ack them away.
		return nil
	}
	ctx = ctxutil.WithOp(ctx, msg.Task)
	if err := c.registry.Run(ctx, msg.Task, msg.ObjectID); err != nil {
		observability.CaptureCtxErr(ctx, err)
		return err
	}
	c.log.Debug("task done", zap.String("task", msg.Task), zap.Int64("object_id", msg.ObjectID), zap.String("id", msg.ID))
	return nil
}

func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}
