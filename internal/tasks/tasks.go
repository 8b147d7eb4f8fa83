// Package tasks dispatches fire-and-forget background work identified by a task name and
// the primary key of the object it concerns.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/metrics"
)

var ErrUnknownTask = errors.New("unknown task")

type Handler func(ctx context.Context, objectID int64) error

// Message is the wire form of a queued task.
type Message struct {
	ID       string `json:"id"`
	Task     string `json:"task"`
	ObjectID int64  `json:"object_id"`
}

func Encode(task string, objectID int64) ([]byte, error) {
	return json.Marshal(Message{ID: uuid.NewString(), Task: task, ObjectID: objectID})
}

func Decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("decode task: %w", err)
	}
	if m.Task == "" {
		return Message{}, fmt.Errorf("decode task: empty task name")
	}
	return m, nil
}

type Dispatcher interface {
	Dispatch(ctx context.Context, task string, objectID int64) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(task string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[task] = h
}

func (r *Registry) Run(ctx context.Context, task string, objectID int64) error {
	r.mu.RLock()
	h, ok := r.handlers[task]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}
	return h(ctx, objectID)
}

// Inline runs tasks synchronously in the caller's goroutine. Used when no queue is configured.
type Inline struct {
	Registry *Registry
}

func (d Inline) Dispatch(ctx context.Context, task string, objectID int64) error {
	metrics.TasksDispatched.WithLabelValues(task, "inline").Inc()
	return d.Registry.Run(ctx, task, objectID)
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Queue hands tasks to a broker; a Consumer on the other side runs them.
type Queue struct {
	Publisher Publisher
	Log       *zap.Logger
}

func (q Queue) Dispatch(ctx context.Context, task string, objectID int64) error {
	body, err := Encode(task, objectID)
	if err != nil {
		return err
	}
	if err := q.Publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("publish %s(%d): %w", task, objectID, err)
	}
	metrics.TasksDispatched.WithLabelValues(task, "queue").Inc()
	if q.Log != nil {
		q.Log.Debug("task queued", zap.String("task", task), zap.Int64("object_id", objectID))
	}
	return nil
}
