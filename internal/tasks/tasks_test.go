package tasks

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

type fakeSource struct {
	handler func([]byte) error
}

func (s *fakeSource) Consume(h func([]byte) error) error {
	s.handler = h
	return nil
}

func TestInlineRunsHandler(t *testing.T) {
	reg := NewRegistry()
	var got int64
	reg.Register("programme.apply_state_async", func(_ context.Context, id int64) error {
		got = id
		return nil
	})

	if err := (Inline{Registry: reg}).Dispatch(context.Background(), "programme.apply_state_async", 42); err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("handler got %d, want 42", got)
	}

	err := (Inline{Registry: reg}).Dispatch(context.Background(), "nope", 1)
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("want ErrUnknownTask, got %v", err)
	}
}

func TestQueueRoundTrip(t *testing.T) {
	pub := &fakePublisher{}
	q := Queue{Publisher: pub, Log: zap.NewNop()}
	if err := q.Dispatch(context.Background(), "programme.apply_state_async", 7); err != nil {
		t.Fatal(err)
	}
	if len(pub.bodies) != 1 {
		t.Fatalf("published %d messages", len(pub.bodies))
	}

	reg := NewRegistry()
	var got int64
	reg.Register("programme.apply_state_async", func(_ context.Context, id int64) error {
		got = id
		return nil
	})
	src := &fakeSource{}
	c := NewConsumer(src, reg, zap.NewNop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if err := src.handler(pub.bodies[0]); err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Fatalf("consumer ran with %d, want 7", got)
	}

	if err := src.handler([]byte("{not json")); err != nil {
		t.Fatalf("malformed message should be acked, got %v", err)
	}
}

func TestQueuePublishError(t *testing.T) {
	q := Queue{Publisher: &fakePublisher{err: errors.New("broker down")}}
	if err := q.Dispatch(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecode(t *testing.T) {
	if _, err := Decode([]byte(`{"object_id": 1}`)); err == nil {
		t.Fatal("expected error for empty task name")
	}
	m, err := Decode([]byte(`{"id":"a","task":"t","object_id":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Task != "t" || m.ObjectID != 3 {
		t.Fatalf("decoded %+v", m)
	}
}
