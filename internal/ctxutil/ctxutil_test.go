package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestValues(t *testing.T) {
	ctx := WithOp(WithEventSlug(WithPersonID(context.Background(), 7), "tracon2024"), "programme.apply_state")

	if slug, ok := EventSlug(ctx); !ok || slug != "tracon2024" {
		t.Fatalf("EventSlug = %q, %v", slug, ok)
	}
	if id, ok := PersonID(ctx); !ok || id != 7 {
		t.Fatalf("PersonID = %d, %v", id, ok)
	}
	if op, ok := Op(ctx); !ok || op != "programme.apply_state" {
		t.Fatalf("Op = %q, %v", op, ok)
	}
	if _, ok := RequestID(ctx); ok {
		t.Fatal("RequestID should be unset")
	}
}

func TestWithDBTimeout(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()
	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("no deadline")
	}
	if time.Until(dl) > time.Second {
		t.Fatalf("deadline should not exceed parent's: %v", time.Until(dl))
	}
}
