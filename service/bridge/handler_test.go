package bridge

import (
	"context"
	"errors"
	"testing"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg Message) error {
				trace = append(trace, name)
				return next(ctx, msg)
			}
		}
	}
	h := Chain(func(context.Context, Message) error {
		trace = append(trace, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	if err := h(context.Background(), Message{Subject: "events.user.user-status"}); err != nil {
		t.Fatalf("chain: %v", err)
	}
	want := []string{"outer", "inner", "handler"}
	if len(trace) != len(want) {
		t.Fatalf("trace %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace %v, want %v", trace, want)
		}
	}
}

func TestRecoverySwallowsPanic(t *testing.T) {
	h := Chain(func(context.Context, Message) error {
		panic("boom")
	}, Recovery())

	if err := h(context.Background(), Message{Subject: "events.dms.message-sent"}); err != nil {
		t.Fatalf("recovered handler must not return the panic: %v", err)
	}
}

func TestChainPropagatesError(t *testing.T) {
	sentinel := errors.New("downstream")
	h := Chain(func(context.Context, Message) error {
		return sentinel
	}, DebugLog())
	if err := h(context.Background(), Message{}); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}
