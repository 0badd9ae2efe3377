package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psantana5/ggmltrace/pkg/logging"
)

func TestShutdownRunsInReverseOrder(t *testing.T) {
	m := New(time.Second, logging.NewLogger(logging.ERROR, false))

	var order []string
	m.Register(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.Register(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	m.Shutdown()

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("expected LIFO execution, got %v", order)
	}
}

func TestShutdownContinuesAfterError(t *testing.T) {
	m := New(time.Second, logging.NewLogger(logging.ERROR, false))

	ran := false
	m.Register(func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.Register(func(ctx context.Context) error {
		return errors.New("boom")
	})

	m.Shutdown()

	if !ran {
		t.Error("a failing shutdown function must not stop the remaining ones")
	}
}
