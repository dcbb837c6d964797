package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestSubscribePriorityOrder(t *testing.T) {
	bus := New(2)
	var mu sync.Mutex
	var order []string

	bus.Subscribe(ResourceCreated, func(ctx context.Context, payload any) error {
		mu.Lock()
		order = append(order, "low")
		mu.Unlock()
		return nil
	}, 1, false)
	bus.Subscribe(ResourceCreated, func(ctx context.Context, payload any) error {
		mu.Lock()
		order = append(order, "high")
		mu.Unlock()
		return nil
	}, 10, false)

	bus.Emit(context.Background(), ResourceCreated, nil)

	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("Expected [high low], got %v", order)
	}
}

func TestHandlerFailureDoesNotBlockOthers(t *testing.T) {
	bus := New(2)
	ran := false

	bus.Subscribe(ResourceUpdated, func(ctx context.Context, payload any) error {
		return errors.New("boom")
	}, 10, false)
	bus.Subscribe(ResourceUpdated, func(ctx context.Context, payload any) error {
		ran = true
		return nil
	}, 1, false)

	bus.Emit(context.Background(), ResourceUpdated, nil)

	if !ran {
		t.Error("Expected second handler to run despite first handler's error")
	}
}

func TestAsyncHandlerRunsOnPool(t *testing.T) {
	bus := New(2)
	done := make(chan struct{})

	bus.Subscribe(ResourceReady, func(ctx context.Context, payload any) error {
		close(done)
		return nil
	}, 0, true)

	bus.Emit(context.Background(), ResourceReady, nil)
	bus.Wait()

	select {
	case <-done:
	default:
		t.Error("Expected async handler to have run after Wait")
	}
}

func TestEmitWithNoSubscribersIsNoop(t *testing.T) {
	bus := New(2)
	bus.Emit(context.Background(), TaxonomyNodeUpdated, "payload")
}
