package eventbus

import (
	"context"
	"errors"
	"testing"
)

func TestBusPublishBroadcast(t *testing.T) {
	bus := NewContributeEventBus()
	calledA := false
	calledB := false

	bus.Subscribe(ContributeEventMerged, func(ctx context.Context, event ContributeEvent) error {
		calledA = true
		return nil
	})
	bus.Subscribe(ContributeEventMerged, func(ctx context.Context, event ContributeEvent) error {
		calledB = true
		return nil
	})

	event := ContributeEvent{Type: ContributeEventMerged, ContributeID: 1}
	if err := bus.Publish(context.Background(), ContributeEventMerged, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !calledA || !calledB {
		t.Fatalf("expected handlers to be called")
	}
}

func TestBusPublishTypeIsolation(t *testing.T) {
	bus := NewContributeEventBus()
	called := false

	bus.Subscribe(ContributeEventRejected, func(ctx context.Context, event ContributeEvent) error {
		called = true
		return nil
	})

	event := ContributeEvent{Type: ContributeEventMerged, ContributeID: 1}
	if err := bus.Publish(context.Background(), ContributeEventMerged, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected handler of another type not to be called")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewContributeEventBus()
	called := false
	unsubscribe := bus.Subscribe(ContributeEventMerged, func(ctx context.Context, event ContributeEvent) error {
		called = true
		return nil
	})
	unsubscribe()

	event := ContributeEvent{Type: ContributeEventMerged, ContributeID: 1}
	if err := bus.Publish(context.Background(), ContributeEventMerged, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected handler to be unsubscribed")
	}
}

func TestBusPublishJoinErrors(t *testing.T) {
	bus := NewContributeEventBus()
	bus.Subscribe(ContributeEventMerged, func(ctx context.Context, event ContributeEvent) error {
		return errors.New("err-a")
	})
	bus.Subscribe(ContributeEventMerged, func(ctx context.Context, event ContributeEvent) error {
		return errors.New("err-b")
	})

	event := ContributeEvent{Type: ContributeEventMerged}
	if err := bus.Publish(context.Background(), ContributeEventMerged, event); err == nil {
		t.Fatalf("expected error")
	}
}
