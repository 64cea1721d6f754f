package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherIsolatesHandlerFailures(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "failing")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "panicking")
		panic("unexpected")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "ok:"+e.Payload.(TicketCreatedPayload).Code)
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 1, Payload: TicketCreatedPayload{Code: "REP-1"}})
	if err != nil {
		t.Fatalf("publish must not surface handler errors: %v", err)
	}
	want := []string{"failing", "panicking", "ok:REP-1"}
	if len(calls) != len(want) {
		t.Fatalf("want %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("want %v, got %v", want, calls)
		}
	}
}

func TestDispatcherWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	if err := d.Publish(context.Background(), Event{Type: EventTicketStatusChanged}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
