package eventbus

import (
	"testing"
	"time"

	"pkt.systems/quicktext/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: 7}})

	select {
	case got := <-ch:
		if got.Type != schema.TabEventCreated || got.Tab.ID != 7 {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestSubscribeFiltersTypes(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(schema.TabEventFilesystemError)
	defer cancel()

	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventFilesystemError, Err: "boom"})

	select {
	case got := <-ch:
		if got.Type != schema.TabEventFilesystemError || got.Err != "boom" {
			t.Fatalf("expected filtered filesystem error, got %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected extra event %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
		bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventClosed})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full subscriber")
	}
	if got := <-ch; got.Type != schema.TabEventCreated {
		t.Fatalf("expected first event to be kept, got %+v", got)
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe()
	cancel()
	if ch != nil {
		t.Fatalf("expected nil channel from nil bus")
	}
	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
}
