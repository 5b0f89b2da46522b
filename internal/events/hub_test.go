package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubPublishDeliversToRegisteredClient(t *testing.T) {
	hub := NewHub()
	ch, unregister := hub.Register()
	defer unregister()

	hub.Publish("order.placed", map[string]string{"taskId": "task-1"})

	select {
	case raw := <-ch:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		if evt.Type != "order.placed" {
			t.Errorf("expected type order.placed, got %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestHubPublishWithNoClientsDoesNotBlock(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Publish("order.placed", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no registered clients")
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, unregister := hub.Register()
	unregister()

	hub.Publish("order.placed", nil)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unregister")
	}
}

func TestHubDropsOldestOnFullBuffer(t *testing.T) {
	hub := NewHub()
	ch, unregister := hub.Register()
	defer unregister()

	for i := 0; i < clientBufferSize+5; i++ {
		hub.Publish("tick", i)
	}

	count := 0
	var first []byte
drain:
	for {
		select {
		case raw := <-ch:
			if first == nil {
				first = raw
			}
			count++
		default:
			break drain
		}
	}
	if count > clientBufferSize {
		t.Fatalf("expected buffered messages to be capped at %d, got %d", clientBufferSize, count)
	}
	var evt Event
	if err := json.Unmarshal(first, &evt); err != nil {
		t.Fatalf("failed to decode oldest remaining event: %v", err)
	}
	if evt.Payload != float64(5) {
		t.Fatalf("expected the 5 oldest events dropped (oldest remaining payload 5), got %v", evt.Payload)
	}
}
