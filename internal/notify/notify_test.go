package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSink) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func waitForCount(t *testing.T, sink *recordingSink, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(sink.snapshot()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent messages, got %d", want, len(sink.snapshot()))
}

func TestNotifierDeliversDistinctMessages(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink, zerolog.Nop())

	n.Notify("message one")
	n.Notify("message two")

	waitForCount(t, sink, 2)
}

func TestNotifierDedupesIdenticalMessageWithinWindow(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink, zerolog.Nop())

	n.Notify("repeated")
	n.Notify("repeated")
	n.Notify("repeated")

	time.Sleep(50 * time.Millisecond)
	if got := len(sink.snapshot()); got != 1 {
		t.Fatalf("expected exactly one delivery for a deduped message, got %d", got)
	}
}

func TestNotifierNilSinkIsNoop(t *testing.T) {
	n := New(nil, zerolog.Nop())
	n.Notify("ignored") // must not panic
}

func TestNotifierDropsBeyondRateLimit(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink, zerolog.Nop())

	// Burst capacity is outboundBurst; fire distinct messages well past it
	// and confirm the notifier does not deliver every single one instantly.
	for i := 0; i < outboundBurst+10; i++ {
		n.Notify(fmt.Sprintf("message-%d", i))
	}

	time.Sleep(20 * time.Millisecond)
	if got := len(sink.snapshot()); got > outboundBurst {
		t.Fatalf("expected rate limiter to cap initial burst at %d, got %d delivered", outboundBurst, got)
	}
}
