// Package notify implements the Notifier (C7): a fire-and-forget sink for
// human-readable events, deduplicated over a short window so a flapping
// availability signal doesn't spam the channel.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const dedupWindow = 10 * time.Second

// outboundRateLimit caps deliveries to stay well under Telegram's per-chat
// flood limits (roughly 1 msg/sec sustained) regardless of how many
// subscriptions or tasks fire notifications in the same tick.
const outboundRateLimit = rate.Limit(1)
const outboundBurst = 5

// Sink is anything that can deliver a plain-text notification. The Telegram
// bot lives outside this module's scope; Sink lets the engine wire it in
// (or, in tests, a recording fake) without this package knowing about HTTP.
type Sink interface {
	Send(text string) error
}

// Notifier deduplicates identical messages within dedupWindow and never
// blocks its caller: Notify spawns the send on its own goroutine and
// swallows delivery errors into a log line, matching the "fire-and-forget"
// contract in the spec's notifier section.
type Notifier struct {
	sink    Sink
	log     zerolog.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	last map[string]time.Time
}

func New(sink Sink, log zerolog.Logger) *Notifier {
	return &Notifier{
		sink:    sink,
		log:     log.With().Str("component", "notifier").Logger(),
		limiter: rate.NewLimiter(outboundRateLimit, outboundBurst),
		last:    make(map[string]time.Time),
	}
}

// Notify delivers text unless an identical message was sent within the last
// dedupWindow, or the outbound rate limit is currently exhausted. Returns
// immediately; delivery happens asynchronously.
func (n *Notifier) Notify(text string) {
	if n.sink == nil {
		return
	}
	if n.recentlySent(text) {
		return
	}
	if !n.limiter.Allow() {
		n.log.Warn().Str("text", text).Msg("notification dropped, outbound rate limit exhausted")
		return
	}
	go func() {
		if err := n.sink.Send(text); err != nil {
			n.log.Warn().Err(err).Msg("notification delivery failed")
		}
	}()
}

func (n *Notifier) recentlySent(text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	if sentAt, ok := n.last[text]; ok && now.Sub(sentAt) < dedupWindow {
		return true
	}
	n.last[text] = now
	n.pruneLocked(now)
	return false
}

func (n *Notifier) pruneLocked(now time.Time) {
	for text, sentAt := range n.last {
		if now.Sub(sentAt) > dedupWindow {
			delete(n.last, text)
		}
	}
}
