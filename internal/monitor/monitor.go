// Package monitor implements the Availability Monitor (C6): an independent
// polling loop over Subscriptions that publishes stock-change notifications.
// It never places orders; auto-ordering is left to a parallel QueueTask in
// the scheduler. Ported from the prior Python ServerMonitor's tick
// semantics (first-seen notification rules, 100-entry ring buffer).
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/client"
	"github.com/arturoibarra/ovh-fleet/internal/events"
	"github.com/arturoibarra/ovh-fleet/internal/metrics"
	"github.com/arturoibarra/ovh-fleet/internal/models"
	"github.com/arturoibarra/ovh-fleet/internal/notify"
	"github.com/arturoibarra/ovh-fleet/internal/store"
)

// AccountResolver resolves a subscription's accountId (or the default
// account) to full credentials for the probe.
type AccountResolver interface {
	Get(ctx context.Context, id string) (models.Account, error)
	DefaultAccount(ctx context.Context) (models.Account, error)
}

// Monitor runs the availability-watch loop. Start/Stop are idempotent.
type Monitor struct {
	subs     *store.SubscriptionStore
	accounts AccountResolver
	prober   *client.Prober
	notifier *notify.Notifier
	metrics  *metrics.Registry
	hub      *events.Hub
	log      zerolog.Logger

	mu           sync.Mutex
	running      bool
	checkInterval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(
	subs *store.SubscriptionStore,
	accounts AccountResolver,
	prober *client.Prober,
	notifier *notify.Notifier,
	reg *metrics.Registry,
	hub *events.Hub,
	log zerolog.Logger,
	checkInterval time.Duration,
) *Monitor {
	if checkInterval < time.Duration(models.MinMonitorInterval)*time.Second {
		checkInterval = time.Duration(models.MinMonitorInterval) * time.Second
	}
	return &Monitor{
		subs:          subs,
		accounts:      accounts,
		prober:        prober,
		notifier:      notifier,
		metrics:       reg,
		hub:           hub,
		log:           log.With().Str("component", "monitor").Logger(),
		checkInterval: checkInterval,
	}
}

// SetCheckInterval changes the tick cadence, floored at MinMonitorInterval.
func (m *Monitor) SetCheckInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < time.Duration(models.MinMonitorInterval)*time.Second {
		d = time.Duration(models.MinMonitorInterval) * time.Second
	}
	m.checkInterval = d
}

// Start is a no-op if the monitor is already running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.loop(ctx)
}

// Stop is a no-op if the monitor is not running. Waits up to 3s for the
// loop to exit, matching the prior implementation's join timeout.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(3 * time.Second):
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Status mirrors the prior implementation's get_status().
type Status struct {
	Running           bool
	SubscriptionCount int
	CheckIntervalSecs int
}

func (m *Monitor) Status(ctx context.Context) Status {
	m.mu.Lock()
	running := m.running
	interval := m.checkInterval
	m.mu.Unlock()

	count := 0
	if subs, err := m.subs.List(ctx); err == nil {
		count = len(subs)
	}
	m.metrics.MonitorSubscriptionsActive.Set(float64(count))

	return Status{Running: running, SubscriptionCount: count, CheckIntervalSecs: int(interval.Seconds())}
}

// loop polls on a 1-second grain so Stop reacts quickly, but only performs
// a full subscription sweep once per checkInterval.
func (m *Monitor) loop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastSweep time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			interval := m.checkInterval
			m.mu.Unlock()

			if time.Since(lastSweep) < interval {
				continue
			}
			lastSweep = time.Now()
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	subs, err := m.subs.List(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to list subscriptions")
		return
	}
	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error().Interface("panic", r).Str("subscription", sub.ID).Msg("recovered from panic in subscription check")
				}
			}()
			m.checkSubscription(ctx, sub)
		}()
	}
}

func (m *Monitor) checkSubscription(ctx context.Context, sub models.Subscription) {
	account, err := m.resolveAccount(ctx, sub)
	if err != nil {
		m.log.Error().Err(err).Str("subscription", sub.ID).Msg("failed to resolve account")
		return
	}

	datacenters := sub.Datacenters
	states, err := m.prober.Probe(ctx, account, sub.PlanCode, sub.Options, datacenters)
	if err != nil {
		m.log.Error().Err(err).Str("subscription", sub.ID).Msg("probe failed")
		return
	}

	err = m.subs.WithSubscription(ctx, sub.ID, func(current models.Subscription) (models.Subscription, error) {
		if current.LastStatus == nil {
			current.LastStatus = make(map[string]models.DatacenterStatus)
		}
		now := time.Now()
		for dc, state := range states {
			available := state == models.AvailabilityAvailable
			prior, seen := current.LastStatus[dc]

			if !seen {
				// First observation: record it exactly like a transition, with
				// an empty/unknown OldStatus (no prior reading exists yet).
				changeType := models.ChangeTypeUnavailable
				notify := current.NotifyUnavailable
				if available {
					changeType = models.ChangeTypeAvailable
					notify = current.NotifyAvailable
				}
				current.History = appendHistory(current.History, models.SubscriptionHistoryEntry{
					Timestamp:  now,
					Datacenter: dc,
					ChangeType: changeType,
					OldStatus:  "",
				})
				if notify {
					m.notifyTransition(current, dc, changeType, "")
				}
			} else if prior.Available != available {
				oldStatus := models.ChangeTypeUnavailable
				if prior.Available {
					oldStatus = models.ChangeTypeAvailable
				}
				changeType := models.ChangeTypeUnavailable
				notify := current.NotifyUnavailable
				if available {
					changeType = models.ChangeTypeAvailable
					notify = current.NotifyAvailable
				}
				current.History = appendHistory(current.History, models.SubscriptionHistoryEntry{
					Timestamp:  now,
					Datacenter: dc,
					ChangeType: changeType,
					OldStatus:  oldStatus,
				})
				if notify {
					m.notifyTransition(current, dc, changeType, oldStatus)
				}
			}

			current.LastStatus[dc] = models.DatacenterStatus{Available: available, LastSeenAt: now}
		}
		return current, nil
	})
	if err != nil {
		m.log.Error().Err(err).Str("subscription", sub.ID).Msg("failed to persist subscription state")
	}
}

func (m *Monitor) notifyTransition(sub models.Subscription, dc, changeType, oldStatus string) {
	m.metrics.MonitorNotificationsSentTotal.Inc()
	verb := "unavailable"
	if changeType == models.ChangeTypeAvailable {
		verb = "available"
	}
	m.notifier.Notify("plan " + sub.PlanCode + " is now " + verb + " in " + dc)
	if m.hub != nil {
		m.hub.Publish("subscription.transition", map[string]any{
			"subscriptionId": sub.ID, "planCode": sub.PlanCode,
			"datacenter": dc, "changeType": changeType, "oldStatus": oldStatus,
		})
	}
}

func appendHistory(history []models.SubscriptionHistoryEntry, entry models.SubscriptionHistoryEntry) []models.SubscriptionHistoryEntry {
	history = append(history, entry)
	if over := len(history) - models.MaxSubscriptionHistory; over > 0 {
		history = history[over:]
	}
	return history
}

func (m *Monitor) resolveAccount(ctx context.Context, sub models.Subscription) (models.Account, error) {
	if sub.AccountID != "" {
		return m.accounts.Get(ctx, sub.AccountID)
	}
	return m.accounts.DefaultAccount(ctx)
}
