// Package engine constructs and owns every long-lived component (C1-C7,
// C9-C11): the single value replacing the module-global mutable state the
// original implementation kept, per spec.md §9's redesign note.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/client"
	"github.com/arturoibarra/ovh-fleet/internal/config"
	"github.com/arturoibarra/ovh-fleet/internal/events"
	"github.com/arturoibarra/ovh-fleet/internal/metrics"
	"github.com/arturoibarra/ovh-fleet/internal/monitor"
	"github.com/arturoibarra/ovh-fleet/internal/notify"
	"github.com/arturoibarra/ovh-fleet/internal/scheduler"
	"github.com/arturoibarra/ovh-fleet/internal/store"
)

// Engine owns every component's lifetime and exposes just enough surface
// for cmd/api's HTTP wiring and cmd/ovhqueue's offline access.
type Engine struct {
	Config *config.Config
	Log    zerolog.Logger

	Accounts      *store.AccountStore
	Queue         *store.QueueStore
	History       *store.HistoryStore
	Subscriptions *store.SubscriptionStore

	Pool   *client.Pool
	Prober *client.Prober
	Orders *client.OrderDriver

	Notifier *notify.Notifier
	Metrics  *metrics.Registry
	Events   *events.Hub

	Scheduler *scheduler.Scheduler
	Monitor   *monitor.Monitor
}

// New assembles the engine from a loaded Config. No goroutines are started
// here; call Start to run the scheduler and monitor loops.
func New(cfg *config.Config, log zerolog.Logger, notifySink notify.Sink) (*Engine, error) {
	accounts, err := store.NewAccountStore(cfg.Paths.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}
	queue, err := store.NewQueueStore(cfg.Paths.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	history, err := store.NewHistoryStore(cfg.Paths.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	subscriptions, err := store.NewSubscriptionStore(cfg.Paths.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("open subscription store: %w", err)
	}

	reg := metrics.New()
	hub := events.NewHub()

	timeout := time.Duration(cfg.OVH.HTTPTimeoutSeconds) * time.Second
	pool := client.NewPool(timeout, log)
	prober := client.NewProber(pool)
	prober.OnCacheEvent(reg.ProbeCacheHitTotal.Inc, reg.ProbeCacheMissTotal.Inc)
	orders := client.NewOrderDriver(pool)

	notifier := notify.New(notifySink, log)

	accountCount, err := countAccounts(accounts)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	workers := cfg.Scheduler.Workers
	if workers <= 0 {
		workers = schedulerWorkerCount(accountCount)
	}

	sched := scheduler.New(
		queue, history, accounts, prober, orders, notifier, reg, hub, log,
		scheduler.Config{
			TickInterval: time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
			Workers:      workers,
		},
	)

	mon := monitor.New(
		subscriptions, accounts, prober, notifier, reg, hub, log,
		time.Duration(cfg.Monitor.TickSeconds)*time.Second,
	)

	return &Engine{
		Config:        cfg,
		Log:           log,
		Accounts:      accounts,
		Queue:         queue,
		History:       history,
		Subscriptions: subscriptions,
		Pool:          pool,
		Prober:        prober,
		Orders:        orders,
		Notifier:      notifier,
		Metrics:       reg,
		Events:        hub,
		Scheduler:     sched,
		Monitor:       mon,
	}, nil
}

// schedulerWorkerCount implements the min(32, 2*accounts) sizing rule from
// spec.md §5, with a floor of 2 so a fresh install with zero accounts still
// has a usable pool once the operator adds one.
func schedulerWorkerCount(accounts int) int {
	n := 2 * accounts
	if n < 2 {
		n = 2
	}
	if n > 32 {
		n = 32
	}
	return n
}

func countAccounts(accounts *store.AccountStore) (int, error) {
	list, err := accounts.List(context.Background())
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Start runs the scheduler and monitor loops. Safe to call once.
func (e *Engine) Start(ctx context.Context) {
	e.Scheduler.Start(ctx)
	e.Monitor.Start(ctx)
}

// Stop waits for both loops to exit cleanly.
func (e *Engine) Stop() {
	e.Scheduler.Stop()
	e.Monitor.Stop()
}
