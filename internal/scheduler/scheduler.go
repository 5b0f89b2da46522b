// Package scheduler implements the Queue Scheduler (C5), the engine's
// central component: a tick dispatcher that wakes every second, finds due
// tasks, and runs their order-attempt sequence on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/client"
	"github.com/arturoibarra/ovh-fleet/internal/events"
	"github.com/arturoibarra/ovh-fleet/internal/metrics"
	"github.com/arturoibarra/ovh-fleet/internal/models"
	"github.com/arturoibarra/ovh-fleet/internal/notify"
	"github.com/arturoibarra/ovh-fleet/internal/store"
)

// Dependencies the scheduler needs to resolve an account id to credentials;
// kept as a narrow interface so tests can supply a fake.
type AccountResolver interface {
	Get(ctx context.Context, id string) (models.Account, error)
}

// Scheduler owns QueueTask lifecycle. It is safe to call Start/Stop once;
// it is not restartable after Stop.
type Scheduler struct {
	queue    *store.QueueStore
	history  *store.HistoryStore
	accounts AccountResolver
	prober   *client.Prober
	orders   *client.OrderDriver
	notifier *notify.Notifier
	metrics  *metrics.Registry
	hub      *events.Hub
	log      zerolog.Logger

	tickInterval time.Duration
	workers      int

	taskLocks sync.Map // taskID -> *sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
}

type Config struct {
	TickInterval time.Duration
	Workers      int
}

func New(
	queue *store.QueueStore,
	history *store.HistoryStore,
	accounts AccountResolver,
	prober *client.Prober,
	orders *client.OrderDriver,
	notifier *notify.Notifier,
	reg *metrics.Registry,
	hub *events.Hub,
	log zerolog.Logger,
	cfg Config,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Scheduler{
		queue:        queue,
		history:      history,
		accounts:     accounts,
		prober:       prober,
		orders:       orders,
		notifier:     notifier,
		metrics:      reg,
		hub:          hub,
		log:          log.With().Str("component", "scheduler").Logger(),
		tickInterval: cfg.TickInterval,
		workers:      cfg.Workers,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start runs the dispatch loop in its own goroutine and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.dispatchLoop(ctx)
}

// Stop signals the dispatch loop to exit and waits for it.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, s.workers)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.dispatchDue(ctx, sem)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context, sem chan struct{}) {
	tasks, err := s.queue.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list queue for tick")
		return
	}

	now := time.Now()
	due := make([]models.QueueTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Due(now) {
			due = append(due, t)
		}
	}

	// Stable by createdAt ascending: older tasks get first claim on the pool.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	for _, task := range due {
		task := task
		select {
		case sem <- struct{}{}:
		default:
			// Pool saturated this tick; the task remains due and will be
			// picked up again next tick.
			continue
		}
		go func() {
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Str("task", task.ID).Msg("recovered from panic in task attempt")
				}
			}()
			s.attempt(ctx, task.ID)
		}()
	}
}

func (s *Scheduler) lockFor(taskID string) *sync.Mutex {
	v, _ := s.taskLocks.LoadOrStore(taskID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// attempt runs one tick's worth of work for taskID: the full algorithm in
// spec.md §4.5, steps 1-9.
func (s *Scheduler) attempt(ctx context.Context, taskID string) {
	lock := s.lockFor(taskID)
	if !lock.TryLock() {
		return
	}
	defer lock.Unlock()

	task, err := s.queue.Get(ctx, taskID)
	if err != nil {
		return
	}
	if task.Terminal() || task.Status == models.TaskStatusPaused {
		return
	}

	s.metrics.QueueTaskQuantity.WithLabelValues(task.ID).Set(float64(task.Quantity))

	if task.Quantity <= task.Purchased {
		s.completeTask(ctx, task)
		return
	}

	account, err := s.accounts.Get(ctx, task.AccountID)
	if err != nil {
		s.failTask(ctx, task, "account removed")
		return
	}

	dc, err := s.findAvailableDatacenter(ctx, account, task)
	if err != nil {
		s.log.Error().Err(err).Str("task", taskID).Msg("probe failed")
		s.markTransientFailure(ctx, task)
		return
	}

	if dc == "" {
		s.markUnavailable(ctx, task, 0)
		return
	}

	s.metrics.QueueTicksTotal.WithLabelValues("available").Inc()
	result, err := s.orders.PlaceOrder(ctx, account, task.PlanCode, dc, task.Options, task.AutoPay)
	s.handleOrderOutcome(ctx, task, dc, result, err)
}

func (s *Scheduler) findAvailableDatacenter(ctx context.Context, account models.Account, task models.QueueTask) (string, error) {
	states, err := s.prober.Probe(ctx, account, task.PlanCode, task.Options, task.Datacenters)
	if err != nil {
		return "", err
	}
	// Priority order: task.Datacenters is already the caller's preference
	// order, so the first available one wins.
	for _, dc := range task.Datacenters {
		if states[dc] == models.AvailabilityAvailable {
			return dc, nil
		}
	}
	return "", nil
}

// handleOrderOutcome classifies a PlaceOrder result. Errors from cart steps
// other than addItem reach here wrapped (fmt.Errorf("...: %w", err)), so
// every typed case is matched with errors.As rather than a raw type switch.
func (s *Scheduler) handleOrderOutcome(ctx context.Context, task models.QueueTask, dc string, result *client.OrderResult, err error) {
	if err == nil {
		s.recordSuccess(ctx, task, dc, result, "")
		return
	}

	var notAvailable *client.NotAvailableError
	var paymentFailed *client.PaymentFailedError
	var authErr *client.AuthError
	var notFoundErr *client.NotFoundError
	var rateLimitErr *client.RateLimitError

	switch {
	case errors.As(err, &notAvailable):
		s.metrics.QueueTicksTotal.WithLabelValues("unavailable").Inc()
		s.markUnavailable(ctx, task, 1)
	case errors.As(err, &paymentFailed):
		// Acquisition succeeded; payment note only.
		s.recordSuccess(ctx, task, dc, result, paymentFailed.Error())
	case errors.As(err, &authErr):
		s.metrics.QueueTicksTotal.WithLabelValues("fatal_error").Inc()
		s.failTask(ctx, task, authErr.Error())
	case errors.As(err, &notFoundErr):
		s.metrics.QueueTicksTotal.WithLabelValues("fatal_error").Inc()
		s.failTask(ctx, task, notFoundErr.Error())
	case errors.As(err, &rateLimitErr):
		s.metrics.QueueTicksTotal.WithLabelValues("rate_limited").Inc()
		s.markRateLimited(ctx, task)
	default:
		s.metrics.QueueTicksTotal.WithLabelValues("transient_error").Inc()
		s.markTransientFailure(ctx, task)
	}
}

func (s *Scheduler) recordSuccess(ctx context.Context, task models.QueueTask, dc string, result *client.OrderResult, note string) {
	sequence := task.Purchased + 1

	entry := models.PurchaseHistoryEntry{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		AccountID:    task.AccountID,
		PlanCode:     task.PlanCode,
		Datacenter:   dc,
		Options:      task.Options,
		Status:       models.HistoryStatusSuccess,
		Sequence:     sequence,
		PurchaseTime: time.Now(),
	}
	if result != nil {
		entry.OrderID = result.OrderID
		entry.OrderURL = result.URL
		entry.Price = result.Price
	}
	if note != "" {
		entry.ErrorMessage = note
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to append history")
	}

	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		t.Purchased++
		t.BackoffSeconds = 0
		t.UpdatedAt = time.Now()
		if note != "" {
			t.ErrorMessage = note
		}
		if t.Purchased >= t.Quantity {
			t.Status = models.TaskStatusCompleted
		} else {
			t.NextAttemptAt = time.Now().Add(time.Duration(t.RetryInterval) * time.Second).Unix()
		}
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist purchase outcome")
		return
	}

	s.metrics.QueueTicksTotal.WithLabelValues("ordered").Inc()
	s.metrics.QueueTaskPurchased.WithLabelValues(task.ID).Set(float64(sequence))
	s.notifier.Notify(fmt.Sprintf("purchased %s in %s (unit %d/%d)", task.PlanCode, dc, sequence, task.Quantity))
	if s.hub != nil {
		s.hub.Publish("order.placed", map[string]any{
			"taskId": task.ID, "planCode": task.PlanCode, "datacenter": dc,
			"sequence": sequence, "quantity": task.Quantity,
		})
	}
}

func (s *Scheduler) markUnavailable(ctx context.Context, task models.QueueTask, failureDelta int) {
	if failureDelta == 0 {
		s.metrics.QueueTicksTotal.WithLabelValues("unavailable").Inc()
	}
	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		t.RetryCount++
		t.FailureCount += failureDelta
		t.BackoffSeconds = 0
		t.NextAttemptAt = time.Now().Add(time.Duration(t.RetryInterval) * time.Second).Unix()
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist unavailable outcome")
	}
}

// markRateLimited applies the 429 backoff rule: the next attempt waits
// max(retryInterval, 2*previous backoff), capped at MaxRetryBackoff seconds.
func (s *Scheduler) markRateLimited(ctx context.Context, task models.QueueTask) {
	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		previous := t.BackoffSeconds
		if previous == 0 {
			previous = t.RetryInterval
		}
		backoff := 2 * previous
		if t.RetryInterval > backoff {
			backoff = t.RetryInterval
		}
		if backoff > models.MaxRetryBackoff {
			backoff = models.MaxRetryBackoff
		}
		t.BackoffSeconds = backoff
		t.FailureCount++
		t.NextAttemptAt = time.Now().Add(time.Duration(backoff) * time.Second).Unix()
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist rate-limited backoff")
	}
}

func (s *Scheduler) markTransientFailure(ctx context.Context, task models.QueueTask) {
	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		t.FailureCount++
		t.BackoffSeconds = 0
		t.NextAttemptAt = time.Now().Add(time.Duration(t.RetryInterval) * time.Second).Unix()
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist transient failure")
	}
}

func (s *Scheduler) failTask(ctx context.Context, task models.QueueTask, message string) {
	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		t.Status = models.TaskStatusFailed
		t.ErrorMessage = models.TruncateError(message)
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist terminal failure")
	}
}

func (s *Scheduler) completeTask(ctx context.Context, task models.QueueTask) {
	err := s.queue.WithTask(ctx, task.ID, func(t models.QueueTask) (models.QueueTask, error) {
		t.Status = models.TaskStatusCompleted
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("task", task.ID).Msg("failed to persist completion")
	}
}
