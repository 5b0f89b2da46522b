package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

func newTestQueueStore(t *testing.T) *QueueStore {
	t.Helper()
	s, err := NewQueueStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func sampleTask(id, accountID string) models.QueueTask {
	return models.QueueTask{
		ID:            id,
		AccountID:     accountID,
		PlanCode:      "24sk01",
		Datacenters:   []string{"gra", "sbg"},
		Quantity:      1,
		RetryInterval: 60,
		Status:        models.TaskStatusRunning,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestQueueStoreCreateGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestQueueStore(t)

	task := sampleTask("task-1", "acc-1")
	require.NoError(t, s.Create(ctx, task))

	got, err := s.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, task.PlanCode, got.PlanCode)

	require.NoError(t, s.Delete(ctx, "task-1"))
	_, err = s.Get(ctx, "task-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueueStoreUpdateMissingReturnsErrNotFound(t *testing.T) {
	t.Parallel()
	s := newTestQueueStore(t)

	err := s.Update(context.Background(), sampleTask("ghost", "acc-1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueueStoreWithTaskMutatesAndPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestQueueStore(t)

	require.NoError(t, s.Create(ctx, sampleTask("task-1", "acc-1")))

	err := s.WithTask(ctx, "task-1", func(task models.QueueTask) (models.QueueTask, error) {
		task.Purchased++
		task.Status = models.TaskStatusCompleted
		return task, nil
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Purchased)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
}

func TestQueueStoreClearByAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestQueueStore(t)

	require.NoError(t, s.Create(ctx, sampleTask("task-1", "acc-1")))
	require.NoError(t, s.Create(ctx, sampleTask("task-2", "acc-2")))

	removed, err := s.Clear(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-2", tasks[0].ID)
}

func TestQueueStoreClearAllWhenAccountEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestQueueStore(t)

	require.NoError(t, s.Create(ctx, sampleTask("task-1", "acc-1")))
	require.NoError(t, s.Create(ctx, sampleTask("task-2", "acc-2")))

	removed, err := s.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
