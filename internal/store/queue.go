package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

type queueFile struct {
	Tasks []models.QueueTask `json:"tasks"`
}

// QueueStore is the C2-backed collection for data/queue.json. Task-level
// mutual exclusion (the per-task lock in spec.md §4.5) is layered on top by
// the scheduler; this store only guarantees the file-level atomicity.
type QueueStore struct {
	col *Collection[queueFile]
}

func NewQueueStore(dataDir string, log zerolog.Logger) (*QueueStore, error) {
	col, err := NewCollection[queueFile](dataDir+"/queue.json", log)
	if err != nil {
		return nil, err
	}
	return &QueueStore{col: col}, nil
}

func (s *QueueStore) List(_ context.Context) ([]models.QueueTask, error) {
	doc, err := s.col.Load()
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

func (s *QueueStore) Get(_ context.Context, id string) (models.QueueTask, error) {
	doc, err := s.col.Load()
	if err != nil {
		return models.QueueTask{}, err
	}
	for _, t := range doc.Tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.QueueTask{}, ErrNotFound
}

func (s *QueueStore) Create(_ context.Context, task models.QueueTask) error {
	return s.col.Mutate(func(doc queueFile) (queueFile, error) {
		doc.Tasks = append(doc.Tasks, task)
		return doc, nil
	})
}

// Update replaces the task matching task.ID. Returns ErrNotFound if absent.
func (s *QueueStore) Update(_ context.Context, task models.QueueTask) error {
	return s.col.Mutate(func(doc queueFile) (queueFile, error) {
		for i, t := range doc.Tasks {
			if t.ID == task.ID {
				doc.Tasks[i] = task
				return doc, nil
			}
		}
		return doc, ErrNotFound
	})
}

func (s *QueueStore) Delete(_ context.Context, id string) error {
	return s.col.Mutate(func(doc queueFile) (queueFile, error) {
		out := doc.Tasks[:0]
		for _, t := range doc.Tasks {
			if t.ID != id {
				out = append(out, t)
			}
		}
		doc.Tasks = out
		return doc, nil
	})
}

// Clear removes every task, optionally restricted to one account.
func (s *QueueStore) Clear(_ context.Context, accountID string) (int, error) {
	removed := 0
	err := s.col.Mutate(func(doc queueFile) (queueFile, error) {
		if accountID == "" {
			removed = len(doc.Tasks)
			doc.Tasks = nil
			return doc, nil
		}
		out := doc.Tasks[:0]
		for _, t := range doc.Tasks {
			if t.AccountID == accountID {
				removed++
				continue
			}
			out = append(out, t)
		}
		doc.Tasks = out
		return doc, nil
	})
	return removed, err
}

// WithTask reads the current task, applies fn, and writes the result back,
// all in one collection-level mutation. Used by the scheduler after it has
// already acquired the task's own in-memory lock, so this only protects
// against concurrent writers from the HTTP control plane.
func (s *QueueStore) WithTask(_ context.Context, id string, fn func(models.QueueTask) (models.QueueTask, error)) error {
	return s.col.Mutate(func(doc queueFile) (queueFile, error) {
		for i, t := range doc.Tasks {
			if t.ID == id {
				updated, err := fn(t)
				if err != nil {
					return doc, err
				}
				doc.Tasks[i] = updated
				return doc, nil
			}
		}
		return doc, ErrNotFound
	})
}
