package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

type subscriptionsFile struct {
	Subscriptions []models.Subscription `json:"subscriptions"`
}

// SubscriptionStore is the C2-backed collection for data/subscriptions.json.
type SubscriptionStore struct {
	col *Collection[subscriptionsFile]
}

func NewSubscriptionStore(dataDir string, log zerolog.Logger) (*SubscriptionStore, error) {
	col, err := NewCollection[subscriptionsFile](dataDir+"/subscriptions.json", log)
	if err != nil {
		return nil, err
	}
	return &SubscriptionStore{col: col}, nil
}

func (s *SubscriptionStore) List(_ context.Context) ([]models.Subscription, error) {
	doc, err := s.col.Load()
	if err != nil {
		return nil, err
	}
	return doc.Subscriptions, nil
}

func (s *SubscriptionStore) Get(_ context.Context, id string) (models.Subscription, error) {
	doc, err := s.col.Load()
	if err != nil {
		return models.Subscription{}, err
	}
	for _, sub := range doc.Subscriptions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return models.Subscription{}, ErrNotFound
}

func (s *SubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	return s.col.Mutate(func(doc subscriptionsFile) (subscriptionsFile, error) {
		doc.Subscriptions = append(doc.Subscriptions, sub)
		return doc, nil
	})
}

func (s *SubscriptionStore) Delete(_ context.Context, id string) error {
	return s.col.Mutate(func(doc subscriptionsFile) (subscriptionsFile, error) {
		out := doc.Subscriptions[:0]
		for _, sub := range doc.Subscriptions {
			if sub.ID != id {
				out = append(out, sub)
			}
		}
		doc.Subscriptions = out
		return doc, nil
	})
}

// WithSubscription reads the current subscription, applies fn, and writes
// the result back in one collection-level mutation. Used by the monitor
// after a tick so history/lastStatus updates are atomic with respect to
// concurrent HTTP-driven subscription edits.
func (s *SubscriptionStore) WithSubscription(_ context.Context, id string, fn func(models.Subscription) (models.Subscription, error)) error {
	return s.col.Mutate(func(doc subscriptionsFile) (subscriptionsFile, error) {
		for i, sub := range doc.Subscriptions {
			if sub.ID == id {
				updated, err := fn(sub)
				if err != nil {
					return doc, err
				}
				doc.Subscriptions[i] = updated
				return doc, nil
			}
		}
		return doc, ErrNotFound
	})
}
