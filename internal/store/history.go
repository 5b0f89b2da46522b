package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

type historyFile struct {
	Entries []models.PurchaseHistoryEntry `json:"entries"`
}

// HistoryStore is the C2-backed collection for data/history.json: an
// append-only audit log of purchase attempts, trimmed from the front once it
// grows past models.MaxHistoryEntries.
type HistoryStore struct {
	col *Collection[historyFile]
}

func NewHistoryStore(dataDir string, log zerolog.Logger) (*HistoryStore, error) {
	col, err := NewCollection[historyFile](dataDir+"/history.json", log)
	if err != nil {
		return nil, err
	}
	return &HistoryStore{col: col}, nil
}

// Append adds entry and trims the oldest entries beyond the soft cap.
func (s *HistoryStore) Append(_ context.Context, entry models.PurchaseHistoryEntry) error {
	entry.ErrorMessage = models.TruncateError(entry.ErrorMessage)
	return s.col.Mutate(func(doc historyFile) (historyFile, error) {
		doc.Entries = append(doc.Entries, entry)
		if over := len(doc.Entries) - models.MaxHistoryEntries; over > 0 {
			doc.Entries = doc.Entries[over:]
		}
		return doc, nil
	})
}

// List returns every entry, optionally filtered to one task.
func (s *HistoryStore) List(_ context.Context, taskID string) ([]models.PurchaseHistoryEntry, error) {
	doc, err := s.col.Load()
	if err != nil {
		return nil, err
	}
	if taskID == "" {
		return doc.Entries, nil
	}
	out := make([]models.PurchaseHistoryEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes every history entry, optionally restricted to one account.
func (s *HistoryStore) Clear(_ context.Context, accountID string) (int, error) {
	removed := 0
	err := s.col.Mutate(func(doc historyFile) (historyFile, error) {
		if accountID == "" {
			removed = len(doc.Entries)
			doc.Entries = nil
			return doc, nil
		}
		out := doc.Entries[:0]
		for _, e := range doc.Entries {
			if e.AccountID == accountID {
				removed++
				continue
			}
			out = append(out, e)
		}
		doc.Entries = out
		return doc, nil
	})
	return removed, err
}
