package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

var ErrNotFound = errors.New("not found")

type accountsFile struct {
	Accounts []models.Account `json:"accounts"`
}

// AccountStore is the C2-backed collection for data/accounts.json.
// Accounts are read-only to every component except this store once loaded.
type AccountStore struct {
	col *Collection[accountsFile]
}

func NewAccountStore(dataDir string, log zerolog.Logger) (*AccountStore, error) {
	col, err := NewCollection[accountsFile](dataDir+"/accounts.json", log)
	if err != nil {
		return nil, err
	}
	return &AccountStore{col: col}, nil
}

func (s *AccountStore) List(_ context.Context) ([]models.Account, error) {
	doc, err := s.col.Load()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

func (s *AccountStore) Get(_ context.Context, id string) (models.Account, error) {
	doc, err := s.col.Load()
	if err != nil {
		return models.Account{}, err
	}
	for _, a := range doc.Accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Account{}, ErrNotFound
}

func (s *AccountStore) Put(_ context.Context, account models.Account) error {
	return s.col.Mutate(func(doc accountsFile) (accountsFile, error) {
		for i, a := range doc.Accounts {
			if a.ID == account.ID {
				doc.Accounts[i] = account
				return doc, nil
			}
		}
		doc.Accounts = append(doc.Accounts, account)
		return doc, nil
	})
}

// DefaultAccount returns the account aliased "default", falling back to the
// first account in the collection if none carries that alias. Used when a
// request or subscription omits an explicit account id.
func (s *AccountStore) DefaultAccount(ctx context.Context) (models.Account, error) {
	doc, err := s.col.Load()
	if err != nil {
		return models.Account{}, err
	}
	if len(doc.Accounts) == 0 {
		return models.Account{}, ErrNotFound
	}
	for _, a := range doc.Accounts {
		if a.Alias == "default" {
			return a, nil
		}
	}
	return doc.Accounts[0], nil
}

func (s *AccountStore) Delete(_ context.Context, id string) error {
	return s.col.Mutate(func(doc accountsFile) (accountsFile, error) {
		out := doc.Accounts[:0]
		for _, a := range doc.Accounts {
			if a.ID != id {
				out = append(out, a)
			}
		}
		doc.Accounts = out
		return doc, nil
	})
}
