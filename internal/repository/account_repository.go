package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// AccountRepository reads and writes profiles in the account collections
type AccountRepository struct {
	store DocumentStore
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(store DocumentStore) *AccountRepository {
	return &AccountRepository{store: store}
}

// Get returns the account stored at collection/id
func (r *AccountRepository) Get(ctx context.Context, collection, id string) (*models.Account, error) {
	doc, err := r.store.Get(ctx, DocPath(collection, id))
	if err != nil {
		return nil, err
	}
	return models.AccountFromData(collection, id, doc.Data), nil
}

// GetAdmin returns the admins/{uid} profile
func (r *AccountRepository) GetAdmin(ctx context.Context, uid string) (*models.Account, error) {
	return r.Get(ctx, models.CollectionAdmins, uid)
}

// Exists reports whether the account document exists
func (r *AccountRepository) Exists(ctx context.Context, collection, id string) (bool, error) {
	_, err := r.store.Get(ctx, DocPath(collection, id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create writes a profile document with the given data
func (r *AccountRepository) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return r.store.Set(ctx, DocPath(collection, id), data)
}

// Delete removes the profile document
func (r *AccountRepository) Delete(ctx context.Context, collection, id string) error {
	return r.store.Delete(ctx, DocPath(collection, id))
}

// SetArchived flips the archive flag and stamps the matching timestamp.
// Returns ErrNotFound when the document is absent.
func (r *AccountRepository) SetArchived(ctx context.Context, collection, id string, archived bool, at time.Time) error {
	fields := map[string]interface{}{
		models.FieldIsArchived: archived,
		models.FieldUpdatedAt:  at,
	}
	if archived {
		fields[models.FieldArchivedAt] = at
	} else {
		fields[models.FieldUnarchivedAt] = at
	}
	return r.store.Update(ctx, DocPath(collection, id), fields)
}

// List returns the accounts of a collection, skipping archived ones unless includeArchived
func (r *AccountRepository) List(ctx context.Context, collection string, includeArchived bool) ([]*models.Account, error) {
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	accounts := make([]*models.Account, 0, len(docs))
	for _, doc := range docs {
		acc := models.AccountFromData(collection, doc.ID, doc.Data)
		if acc.IsArchived && !includeArchived {
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// ListIDs returns every document ID in a collection, archived included
func (r *AccountRepository) ListIDs(ctx context.Context, collection string) ([]string, error) {
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// ActiveBetween returns the IDs of non-archived accounts whose lastLogin is in [from, to]
func (r *AccountRepository) ActiveBetween(ctx context.Context, collection string, from, to time.Time) ([]string, error) {
	docs, err := r.store.Query(ctx, collection,
		Filter{Field: models.FieldLastLogin, Op: ">=", Value: from},
		Filter{Field: models.FieldLastLogin, Op: "<=", Value: to},
	)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if models.BoolField(doc.Data, models.FieldIsArchived) {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
