package repository

import (
	"context"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// RetentionRepository stores daily active-user snapshots
type RetentionRepository struct {
	store DocumentStore
}

// NewRetentionRepository creates a new retention repository
func NewRetentionRepository(store DocumentStore) *RetentionRepository {
	return &RetentionRepository{store: store}
}

// Append writes one snapshot document; same-day runs are not deduplicated
func (r *RetentionRepository) Append(ctx context.Context, snapshot *models.RetentionSnapshot) (string, error) {
	id, err := r.store.Add(ctx, models.CollectionRetentionRates, snapshot.ToData())
	if err != nil {
		return "", err
	}
	snapshot.ID = id
	return id, nil
}
