package repository

import (
	"context"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// PendingTeacherRepository handles the pendingTeachers staging collection
type PendingTeacherRepository struct {
	store DocumentStore
}

// NewPendingTeacherRepository creates a new pending teacher repository
func NewPendingTeacherRepository(store DocumentStore) *PendingTeacherRepository {
	return &PendingTeacherRepository{store: store}
}

// Get returns the pending registration, ErrNotFound when already consumed
func (r *PendingTeacherRepository) Get(ctx context.Context, id string) (*models.PendingTeacher, error) {
	doc, err := r.store.Get(ctx, DocPath(models.CollectionPendingTeachers, id))
	if err != nil {
		return nil, err
	}
	return &models.PendingTeacher{
		ID:   id,
		UID:  models.StringField(doc.Data, "uid"),
		Data: doc.Data,
	}, nil
}

// Delete removes the pending registration
func (r *PendingTeacherRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, DocPath(models.CollectionPendingTeachers, id))
}
