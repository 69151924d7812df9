package repository

import (
	"context"
	"sort"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// AuditRepository appends and reads admin_logs entries
type AuditRepository struct {
	store DocumentStore
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(store DocumentStore) *AuditRepository {
	return &AuditRepository{store: store}
}

// Append writes a new entry with a generated ID
func (r *AuditRepository) Append(ctx context.Context, entry *models.AdminLogEntry) (string, error) {
	id, err := r.store.Add(ctx, models.CollectionAdminLogs, entry.ToData())
	if err != nil {
		return "", err
	}
	entry.ID = id
	return id, nil
}

// List returns entries newest first, limited to limit when positive
func (r *AuditRepository) List(ctx context.Context, limit int) ([]*models.AdminLogEntry, error) {
	docs, err := r.store.List(ctx, models.CollectionAdminLogs)
	if err != nil {
		return nil, err
	}
	entries := make([]*models.AdminLogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, models.AdminLogEntryFromData(doc.ID, doc.Data))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
