package repository

import (
	"context"
	"errors"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// SettingsRepository reads service settings documents
type SettingsRepository struct {
	store DocumentStore
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(store DocumentStore) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// TTSConfig returns tts_config/default, falling back to built-in voice settings
func (r *SettingsRepository) TTSConfig(ctx context.Context) (models.TTSConfig, error) {
	doc, err := r.store.Get(ctx, DocPath(models.CollectionTTSConfig, "default"))
	if errors.Is(err, ErrNotFound) {
		return models.DefaultTTSConfig(), nil
	}
	if err != nil {
		return models.TTSConfig{}, err
	}
	return models.TTSConfigFromData(doc.Data), nil
}
