package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/events"
)

// ObservedStore wraps a DocumentStore and publishes a ChangeEvent for every
// successful write. Reads pass straight through.
type ObservedStore struct {
	DocumentStore
	bus    events.Publisher
	logger *logrus.Logger
	now    func() time.Time
}

// NewObservedStore decorates inner so writes reach the bus
func NewObservedStore(inner DocumentStore, bus events.Publisher, logger *logrus.Logger) *ObservedStore {
	return &ObservedStore{DocumentStore: inner, bus: bus, logger: logger, now: time.Now}
}

func (s *ObservedStore) snapshot(ctx context.Context, path string) (map[string]interface{}, error) {
	doc, err := s.DocumentStore.Get(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (s *ObservedStore) emit(ctx context.Context, path string, before, after map[string]interface{}) {
	if before == nil && after == nil {
		return
	}
	_, id := SplitDocPath(path)
	event := &events.ChangeEvent{
		ID:         uuid.NewString(),
		Collection: TopLevelCollection(path),
		DocumentID: id,
		Path:       path,
		Before:     before,
		After:      after,
		ActorUID:   events.ActorFromContext(ctx),
		Timestamp:  s.now(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("path", path).Error("Failed to publish change event")
	}
}

func (s *ObservedStore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	before, err := s.snapshot(ctx, path)
	if err != nil {
		return err
	}
	if err := s.DocumentStore.Set(ctx, path, data); err != nil {
		return err
	}
	s.emit(ctx, path, before, copyData(data))
	return nil
}

func (s *ObservedStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	before, err := s.snapshot(ctx, path)
	if err != nil {
		return err
	}
	if before == nil {
		return ErrNotFound
	}
	if err := s.DocumentStore.Update(ctx, path, fields); err != nil {
		return err
	}
	after := copyData(before)
	for k, v := range fields {
		after[k] = v
	}
	s.emit(ctx, path, before, after)
	return nil
}

func (s *ObservedStore) Delete(ctx context.Context, path string) error {
	before, err := s.snapshot(ctx, path)
	if err != nil {
		return err
	}
	if err := s.DocumentStore.Delete(ctx, path); err != nil {
		return err
	}
	s.emit(ctx, path, before, nil)
	return nil
}

func (s *ObservedStore) Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error) {
	id, err := s.DocumentStore.Add(ctx, collectionPath, data)
	if err != nil {
		return "", err
	}
	s.emit(ctx, DocPath(collectionPath, id), nil, copyData(data))
	return id, nil
}

var _ DocumentStore = (*ObservedStore)(nil)
