package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e *events.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestObservedStoreEmitsChanges(t *testing.T) {
	ctx := events.WithActor(context.Background(), "admin-1")
	pub := &recordingPublisher{}
	s := NewObservedStore(NewMemoryStore(), pub, logrus.New())

	require.NoError(t, s.Set(ctx, "teachers/t1", map[string]interface{}{"firstName": "Ana"}))
	require.NoError(t, s.Update(ctx, "teachers/t1", map[string]interface{}{"lastName": "Cruz"}))
	require.NoError(t, s.Delete(ctx, "teachers/t1"))
	require.NoError(t, s.Delete(ctx, "teachers/t1"))

	require.Len(t, pub.events, 3, "deleting an absent document emits nothing")

	created, updated, deleted := pub.events[0], pub.events[1], pub.events[2]
	assert.Equal(t, events.ChangeCreate, created.Type())
	assert.Equal(t, "teachers", created.Collection)
	assert.Equal(t, "t1", created.DocumentID)
	assert.Equal(t, "admin-1", created.ActorUID)

	assert.Equal(t, events.ChangeUpdate, updated.Type())
	assert.Equal(t, "Ana", updated.Before["firstName"])
	assert.Equal(t, "Cruz", updated.After["lastName"])
	assert.Equal(t, "Ana", updated.After["firstName"])

	assert.Equal(t, events.ChangeDelete, deleted.Type())
	assert.Equal(t, "Cruz", deleted.Before["lastName"])
}

func TestObservedStoreAddAndUpdateMissing(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := NewObservedStore(NewMemoryStore(), pub, logrus.New())

	id, err := s.Add(ctx, "admin_logs", map[string]interface{}{"adminId": "system"})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "admin_logs/"+id, pub.events[0].Path)
	assert.Empty(t, pub.events[0].ActorUID)

	assert.ErrorIs(t, s.Update(ctx, "teachers/missing", map[string]interface{}{"a": 1}), ErrNotFound)
	assert.Len(t, pub.events, 1)
}

func TestObservedStoreSkipsEventOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	mem := NewMemoryStore()
	mem.SetFault(func(op, path string) error {
		if op == "set" {
			return assert.AnError
		}
		return nil
	})
	s := NewObservedStore(mem, pub, logrus.New())

	assert.Error(t, s.Set(ctx, "teachers/t1", map[string]interface{}{}))
	assert.Empty(t, pub.events)
}
