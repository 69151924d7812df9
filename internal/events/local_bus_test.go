package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeEventType(t *testing.T) {
	data := map[string]interface{}{"a": 1}
	assert.Equal(t, ChangeCreate, (&ChangeEvent{After: data}).Type())
	assert.Equal(t, ChangeDelete, (&ChangeEvent{Before: data}).Type())
	assert.Equal(t, ChangeUpdate, (&ChangeEvent{Before: data, After: data}).Type())
}

func TestChangeEventTypeSurvivesWireForEmptyDocuments(t *testing.T) {
	tests := []struct {
		name  string
		event ChangeEvent
		want  ChangeType
	}{
		{"delete of empty document", ChangeEvent{Collection: "stories", DocumentID: "X", Path: "stories/X", Before: map[string]interface{}{}}, ChangeDelete},
		{"create of empty document", ChangeEvent{Collection: "stories", DocumentID: "X", Path: "stories/X", After: map[string]interface{}{}}, ChangeCreate},
		{"update between empty documents", ChangeEvent{Before: map[string]interface{}{}, After: map[string]interface{}{}}, ChangeUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(&tt.event)
			require.NoError(t, err)

			var decoded ChangeEvent
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.want, decoded.Type())
		})
	}
}

func TestChangeEventIsTopLevel(t *testing.T) {
	assert.True(t, (&ChangeEvent{Collection: "stories", DocumentID: "s1", Path: "stories/s1"}).IsTopLevel())
	assert.False(t, (&ChangeEvent{Collection: "stories", DocumentID: "p1", Path: "stories/s1/pages/p1"}).IsTopLevel())
}

func TestSubject(t *testing.T) {
	e := &ChangeEvent{Collection: "teachers", Before: map[string]interface{}{}}
	assert.Equal(t, "kwentura.documents.teachers.delete", Subject(e))
}

func TestLocalBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewLocalBus(logrus.New())
	var a, b int32
	var actor atomic.Value

	bus.Subscribe("a", func(ctx context.Context, e *ChangeEvent) error {
		atomic.AddInt32(&a, 1)
		actor.Store(ActorFromContext(ctx))
		return nil
	})
	bus.Subscribe("b", func(ctx context.Context, e *ChangeEvent) error {
		atomic.AddInt32(&b, 1)
		return errors.New("boom")
	})
	require.NoError(t, bus.Start(context.Background()))

	ctx := WithActor(context.Background(), "admin-1")
	require.NoError(t, bus.Publish(ctx, &ChangeEvent{Path: "x/y"}))
	require.NoError(t, bus.Publish(ctx, &ChangeEvent{Path: "x/z"}))
	bus.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&a))
	assert.Equal(t, int32(2), atomic.LoadInt32(&b))
	assert.Equal(t, "admin-1", actor.Load())
}

func TestLocalBusIgnoresPublishAfterClose(t *testing.T) {
	bus := NewLocalBus(logrus.New())
	var calls int32
	bus.Subscribe("a", func(ctx context.Context, e *ChangeEvent) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Publish(context.Background(), &ChangeEvent{}))
	bus.Wait()
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestActorContext(t *testing.T) {
	assert.Empty(t, ActorFromContext(context.Background()))
	assert.Equal(t, "u1", ActorFromContext(WithActor(context.Background(), "u1")))
}
