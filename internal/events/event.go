package events

import (
	"context"
	"time"
)

// ChangeType classifies a document write
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent describes one document write observed by the store.
// Before is nil for creations and After is nil for deletions. Both are
// serialized even when nil so an empty document survives the wire as {}.
type ChangeEvent struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	DocumentID string                 `json:"document_id"`
	Path       string                 `json:"path"`
	Before     map[string]interface{} `json:"before"`
	After      map[string]interface{} `json:"after"`
	ActorUID   string                 `json:"actor_uid,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Type derives the change type from the before/after snapshots
func (e *ChangeEvent) Type() ChangeType {
	switch {
	case e.Before == nil && e.After != nil:
		return ChangeCreate
	case e.Before != nil && e.After == nil:
		return ChangeDelete
	default:
		return ChangeUpdate
	}
}

// IsTopLevel reports whether the document sits directly under a root collection
func (e *ChangeEvent) IsTopLevel() bool {
	return e.Path == e.Collection+"/"+e.DocumentID
}

// Handler reacts to a change event
type Handler func(ctx context.Context, event *ChangeEvent) error

// Publisher accepts change events
type Publisher interface {
	Publish(ctx context.Context, event *ChangeEvent) error
}

// Bus delivers change events to subscribed handlers
type Bus interface {
	Publisher
	// Subscribe registers a named handler. Must be called before Start.
	Subscribe(name string, handler Handler)
	Start(ctx context.Context) error
	Close() error
	// GetStats returns delivery counters for the stats endpoint
	GetStats() map[string]interface{}
}

type actorKey struct{}

// WithActor attaches the authenticated caller UID to a context
func WithActor(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, uid)
}

// ActorFromContext returns the caller UID attached by WithActor
func ActorFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(actorKey{}).(string)
	return uid
}
