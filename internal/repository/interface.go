package repository

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a referenced document does not exist
var ErrNotFound = errors.New("document not found")

// Document is a snapshot of a stored document
type Document struct {
	ID   string                 `json:"id"`
	Path string                 `json:"path"`
	Data map[string]interface{} `json:"data"`
}

// Filter is a single field condition applied to a collection query
type Filter struct {
	Field string
	Op    string // "==", "!=", "<", "<=", ">", ">="
	Value interface{}
}

// DocumentStore defines the document operations the service relies on.
// Paths are slash separated and relative to the database root, e.g.
// "students/{id}/quizScores/{scoreId}".
type DocumentStore interface {
	// Get returns ErrNotFound when the document is absent
	Get(ctx context.Context, path string) (*Document, error)

	// Set creates or overwrites a document
	Set(ctx context.Context, path string, data map[string]interface{}) error

	// Update merges fields into an existing document, ErrNotFound when absent
	Update(ctx context.Context, path string, fields map[string]interface{}) error

	// Delete removes a document. Deleting an absent document is a no-op and
	// never removes subcollections.
	Delete(ctx context.Context, path string) error

	// Add creates a document with a generated ID and returns the ID
	Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error)

	// List returns every document directly under a collection
	List(ctx context.Context, collectionPath string) ([]*Document, error)

	// Query returns documents of a collection matching all filters
	Query(ctx context.Context, collectionPath string, filters ...Filter) ([]*Document, error)

	// ListSubcollections returns the IDs of collections nested under a document path,
	// including when the document itself has been deleted
	ListSubcollections(ctx context.Context, docPath string) ([]string, error)
}

// DocPath joins path segments
func DocPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitDocPath returns the collection path and document ID of a document path
func SplitDocPath(path string) (string, string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// TopLevelCollection returns the first segment of a path
func TopLevelCollection(path string) string {
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return path
}
