package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrObjectNotFound is returned when an object does not exist
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the object storage used for story assets and synthesized audio
type BlobStore interface {
	// Bucket returns the bucket name objects live in
	Bucket() string

	// List returns object names under a prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// DeletePrefix deletes every object matched by MatchesPrefix and returns
	// how many were removed. An empty prefix match is not an error.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Upload writes an object
	Upload(ctx context.Context, path, contentType string, content io.Reader) error

	// MakePublic grants public read access to an object
	MakePublic(ctx context.Context, path string) error

	// PublicURL returns the public URL of an object
	PublicURL(path string) string
}

// MatchesPrefix reports whether name belongs to prefix. A prefix ending in "/"
// is a folder and matches everything under it. Any other prefix names a path
// segment: it matches the object itself, objects below it and single-segment
// extensions of it, so "story_pdfs/X" owns "story_pdfs/X.pdf" but not
// "story_pdfs/X1.pdf".
func MatchesPrefix(name, prefix string) bool {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(name, prefix)
	}
	if name == prefix {
		return true
	}
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return false
	}
	switch rest[0] {
	case '/':
		return true
	case '.':
		return !strings.Contains(rest, "/")
	}
	return false
}
