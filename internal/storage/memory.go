package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// Object is a stored blob
type Object struct {
	Data        []byte
	ContentType string
	Public      bool
}

// MemoryStore is an in-process BlobStore, the local provider for tests and
// development
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]*Object
	failOn  map[string]error
}

// NewMemoryStore creates an empty blob store for bucket
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]*Object), failOn: make(map[string]error)}
}

// Put seeds an object
func (s *MemoryStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = &Object{Data: data}
}

// Object returns a stored object, or nil
func (s *MemoryStore) Object(path string) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[path]
}

// FailPrefix makes DeletePrefix(prefix) fail with err
func (s *MemoryStore) FailPrefix(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[prefix] = err
}

func (s *MemoryStore) Bucket() string {
	return s.bucket
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[prefix]; err != nil {
		return 0, err
	}
	deleted := 0
	for name := range s.objects {
		if MatchesPrefix(name, prefix) {
			delete(s.objects, name)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Upload(ctx context.Context, path, contentType string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = &Object{Data: data, ContentType: contentType}
	return nil
}

func (s *MemoryStore) MakePublic(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return ErrObjectNotFound
	}
	obj.Public = true
	return nil
}

func (s *MemoryStore) PublicURL(path string) string {
	return models.PublicObjectURL(s.bucket, path)
}

var _ BlobStore = (*MemoryStore)(nil)
