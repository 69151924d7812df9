package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FaultFunc lets tests inject failures. It is called with the operation name
// ("get", "set", "update", "delete", "add", "list", "query", "subcollections")
// and the path; a non-nil return aborts the operation with that error.
type FaultFunc func(op, path string) error

// MemoryStore is an in-memory DocumentStore with Firestore path semantics.
// Used by tests and by the "memory" provider for local development.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]interface{}
	fault FaultFunc
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]interface{})}
}

// SetFault installs (or clears, with nil) a fault injection hook
func (s *MemoryStore) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *MemoryStore) check(op, path string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f != nil {
		return f(op, path)
	}
	return nil
}

func validDocPath(path string) error {
	segs := strings.Split(path, "/")
	if path == "" || len(segs)%2 != 0 {
		return fmt.Errorf("invalid document path %q", path)
	}
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("invalid document path %q", path)
		}
	}
	return nil
}

func validCollectionPath(path string) error {
	segs := strings.Split(path, "/")
	if path == "" || len(segs)%2 != 1 {
		return fmt.Errorf("invalid collection path %q", path)
	}
	return nil
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) Get(ctx context.Context, path string) (*Document, error) {
	if err := validDocPath(path); err != nil {
		return nil, err
	}
	if err := s.check("get", path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	_, id := SplitDocPath(path)
	return &Document{ID: id, Path: path, Data: copyData(data)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	if err := validDocPath(path); err != nil {
		return err
	}
	if err := s.check("set", path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = copyData(data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := validDocPath(path); err != nil {
		return err
	}
	if err := s.check("update", path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		data[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := validDocPath(path); err != nil {
		return err
	}
	if err := s.check("delete", path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error) {
	if err := validCollectionPath(collectionPath); err != nil {
		return "", err
	}
	if err := s.check("add", collectionPath); err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[DocPath(collectionPath, id)] = copyData(data)
	return id, nil
}

func (s *MemoryStore) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	if err := validCollectionPath(collectionPath); err != nil {
		return nil, err
	}
	if err := s.check("list", collectionPath); err != nil {
		return nil, err
	}
	return s.collect(collectionPath, nil), nil
}

func (s *MemoryStore) Query(ctx context.Context, collectionPath string, filters ...Filter) ([]*Document, error) {
	if err := validCollectionPath(collectionPath); err != nil {
		return nil, err
	}
	if err := s.check("query", collectionPath); err != nil {
		return nil, err
	}
	return s.collect(collectionPath, filters), nil
}

func (s *MemoryStore) collect(collectionPath string, filters []Filter) []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collectionPath + "/"
	var docs []*Document
	for path, data := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := path[len(prefix):]
		if strings.Contains(id, "/") {
			continue
		}
		if !matchesAll(data, filters) {
			continue
		}
		docs = append(docs, &Document{ID: id, Path: path, Data: copyData(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (s *MemoryStore) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	if err := validDocPath(docPath); err != nil {
		return nil, err
	}
	if err := s.check("subcollections", docPath); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := docPath + "/"
	seen := make(map[string]struct{})
	for path := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if idx := strings.Index(rest, "/"); idx > 0 {
			seen[rest[:idx]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Len returns the number of stored documents
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func matchesAll(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			// Firestore excludes documents missing the field for every operator
			return false
		}
		if !matches(v, f.Op, f.Value) {
			return false
		}
	}
	return true
}

func matches(actual interface{}, op string, expected interface{}) bool {
	cmp, ok := compareValues(actual, expected)
	switch op {
	case "==":
		return ok && cmp == 0
	case "!=":
		return !ok || cmp != 0
	case "<":
		return ok && cmp < 0
	case "<=":
		return ok && cmp <= 0
	case ">":
		return ok && cmp > 0
	case ">=":
		return ok && cmp >= 0
	}
	return false
}

func compareValues(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok || av != bv {
			return 1, ok
		}
		return 0, true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

var _ DocumentStore = (*MemoryStore)(nil)
