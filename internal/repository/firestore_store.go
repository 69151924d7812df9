package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements DocumentStore on Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an initialised Firestore client
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Close releases the underlying client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", path)
	}
	return ref, nil
}

func (s *FirestoreStore) collection(path string) (*firestore.CollectionRef, error) {
	ref := s.client.Collection(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path %q", path)
	}
	return ref, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (*Document, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return &Document{ID: ref.ID, Path: path, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, data); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) Add(ctx context.Context, collectionPath string, data map[string]interface{}) (string, error) {
	coll, err := s.collection(collectionPath)
	if err != nil {
		return "", err
	}
	ref, _, err := coll.Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collectionPath, err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	coll, err := s.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	return drain(coll.Documents(ctx), collectionPath)
}

func (s *FirestoreStore) Query(ctx context.Context, collectionPath string, filters ...Filter) ([]*Document, error) {
	coll, err := s.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	q := coll.Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	return drain(q.Documents(ctx), collectionPath)
}

func drain(iter *firestore.DocumentIterator, collectionPath string) ([]*Document, error) {
	defer iter.Stop()

	var docs []*Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", collectionPath, err)
		}
		docs = append(docs, &Document{
			ID:   snap.Ref.ID,
			Path: DocPath(collectionPath, snap.Ref.ID),
			Data: snap.Data(),
		})
	}
	return docs, nil
}

func (s *FirestoreStore) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	ref, err := s.doc(docPath)
	if err != nil {
		return nil, err
	}
	iter := ref.Collections(ctx)
	var ids []string
	for {
		coll, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list subcollections of %s: %w", docPath, err)
		}
		ids = append(ids, coll.ID)
	}
	return ids, nil
}

var _ DocumentStore = (*FirestoreStore)(nil)
