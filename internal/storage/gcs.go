package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// GCSConfig holds Cloud Storage client settings
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
}

// GCSStore implements BlobStore on Google Cloud Storage
type GCSStore struct {
	client *gcs.Client
	bucket string
	logger *logrus.Logger
}

// NewGCSStore creates a Cloud Storage backed blob store
func NewGCSStore(ctx context.Context, cfg GCSConfig, logger *logrus.Logger) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Close releases the client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Bucket() string {
	return s.bucket
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs []error
	for _, name := range names {
		if !MatchesPrefix(name, prefix) {
			continue
		}
		err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
		if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"bucket": s.bucket,
				"path":   name,
			}).Error("Failed to delete object from GCS")
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

func (s *GCSStore) Upload(ctx context.Context, path, contentType string, content io.Reader) error {
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, content); err != nil {
		writer.Close()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": s.bucket,
			"path":   path,
		}).Error("Failed to upload to GCS")
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": s.bucket,
			"path":   path,
		}).Error("Failed to finalize GCS upload")
		return fmt.Errorf("failed to finalize GCS upload: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"path":   path,
	}).Info("Successfully uploaded to GCS")
	return nil
}

func (s *GCSStore) MakePublic(ctx context.Context, path string) error {
	err := s.client.Bucket(s.bucket).Object(path).ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to make %s public: %w", path, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(path string) string {
	return models.PublicObjectURL(s.bucket, path)
}

var _ BlobStore = (*GCSStore)(nil)
