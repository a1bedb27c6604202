package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"prompt-image-studio/internal/imagestore"
	"prompt-image-studio/internal/logger"
)

const objectPrefix = "images/"

// Store keeps images as objects in a Google Cloud Storage bucket. Credentials
// come from Application Default Credentials; STORAGE_EMULATOR_HOST is honoured
// by the client library for local runs.
type Store struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

var _ imagestore.ImageStore = (*Store)(nil)

func NewStore(ctx context.Context, log *logger.Logger, bucket string, opts ...option.ClientOption) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS bucket name")
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Info("GCS image store initialized", "bucket", bucket)
	return &Store{
		log:    log.With("component", "GCSStore"),
		client: client,
		bucket: bucket,
	}, nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := imagestore.ValidateName(name); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectPrefix + name).NewWriter(ctx)
	if contentType == "" {
		contentType = imagestore.ContentType(name, data)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return imagestore.URLPath(name), nil
}

func (s *Store) Open(ctx context.Context, name string) ([]byte, error) {
	if err := imagestore.ValidateName(name); err != nil {
		return nil, err
	}

	r, err := s.client.Bucket(s.bucket).Object(objectPrefix + name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, imagestore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
