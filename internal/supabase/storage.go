package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
	"prompt-image-studio/internal/imagestore"
)

const objectPrefix = "images/"

// StorageClient keeps images in a Supabase Storage bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
	public  bool
}

var _ imagestore.ImageStore = (*StorageClient)(nil)

// NewStorageClient stores objects under images/ in bucket. When public is set
// Save returns the bucket's public object URL instead of the served path.
func NewStorageClient(supabaseURL, serviceRoleKey, bucket string, public bool) *StorageClient {
	baseURL := strings.TrimRight(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
		public:  public,
	}
}

func (s *StorageClient) Save(_ context.Context, name string, data []byte, contentType string) (string, error) {
	if err := imagestore.ValidateName(name); err != nil {
		return "", err
	}

	if contentType == "" {
		contentType = imagestore.ContentType(name, data)
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, objectPrefix+name, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	if s.public {
		return s.PublicURL(name), nil
	}
	return imagestore.URLPath(name), nil
}

func (s *StorageClient) Open(_ context.Context, name string) ([]byte, error) {
	if err := imagestore.ValidateName(name); err != nil {
		return nil, err
	}

	data, err := s.client.DownloadFile(s.bucket, objectPrefix+name)
	if err != nil {
		if isNotFound(err) {
			return nil, imagestore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

// PublicURL is the bucket's public object URL.
func (s *StorageClient) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s%s", s.baseURL, s.bucket, objectPrefix, name)
}

// storage-go reports every failure as a plain error carrying the API message.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404")
}
