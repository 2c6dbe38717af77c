package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"projectforge-service/internal/domain"
)

// BlobStore holds screenshot bytes in a Redis hash per key (data +
// content type fields) and serves URLs under the configured public base.
type BlobStore struct {
	client  *redis.Client
	baseURL string
}

func NewBlobStore(client *redis.Client, baseURL string) *BlobStore {
	return &BlobStore{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.client.HSet(ctx, blobKey(key), "data", data, "contentType", contentType).Err(); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return s.baseURL + "/blobs/" + key, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	values, err := s.client.HGetAll(ctx, blobKey(key)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("get blob: %w", err)
	}
	raw, ok := values["data"]
	if !ok {
		return nil, "", domain.ErrBlobNotFound
	}
	return []byte(raw), values["contentType"], nil
}

func blobKey(key string) string {
	return "blob:" + key
}
