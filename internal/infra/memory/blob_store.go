package memory

import (
	"context"
	"strings"
	"sync"

	"projectforge-service/internal/domain"
)

// BlobStore keeps screenshot bytes in memory and hands back URLs under the
// configured public base. Uploads to an existing key overwrite it.
type BlobStore struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string]blobEntry
}

type blobEntry struct {
	data        []byte
	contentType string
}

func NewBlobStore(baseURL string) *BlobStore {
	return &BlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string]blobEntry),
	}
}

func (s *BlobStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	s.blobs[key] = blobEntry{data: append([]byte(nil), data...), contentType: contentType}
	s.mu.Unlock()
	return s.baseURL + "/blobs/" + key, nil
}

func (s *BlobStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.blobs[key]
	if !ok {
		return nil, "", domain.ErrBlobNotFound
	}
	return append([]byte(nil), entry.data...), entry.contentType, nil
}
