package storage

import (
	"context"
	"sync"
)

// BlobStore is the synchronous string-keyed medium the adapter reads and
// writes the serialized collection through. Save fully overwrites prior
// content; there is no diff or append primitive.
type BlobStore interface {
	// Load returns the blob stored under key; ok is false when the key is
	// absent.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key, value string) error
}

// MemoryBlobStore is an in-process BlobStore backed by a map. It is the
// default backend and the stand-in for the browser's local storage.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]string

	// SaveErr, when set, is returned by every Save call. Tests use it to
	// simulate a full medium.
	SaveErr error
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]string)}
}

func (m *MemoryBlobStore) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	return v, ok, nil
}

func (m *MemoryBlobStore) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.blobs[key] = value
	return nil
}
