package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryObject is an object held by MemoryObjectStorage
type MemoryObject struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// MemoryObjectStorage keeps objects in process memory. It backs local
// development without a bucket and the tests; objects are served by the
// /files route.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
	baseURL string
}

// NewMemoryObjectStorage creates a storage whose public URLs start with baseURL
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	return &MemoryObjectStorage{
		objects: make(map[string]MemoryObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload stores a copy of data under key
func (s *MemoryObjectStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = MemoryObject{Data: buf, ContentType: contentType, StoredAt: time.Now()}
	return nil
}

// Delete removes an object
func (s *MemoryObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Exists reports whether key is stored
func (s *MemoryObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Get returns the stored object
func (s *MemoryObjectStorage) Get(key string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// DownloadURL returns the public URL; memory objects are not access controlled
func (s *MemoryObjectStorage) DownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	return s.PublicURL(key), time.Now().Add(expiresIn), nil
}

// PublicURL returns the address the /files route serves key at
func (s *MemoryObjectStorage) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
