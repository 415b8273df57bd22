// Package storage stores uploaded media in an object store.
package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PresignedUpload is a URL the client can PUT the object body to directly.
type PresignedUpload struct {
	URL       string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Key       string            `json:"key"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ObjectStore is the subset of object storage the upload service needs.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error)
	Put(ctx context.Context, key, contentType string, body []byte) error
	PublicURL(key string) string
}

// MemoryStore keeps objects in memory. It backs tests and local runs
// without S3 credentials.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
	baseURL string
}

// MemoryObject is a stored body with its content type.
type MemoryObject struct {
	ContentType string
	Body        []byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "http://localhost/media"
	}
	return &MemoryStore{objects: make(map[string]MemoryObject), baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MemoryStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error) {
	return &PresignedUpload{
		URL:       m.PublicURL(key) + "?presigned=1",
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		Key:       key,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	m.objects[key] = MemoryObject{ContentType: contentType, Body: cp}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.baseURL + "/" + key
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}
