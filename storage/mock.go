package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Mock is an in-memory media host client for testing.
type Mock struct {
	BaseURL string
	Bucket  string

	objects map[string][]byte
	mimes   map[string]string
	mutex   sync.RWMutex
}

// NewMock creates a new in-memory media host client.
func NewMock() *Mock {
	return &Mock{
		BaseURL: "https://cdn.example",
		Bucket:  "media",
		objects: make(map[string][]byte),
		mimes:   make(map[string]string),
	}
}

// UploadObject stores an object in memory.
func (m *Mock) UploadObject(ctx context.Context, key string, data io.Reader, contentType string) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[key] = content
	m.mimes[key] = contentType

	return nil
}

// DeleteObject removes an object from memory.
func (m *Mock) DeleteObject(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("object not found: %s", key)
	}

	delete(m.objects, key)
	delete(m.mimes, key)

	return nil
}

// ObjectURL returns the URL the mock serves an object from.
func (m *Mock) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.BaseURL, m.Bucket, key)
}

// Object returns the stored content and content type for a key.
func (m *Mock) Object(key string) ([]byte, string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	content, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return content, m.mimes[key], true
}

// Len returns the number of stored objects.
func (m *Mock) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.objects)
}
