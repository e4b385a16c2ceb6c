package services

import (
	"context"
	"fmt"
	"sync"
)

// MockStorage is an in-memory ObjectStorage for testing
type MockStorage struct {
	objects map[string][]byte // map of key to file content
	mu      sync.RWMutex
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects: make(map[string][]byte),
	}
}

// Put stores a copy of the content
func (m *MockStorage) Put(ctx context.Context, key string, content []byte, contentType string) error {
	data := make([]byte, len(content))
	copy(data, content)

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

// URL returns a fake presigned URL for a stored object
func (m *MockStorage) URL(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock storage: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/uploads/%s?mock=true", key), nil
}

// Delete removes an object
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Objects returns all stored objects (for testing assertions)
func (m *MockStorage) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		objects[k] = v
	}
	return objects
}

// Exists checks if an object is stored
func (m *MockStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}
