package genre

import (
	"context"
	"path"
	"sync"
)

// MockRedisClient simulates a Redis client for testing purposes
type MockRedisClient struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMockRedisClient initializes an empty MockRedisClient
func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{data: make(map[string]string)}
}

// Get returns the value at key, or ErrCacheMiss
func (m *MockRedisClient) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

// Set stores value at key
func (m *MockRedisClient) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Keys lists keys matching a glob pattern
func (m *MockRedisClient) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping always succeeds
func (m *MockRedisClient) Ping(context.Context) error {
	return nil
}
