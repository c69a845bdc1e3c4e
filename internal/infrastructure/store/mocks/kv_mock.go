package mocks

import (
	"context"
	"sync"
)

// MockKV is an in-memory KV that records calls and can inject failures
type MockKV struct {
	mu   sync.RWMutex
	data map[string]string

	// For tracking calls in tests
	GetCalls    []string
	SetCalls    []SetCall
	RemoveCalls []string

	GetErr    error
	SetErr    error
	RemoveErr error
}

// SetCall records parameters passed to Set
type SetCall struct {
	Key   string
	Value string
}

// NewMockKV creates a new MockKV
func NewMockKV() *MockKV {
	return &MockKV{
		data:        make(map[string]string),
		GetCalls:    make([]string, 0),
		SetCalls:    make([]SetCall, 0),
		RemoveCalls: make([]string, 0),
	}
}

// Get retrieves a value by key
func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	value, ok := m.data[key]
	return value, ok, nil
}

// Set stores a value
func (m *MockKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Remove deletes a value
func (m *MockKV) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RemoveCalls = append(m.RemoveCalls, key)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.data, key)
	return nil
}

// SetData sets data directly for testing
func (m *MockKV) SetData(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// GetData gets data directly for testing (without recording the call)
func (m *MockKV) GetData(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}

// DeleteData removes a key without recording the call, simulating external tampering
func (m *MockKV) DeleteData(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Reset clears all data and recorded calls
func (m *MockKV) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.GetCalls = make([]string, 0)
	m.SetCalls = make([]SetCall, 0)
	m.RemoveCalls = make([]string, 0)
	m.GetErr = nil
	m.SetErr = nil
	m.RemoveErr = nil
}
