package mocks

import (
	"context"
	"sync"
)

// MockStateStore is a mock implementation of store.StateStore for testing
type MockStateStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	SaveCalls []SaveCall
	SaveErr   error
	LoadErr   error
}

// SaveCall records parameters passed to Save
type SaveCall struct {
	Key  string
	Data []byte
}

// NewMockStateStore creates a new MockStateStore
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{
		data:      make(map[string][]byte),
		SaveCalls: make([]SaveCall, 0),
	}
}

func (m *MockStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return nil, false, m.LoadErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MockStateStore) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, SaveCall{Key: key, Data: append([]byte(nil), data...)})
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// SetData seeds a blob directly for testing
func (m *MockStateStore) SetData(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
}

// Data returns the blob currently stored under key
func (m *MockStateStore) Data(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	return data, ok
}

// SetSaveErr sets the error returned by subsequent Save calls
func (m *MockStateStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}

// SaveCount returns the number of Save calls
func (m *MockStateStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SaveCalls)
}
