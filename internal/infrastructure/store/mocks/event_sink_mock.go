package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventSink is a mock implementation of store.EventSink for testing
type MockEventSink struct {
	mu     sync.RWMutex
	events []store.Event

	// For tracking calls in tests
	AppendCalls []AppendCall
	AppendErr   error
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Data          any
}

// NewMockEventSink creates a new MockEventSink
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append records the call and keeps the event in memory
func (m *MockEventSink) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
	})

	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       len(m.events) + 1,
	}
	m.events = append(m.events, event)
	return &event, nil
}

// Calls returns a copy of the recorded calls
func (m *MockEventSink) Calls() []AppendCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AppendCall(nil), m.AppendCalls...)
}

// EventTypes returns the event types in append order
func (m *MockEventSink) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]string, 0, len(m.AppendCalls))
	for _, c := range m.AppendCalls {
		types = append(types, c.EventType)
	}
	return types
}

// Reset clears all events and recorded calls
func (m *MockEventSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.AppendCalls = make([]AppendCall, 0)
	m.AppendErr = nil
}
