package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type mockEntry struct {
	value     []byte
	expiresAt time.Time
}

// MockBackend is an in-memory implementation of Backend and Notifier for
// testing. Errors can be injected per operation to exercise fail-open paths.
// Exported for use in other packages.
type MockBackend struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	subs    map[string][]chan Message

	GetErr     error
	SetErr     error
	DeleteErr  error
	PatternErr error
	PublishErr error

	GetCalls     int
	SetCalls     int
	DeleteCalls  int
	PatternCalls int
	Published    []Message
}

// NewMockBackend creates a new mock cache backend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		entries: make(map[string]mockEntry),
		subs:    make(map[string][]chan Message),
	}
}

func (m *MockBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	entry, exists := m.entries[key]
	if !exists {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	return entry.value, nil
}

func (m *MockBackend) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++

	if m.SetErr != nil {
		return m.SetErr
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = mockEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *MockBackend) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++

	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *MockBackend) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PatternCalls++

	if m.PatternErr != nil {
		return 0, m.PatternErr
	}

	deleted := 0
	for key := range m.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if matched {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockBackend) Publish(ctx context.Context, channel string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}

	msg := Message{Channel: channel, Payload: mockPayloadString(payload)}
	m.Published = append(m.Published, msg)
	for _, sub := range m.subs[channel] {
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

func (m *MockBackend) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Message, 16)
	for _, channel := range channels {
		m.subs[channel] = append(m.subs[channel], ch)
	}
	return ch, nil
}

func (m *MockBackend) Close() error {
	return nil
}

// Len returns the number of live entries
func (m *MockBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Has reports whether a key is currently cached
func (m *MockBackend) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.entries[key]
	return exists
}

func mockPayloadString(payload interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}
