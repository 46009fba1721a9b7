// README: Session credential storage shared by the channel and the REST executor.
package credstore

import (
	"context"
	"errors"
	"sync"
)

const KeySessionToken = "session_token"

var ErrAbsent = errors.New("credential absent")

// Store reads session credentials. The token is written by whatever logs the
// worker in; this process only consumes it.
type Store interface {
	Read(ctx context.Context, key string) (string, error)
}

// Memory is an in-process store for tests and single-binary setups.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *Memory) Read(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrAbsent
	}
	return v, nil
}
