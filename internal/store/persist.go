package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zulandar/scriptyard/internal/models"
)

// ErrNotFound is returned by a Persister when no collection has been saved
// under its key yet.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned by a Persister when the saved value cannot be
// decoded.
var ErrCorrupt = errors.New("corrupt collection")

// Persister loads and saves the whole script collection as one value.
type Persister interface {
	// Load returns the saved collection, or ErrNotFound if none exists.
	Load(ctx context.Context) ([]models.Script, error)

	// Save replaces the saved collection in full.
	Save(ctx context.Context, scripts []models.Script) error

	// Close releases the underlying storage.
	Close() error
}

func encode(scripts []models.Script) ([]byte, error) {
	if scripts == nil {
		scripts = []models.Script{}
	}
	data, err := json.Marshal(scripts)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]models.Script, error) {
	var scripts []models.Script
	if err := json.Unmarshal(data, &scripts); err != nil {
		return nil, fmt.Errorf("decode collection: %w: %v", ErrCorrupt, err)
	}
	return scripts, nil
}

// MemoryPersister keeps the encoded collection in process memory. It is used
// by the memory backend and in tests.
type MemoryPersister struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryPersister returns an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// NewMemoryPersisterWith returns a MemoryPersister pre-loaded with raw data,
// as if it had been saved earlier.
func NewMemoryPersisterWith(data []byte) *MemoryPersister {
	return &MemoryPersister{data: append([]byte(nil), data...)}
}

func (m *MemoryPersister) Load(ctx context.Context) ([]models.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, fmt.Errorf("memory: %w", ErrNotFound)
	}
	return decode(m.data)
}

func (m *MemoryPersister) Save(ctx context.Context, scripts []models.Script) error {
	data, err := encode(scripts)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersister) Close() error { return nil }

// Saves returns how many times Save has succeeded.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns a copy of the last saved value, or nil.
func (m *MemoryPersister) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	return append([]byte(nil), m.data...)
}
