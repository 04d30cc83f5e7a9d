package storage

import (
	"sync"

	"github.com/roulendz/timebank/internal/models"
)

// MemoryStore keeps the encoded blob in memory. Useful for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte

	// FailSave, when set, is returned by Save instead of writing
	FailSave error
	saves    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Load() (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DecodeState(s.data)
}

func (s *MemoryStore) Save(state *models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many successful writes have happened.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Raw returns the last saved blob.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

func (s *MemoryStore) GetConfigPath() string {
	return "memory"
}
