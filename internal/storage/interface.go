package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roulendz/timebank/internal/models"
)

// ErrNotInitialized is returned by Load when the backing store was never set up
var ErrNotInitialized = errors.New("storage not initialized, run 'timebank init' first")

// Provider persists the whole application state as one blob. Load returns
// (nil, nil) when nothing has been saved yet.
type Provider interface {
	// Lifecycle
	Init() error
	Close() error

	Load() (*models.State, error)
	Save(*models.State) error

	// Utils
	GetConfigPath() string
}

// EncodeState serializes state in the persisted wire format.
func EncodeState(state *models.State) ([]byte, error) {
	if state == nil {
		return nil, errors.New("cannot encode nil state")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted blob. Empty input decodes to nil.
func DecodeState(data []byte) (*models.State, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return &state, nil
}
