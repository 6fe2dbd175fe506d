package prefs

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Storage is the key-value store named options persist through. Implemented
// by FileStorage here; anything else (browser storage, redis) fits the same
// contract.
type Storage interface {
	Get(name string) ([]byte, bool, error)
	Set(name string, value []byte) error
}

// Options are the recognized settings for one named preference.
type Options struct {
	Dismissed bool `json:"dismissed"`
}

// Store reads and writes named client preferences, such as dismissal flags
// for one-time hints. Unreadable entries degrade to zero options.
type Store struct {
	logger  *slog.Logger
	storage Storage
}

func New(logger *slog.Logger, storage Storage) *Store {
	return &Store{
		logger:  logger.With("component", "prefs"),
		storage: storage,
	}
}

// Options - returns the options stored under a name; zero options when the
// name is absent or its entry cannot be read.
func (that *Store) Options(name string) Options {
	raw, ok, err := that.storage.Get(name)
	if err != nil {
		that.logger.Warn("failed to read preference", "name", name, "error", err)
		return Options{}
	}

	if !ok {
		return Options{}
	}

	var opts Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		that.logger.Warn("discarding unreadable preference", "name", name, "error", err)
		return Options{}
	}

	return opts
}

// SetOptions - persists the options under a name.
func (that *Store) SetOptions(name string, opts Options) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal preference %s: %w", name, err)
	}

	if err := that.storage.Set(name, raw); err != nil {
		return fmt.Errorf("failed to store preference %s: %w", name, err)
	}

	return nil
}

// Dismiss - marks a named hint as dismissed.
func (that *Store) Dismiss(name string) error {
	opts := that.Options(name)
	opts.Dismissed = true

	return that.SetOptions(name, opts)
}
