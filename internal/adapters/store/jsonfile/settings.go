package jsonfile

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const settingsFileName = "settings.json"

type SettingsStore struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SettingsRepository = (*SettingsStore)(nil)

func NewSettingsStore(dir string) *SettingsStore {
	path := filepath.Join(dir, settingsFileName)
	return &SettingsStore{path: path, mu: lockForPath(path)}
}

// Path returns the backing file location, for callers that watch the
// file for external edits.
func (s *SettingsStore) Path() string {
	return s.path
}

// Get returns the stored settings merged over the defaults. Unknown
// keys in the file are dropped by the struct decode; a missing or
// corrupt file yields the defaults.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(), nil
}

// Set merges the patch over the current settings and writes the result
// back, returning the complete merged object.
func (s *SettingsStore) Set(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.read().Apply(patch)
	if err := writeJSON(s.path, next); err != nil {
		return domain.Settings{}, err
	}
	return next, nil
}

func (s *SettingsStore) read() domain.Settings {
	settings := domain.DefaultSettings()
	readJSON(s.path, &settings)
	if !settings.InviteMessageType.Valid() {
		settings.InviteMessageType = domain.DefaultSettings().InviteMessageType
	}
	return settings
}
