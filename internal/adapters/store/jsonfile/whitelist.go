package jsonfile

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const whitelistFileName = "whitelist.json"

type WhitelistStore struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.WhitelistRepository = (*WhitelistStore)(nil)

func NewWhitelistStore(dir string) *WhitelistStore {
	path := filepath.Join(dir, whitelistFileName)
	return &WhitelistStore{path: path, mu: lockForPath(path)}
}

func (s *WhitelistStore) Get(ctx context.Context) (domain.Whitelist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []string
	readJSON(s.path, &list)
	return domain.Whitelist(list), nil
}

func (s *WhitelistStore) Set(ctx context.Context, list domain.Whitelist) (domain.Whitelist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if list == nil {
		list = domain.Whitelist{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.path, []string(list)); err != nil {
		return nil, err
	}
	return list, nil
}
