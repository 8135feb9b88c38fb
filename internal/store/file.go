package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps players in memory and persists them to players.json.
type FileStore struct {
	mu      sync.RWMutex
	players map[string]*Player
	dataDir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads dataDir/players.json if present. An unreadable or corrupt
// file is an error rather than an empty store.
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &FileStore{
		players: make(map[string]*Player),
		dataDir: dataDir,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, "players.json")
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var list []*Player
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("%s: %w", s.path(), err)
	}
	for _, p := range list {
		if p != nil && p.ID != "" {
			s.players[p.ID] = p
		}
	}
	return nil
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *FileStore) saveLocked() error {
	list := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

func (s *FileStore) Get(_ context.Context, id string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

func (s *FileStore) Put(_ context.Context, p *Player) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("put: player id is required")
	}
	c := p.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[c.ID] = c
	return s.saveLocked()
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.players, id)
	return s.saveLocked()
}

func (s *FileStore) Close() error { return nil }
