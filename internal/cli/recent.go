package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fieldtech/internal/lifecycle"
)

type recentFile struct {
	Tickets []string `yaml:"tickets"`
}

// RecentStore persists the recently opened tickets between runs. An empty
// path keeps the list in memory only.
type RecentStore struct {
	path    string
	tickets *lifecycle.RecentTickets
}

func OpenRecentStore(path string) (*RecentStore, error) {
	store := &RecentStore{path: path, tickets: lifecycle.NewRecentTickets(nil)}
	if path == "" {
		return store, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read recent tickets: %w", err)
	}

	var file recentFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse recent tickets: %w", err)
	}
	store.tickets = lifecycle.NewRecentTickets(file.Tickets)
	return store, nil
}

func (s *RecentStore) Add(id string) error {
	s.tickets.Add(id)
	return s.save()
}

func (s *RecentStore) List() []string {
	return s.tickets.List()
}

func (s *RecentStore) save() error {
	if s.path == "" {
		return nil
	}
	raw, err := yaml.Marshal(recentFile{Tickets: s.tickets.List()})
	if err != nil {
		return fmt.Errorf("encode recent tickets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write recent tickets: %w", err)
	}
	return nil
}
