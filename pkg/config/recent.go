package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Recent holds the parameters of the last interactive run, offered as
// defaults the next time routeshot asks.
type Recent struct {
	ProjectDir string `json:"project_dir"`
	BaseURL    string `json:"base_url"`
	OutputDir  string `json:"output_dir"`
}

// RecentStore persists Recent as JSON.
type RecentStore struct {
	path   string
	recent Recent
	mu     sync.RWMutex
}

// NewRecentStore opens the store at path. If path is empty, defaults to
// ~/.routeshot/recent.json. A missing file yields an empty store.
func NewRecentStore(path string) (*RecentStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".routeshot", "recent.json")
	}

	store := &RecentStore{path: path}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load recent parameters from %s: %w", path, err)
	}
	return store, nil
}

// Path returns the backing file.
func (s *RecentStore) Path() string {
	return s.path
}

// Load reads the store from disk.
func (s *RecentStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.recent = Recent{}
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var recent Recent
	if err := json.Unmarshal(data, &recent); err != nil {
		return fmt.Errorf("failed to decode file: %w", err)
	}
	s.recent = recent
	return nil
}

// Get returns the stored parameters.
func (s *RecentStore) Get() Recent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recent
}

// Save replaces the stored parameters and writes them atomically.
func (s *RecentStore) Save(recent Recent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(recent, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recent parameters: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.recent = recent
	return nil
}

// Fill sets the empty fields of cfg from the stored parameters.
func (s *RecentStore) Fill(cfg *Config) {
	recent := s.Get()
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = recent.ProjectDir
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = recent.BaseURL
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = recent.OutputDir
	}
}
