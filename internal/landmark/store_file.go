package landmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileStore keeps one JSON file per adapter under dataDir. It is the fallback
// when no Redis endpoint is configured.
type fileStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewFileStore(dataDir string) Store { return &fileStore{dataDir: dataDir} }

func (s *fileStore) path(adapterID string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("landmark_%s.json", adapterID))
}

func (s *fileStore) load(adapterID string) (map[string]Landmark, error) {
	raw, err := os.ReadFile(s.path(adapterID))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Landmark), nil
		}
		return nil, err
	}
	out := make(map[string]Landmark)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileStore) save(adapterID string, table map[string]Landmark) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(adapterID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) All(_ context.Context, adapterID string) (map[string]Landmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(adapterID)
}

func (s *fileStore) Get(_ context.Context, adapterID, name string) (Landmark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load(adapterID)
	if err != nil {
		return Landmark{}, false, err
	}
	lm, ok := table[name]
	return lm, ok, nil
}

func (s *fileStore) Put(_ context.Context, adapterID, name string, lm Landmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load(adapterID)
	if err != nil {
		return err
	}
	table[name] = lm
	return s.save(adapterID, table)
}

func (s *fileStore) Delete(_ context.Context, adapterID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load(adapterID)
	if err != nil {
		return false, err
	}
	if _, ok := table[name]; !ok {
		return false, nil
	}
	delete(table, name)
	return true, s.save(adapterID, table)
}
