package binding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

const bindingsFile = "group_bindings.json"

// Store is the persisted many-to-many association between chat groups and
// game-server identities. Every mutation rewrites the table atomically before
// returning; a missing or corrupt file loads as an empty table.
type Store struct {
	mu       sync.RWMutex
	path     string
	bindings map[string][]string // server name → group ids
	logger   *zap.Logger
}

// Open loads the binding table from dataDir, creating the directory if needed.
func Open(dataDir string) *Store {
	s := &Store{
		path:     filepath.Join(dataDir, bindingsFile),
		bindings: make(map[string][]string),
		logger:   obslog.L().Named("binding"),
	}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read bindings file", zap.Error(err))
		}
		return
	}
	loaded := make(map[string][]string)
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logger.Warn("bindings file corrupt, starting empty", zap.Error(err))
		return
	}
	s.bindings = loaded
	s.logger.Info("bindings loaded", zap.Int("servers", len(loaded)))
}

// save writes the full table via temp file + rename. Failures are logged and
// do not roll back the in-memory mutation.
func (s *Store) save() {
	if err := s.saveErr(); err != nil {
		s.logger.Error("save bindings", zap.Error(err))
	}
}

func (s *Store) saveErr() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.bindings, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Bind associates a chat group with a server. Returns false when the pair was
// already bound; the call is idempotent.
func (s *Store) Bind(groupID, serverName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.bindings[serverName] {
		if g == groupID {
			return false
		}
	}
	s.bindings[serverName] = append(s.bindings[serverName], groupID)
	s.save()
	return true
}

// Unbind removes the association. Returns false when the pair was not bound.
func (s *Store) Unbind(groupID, serverName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := s.bindings[serverName]
	for i, g := range groups {
		if g == groupID {
			s.bindings[serverName] = append(groups[:i], groups[i+1:]...)
			if len(s.bindings[serverName]) == 0 {
				delete(s.bindings, serverName)
			}
			s.save()
			return true
		}
	}
	return false
}

// IsBound reports whether the pair exists.
func (s *Store) IsBound(groupID, serverName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.bindings[serverName] {
		if g == groupID {
			return true
		}
	}
	return false
}

// BoundGroups returns a copy of the group ids bound to serverName.
func (s *Store) BoundGroups(serverName string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.bindings[serverName]...)
}

// All returns a copy of the full table.
func (s *Store) All() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.bindings))
	for k, v := range s.bindings {
		out[k] = append([]string(nil), v...)
	}
	return out
}
