package broadcast

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/obslog"
)

const configFile = "broadcast_config.json"

// DefaultContent is the hourly chime sent when no custom content is set.
func DefaultContent() []minemsg.Component {
	return []minemsg.Component{{
		Text:      "Chime! The time is {time}",
		Color:     "aqua",
		HoverText: "Hourly broadcast",
	}}
}

type configState struct {
	Enabled   bool                           `json:"enabled"`
	Custom    []minemsg.Component            `json:"custom,omitempty"`
	Overrides map[string][]minemsg.Component `json:"overrides,omitempty"`
}

// ConfigStore persists the hourly broadcast settings: the on/off switch, an
// optional custom content replacing the default chime, and per-adapter
// overrides on top of that. Every mutation is written through before
// returning.
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	state  configState
	logger *zap.Logger
}

// OpenConfig loads broadcast settings from dataDir. A missing or corrupt file
// yields the defaults: enabled, no custom content.
func OpenConfig(dataDir string) *ConfigStore {
	s := &ConfigStore{
		path:   filepath.Join(dataDir, configFile),
		state:  configState{Enabled: true},
		logger: obslog.L().Named("broadcast"),
	}
	s.load()
	return s
}

func (s *ConfigStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read broadcast config", zap.Error(err))
		}
		return
	}
	var loaded configState
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logger.Warn("broadcast config corrupt, using defaults", zap.Error(err))
		return
	}
	s.state = loaded
}

func (s *ConfigStore) save() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("create data dir", zap.Error(err))
		return
	}
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		s.logger.Error("encode broadcast config", zap.Error(err))
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		s.logger.Error("write broadcast config", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("replace broadcast config", zap.Error(err))
	}
}

// Enabled reports whether the hourly broadcast is on.
func (s *ConfigStore) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Enabled
}

// Toggle flips the switch and returns the new state.
func (s *ConfigStore) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Enabled = !s.state.Enabled
	s.save()
	return s.state.Enabled
}

// SetCustom replaces the global broadcast content.
func (s *ConfigStore) SetCustom(comps []minemsg.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Custom = append([]minemsg.Component(nil), comps...)
	s.save()
}

// ClearCustom drops the custom content and all overrides, restoring the
// default chime everywhere.
func (s *ConfigStore) ClearCustom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Custom = nil
	s.state.Overrides = nil
	s.save()
}

// SetOverride pins content for one adapter only.
func (s *ConfigStore) SetOverride(adapterID string, comps []minemsg.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Overrides == nil {
		s.state.Overrides = make(map[string][]minemsg.Component)
	}
	s.state.Overrides[adapterID] = append([]minemsg.Component(nil), comps...)
	s.save()
}

// ClearOverride removes an adapter's override.
func (s *ConfigStore) ClearOverride(adapterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Overrides, adapterID)
	s.save()
}

// ContentFor resolves the broadcast content for one adapter: its override,
// then the custom content, then the default chime.
func (s *ConfigStore) ContentFor(adapterID string) []minemsg.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if comps, ok := s.state.Overrides[adapterID]; ok && len(comps) > 0 {
		return append([]minemsg.Component(nil), comps...)
	}
	if len(s.state.Custom) > 0 {
		return append([]minemsg.Component(nil), s.state.Custom...)
	}
	return DefaultContent()
}

// Current returns the effective global content, for operator display.
func (s *ConfigStore) Current() []minemsg.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.state.Custom) > 0 {
		return append([]minemsg.Component(nil), s.state.Custom...)
	}
	return DefaultContent()
}

// HasCustom reports whether a custom global content is set.
func (s *ConfigStore) HasCustom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Custom) > 0
}
