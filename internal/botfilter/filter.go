package botfilter

import (
	"strings"
	"sync"
)

// Filter classifies player names as synthetic ("carpet bots" and similar)
// by prefix/suffix naming convention.
type Filter struct {
	mu       sync.RWMutex
	enabled  bool
	prefixes []string
	suffixes []string
}

func New(enabled bool, prefixes, suffixes []string) *Filter {
	return &Filter{
		enabled:  enabled,
		prefixes: append([]string(nil), prefixes...),
		suffixes: append([]string(nil), suffixes...),
	}
}

// IsBot reports whether name matches any configured bot prefix or suffix.
// Disabled filtering classifies nothing as a bot.
func (f *Filter) IsBot(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.enabled || name == "" {
		return false
	}
	for _, p := range f.prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range f.suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Update swaps the filter configuration. Nil slices keep the current lists.
func (f *Filter) Update(enabled bool, prefixes, suffixes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
	if prefixes != nil {
		f.prefixes = append([]string(nil), prefixes...)
	}
	if suffixes != nil {
		f.suffixes = append([]string(nil), suffixes...)
	}
}
