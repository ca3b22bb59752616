package config

import "sync/atomic"

// Store publishes configuration snapshots. Readers always see a complete,
// validated Config; writers replace it as a whole.
type Store struct {
	cur atomic.Pointer[Config]
}

func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	s := &Store{}
	s.cur.Store(cfg)
	return s
}

// Snapshot returns the current configuration. Callers must not mutate it.
func (s *Store) Snapshot() *Config {
	return s.cur.Load()
}

// Set replaces the current configuration.
func (s *Store) Set(cfg *Config) {
	s.cur.Store(cfg)
}

// Update applies fn to a copy of the current configuration and publishes
// the copy when fn and validation both succeed.
func (s *Store) Update(fn func(*Config) error) (*Config, error) {
	for {
		old := s.cur.Load()
		next := old.Clone()
		if err := fn(next); err != nil {
			return old, err
		}
		if err := next.Validate(); err != nil {
			return old, err
		}
		if s.cur.CompareAndSwap(old, next) {
			return next, nil
		}
	}
}
