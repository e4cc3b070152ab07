// Package configstore wraps the device's hierarchical configuration tree
// with read-modify-write batching and best-effort per-property application.
// Camera models expose different subsets of named properties, so a missing
// property must never abort a larger settings batch.
package configstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
)

// SetResult reports the outcome of a best-effort property write.
type SetResult int

const (
	// Applied means the property existed and accepted the value.
	Applied SetResult = iota
	// Unsupported means the device has no property with that name.
	Unsupported
	// Failed means the property exists but rejected the value.
	Failed
)

func (r SetResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Unsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// Store provides configuration access for one open device session. It is not
// safe for concurrent use; the worker goroutine owns it.
type Store struct {
	dev tether.Device
	log zerolog.Logger
}

func New(dev tether.Device, logger zerolog.Logger) *Store {
	return &Store{dev: dev, log: logger.With().Str("component", "configstore").Logger()}
}

// ReadAll fetches the full configuration tree.
func (s *Store) ReadAll() (*tether.Widget, error) {
	cfg, err := s.dev.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// ReadSubset fetches only the named leaf properties. Lookups that fail are
// logged and omitted from the result, not fatal to the batch, unless the
// device itself is unreachable.
func (s *Store) ReadSubset(names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		w, err := s.dev.GetNamedConfig(name)
		if err != nil {
			if errors.Is(err, tether.ErrNotConnected) {
				return nil, err
			}
			s.log.Debug().Str("property", name).Err(err).Msg("sparse read failed, skipping")
			continue
		}
		out[name] = w.Value
	}
	return out, nil
}

// WriteBatch reads the configuration tree, applies the caller's mutations
// and writes the tree back. When mutate returns an error nothing is written.
func (s *Store) WriteBatch(mutate func(cfg *tether.Widget) error) error {
	cfg, err := s.dev.GetConfig()
	if err != nil {
		return fmt.Errorf("open config for write: %w", err)
	}
	if err := mutate(cfg); err != nil {
		return err
	}
	if err := s.dev.SetConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// TrySetIn applies one named value inside an already-open tree. Missing or
// rejecting properties are logged and reported, never escalated.
func (s *Store) TrySetIn(cfg *tether.Widget, name, value string) SetResult {
	w, ok := cfg.ChildByName(name)
	if !ok {
		s.log.Warn().Str("property", name).Msg("config not supported by camera")
		return Unsupported
	}
	if err := w.SetValue(value); err != nil {
		s.log.Warn().Str("property", name).Str("value", value).Err(err).Msg("config value rejected")
		return Failed
	}
	return Applied
}

// TrySet applies a single named value in its own batch.
func (s *Store) TrySet(name, value string) (SetResult, error) {
	res := Applied
	err := s.WriteBatch(func(cfg *tether.Widget) error {
		res = s.TrySetIn(cfg, name, value)
		return nil
	})
	if err != nil {
		return Failed, err
	}
	return res, nil
}

// Apply writes a settings bundle in one batch, best-effort per property.
// Keys are applied in sorted order so batches are deterministic. Only device
// transport errors are returned.
func (s *Store) Apply(settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	return s.WriteBatch(func(cfg *tether.Widget) error {
		for _, name := range names {
			s.TrySetIn(cfg, name, settings[name])
		}
		return nil
	})
}
