// Package config holds the decoding-session settings for acoustic scoring.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ieee0824/acscore/internal/mathutil"
	"gopkg.in/yaml.v3"
)

// CacheMode selects the granularity of the output-probability cache.
type CacheMode int

const (
	// StateCache caches whole-state log-probabilities per frame block.
	StateCache CacheMode = iota
	// MixtureCache caches per-mixture log-probabilities, as needed for
	// systems whose states share mixture pdfs directly. Not implemented:
	// the cache rejects it at construction.
	MixtureCache
)

func (m CacheMode) String() string {
	switch m {
	case StateCache:
		return "state"
	case MixtureCache:
		return "mixture"
	}
	return fmt.Sprintf("CacheMode(%d)", int(m))
}

// ParseCacheMode maps a mode name to its CacheMode.
func ParseCacheMode(s string) (CacheMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "state":
		return StateCache, nil
	case "mixture", "mix":
		return MixtureCache, nil
	}
	return 0, fmt.Errorf("unknown cache mode %q", s)
}

// MarshalYAML writes the mode by name.
func (m CacheMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML reads the mode by name.
func (m *CacheMode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseCacheMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Config holds acoustic scoring parameters for one decoding session.
type Config struct {
	BlockSize       int       `yaml:"block_size"`         // frames precomputed per cache refill
	AcScale         float64   `yaml:"ac_scale"`           // linear acoustic weight
	UseAdapted      bool      `yaml:"use_adapted"`        // score through feature-space transforms
	PDE             bool      `yaml:"pde"`                // partial distance elimination (adapted path only)
	PDEBlocks       int       `yaml:"pde_blocks"`         // distance segments checked by PDE
	MinMixLogWeight float64   `yaml:"min_mix_log_weight"` // components at or below are skipped
	CacheMode       CacheMode `yaml:"cache_mode"`
	LogLevel        string    `yaml:"log_level"`
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		BlockSize:       10,
		AcScale:         1.0,
		PDEBlocks:       3,
		MinMixLogWeight: mathutil.LMinMix,
		CacheMode:       StateCache,
		LogLevel:        "info",
	}
}

// Load reads a YAML config file. Keys missing from the file keep their
// DefaultConfig values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if c.BlockSize < 1 {
		return fmt.Errorf("config: block_size must be >= 1, got %d", c.BlockSize)
	}
	if !(c.AcScale > 0) {
		return fmt.Errorf("config: ac_scale must be > 0, got %g", c.AcScale)
	}
	if c.PDEBlocks < 1 {
		return fmt.Errorf("config: pde_blocks must be >= 1, got %d", c.PDEBlocks)
	}
	if c.PDE && !c.UseAdapted {
		return fmt.Errorf("config: pde requires use_adapted")
	}
	if c.MinMixLogWeight > 0 {
		return fmt.Errorf("config: min_mix_log_weight must be a log value <= 0, got %g", c.MinMixLogWeight)
	}
	if c.CacheMode != StateCache && c.CacheMode != MixtureCache {
		return fmt.Errorf("config: unknown cache mode %d", int(c.CacheMode))
	}
	return nil
}
