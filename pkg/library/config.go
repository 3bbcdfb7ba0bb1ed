package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/hidkit/hid"
)

// Layout sizes one category's slot table.
type Layout struct {
	Buckets  int    `yaml:"buckets" json:"buckets"`
	Reserved uint32 `yaml:"reserved" json:"reserved"`
}

// Config controls a Library.
type Config struct {
	// IndexLimit caps the slot index space of every category (see hid.Config).
	IndexLimit uint32

	// ShutdownRounds bounds the teardown loop. Zero means shutdown.DefaultMaxRounds.
	ShutdownRounds int

	// Layouts sizes each category on first use. Categories without an entry
	// use DefaultBuckets and no reserved range.
	Layouts map[hid.Category]Layout

	// Logger receives registry and shutdown diagnostics. Nil uses the
	// process logger (internal/logger.L).
	Logger *slog.Logger
}

// DefaultBuckets is the table size for every category unless configured otherwise.
const DefaultBuckets = 64

// Reserved ranges for predefined constant handles.
const (
	DatatypeReserved  = 8
	DataspaceReserved = 2
)

// DefaultLayouts returns the built-in per-category layout.
func DefaultLayouts() map[hid.Category]Layout {
	out := make(map[hid.Category]Layout, hid.NumCategories)
	for _, c := range hid.Categories() {
		out[c] = Layout{Buckets: DefaultBuckets}
	}
	out[hid.Datatype] = Layout{Buckets: DefaultBuckets, Reserved: DatatypeReserved}
	out[hid.Dataspace] = Layout{Buckets: DefaultBuckets, Reserved: DataspaceReserved}
	return out
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		IndexLimit: hid.MaxIndex,
		Layouts:    DefaultLayouts(),
	}
}

// Layout returns the layout for cat, falling back to DefaultBuckets.
func (c Config) Layout(cat hid.Category) Layout {
	l, ok := c.Layouts[cat]
	if !ok || l.Buckets == 0 {
		l.Buckets = DefaultBuckets
	}
	return l
}

// fileConfig is the on-disk shape, in YAML:
//
//	index_limit: 1023
//	shutdown_rounds: 10
//	categories:
//	  dataset:
//	    buckets: 256
//	  datatype:
//	    reserved: 16
//
// or the same keys in TOML, with one [categories.<name>] table per category.
type fileConfig struct {
	IndexLimit     uint32                `yaml:"index_limit" toml:"index_limit"`
	ShutdownRounds int                   `yaml:"shutdown_rounds" toml:"shutdown_rounds"`
	Categories     map[string]fileLayout `yaml:"categories" toml:"categories"`
}

type fileLayout struct {
	Buckets  int     `yaml:"buckets" toml:"buckets"`
	Reserved *uint32 `yaml:"reserved" toml:"reserved"`
}

// ParseConfig overlays YAML settings onto DefaultConfig. Bucket counts are
// validated here so a bad file fails before any category is opened.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("library: parse config: %w", err)
	}
	return fc.apply()
}

// ParseTOMLConfig is ParseConfig for TOML input.
func ParseTOMLConfig(data []byte) (Config, error) {
	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return Config{}, fmt.Errorf("library: parse config: %w", err)
	}
	return fc.apply()
}

func (fc fileConfig) apply() (Config, error) {
	cfg := DefaultConfig()
	if fc.IndexLimit != 0 {
		if fc.IndexLimit > hid.MaxIndex {
			return Config{}, fmt.Errorf("library: index_limit %d exceeds %d", fc.IndexLimit, hid.MaxIndex)
		}
		cfg.IndexLimit = fc.IndexLimit
	}
	if fc.ShutdownRounds < 0 {
		return Config{}, fmt.Errorf("library: shutdown_rounds must not be negative")
	}
	cfg.ShutdownRounds = fc.ShutdownRounds

	for name, fl := range fc.Categories {
		cat, err := hid.ParseCategory(name)
		if err != nil {
			return Config{}, fmt.Errorf("library: categories: %w", err)
		}
		l := cfg.Layout(cat)
		if fl.Buckets != 0 {
			if fl.Buckets < 2 || fl.Buckets&(fl.Buckets-1) != 0 {
				return Config{}, fmt.Errorf("library: categories.%s: %w: %d", cat, hid.ErrInvalidBucketCount, fl.Buckets)
			}
			l.Buckets = fl.Buckets
		}
		if fl.Reserved != nil {
			if *fl.Reserved > cfg.IndexLimit {
				return Config{}, fmt.Errorf("library: categories.%s: %w", cat, hid.ErrInvalidReserved)
			}
			l.Reserved = *fl.Reserved
		}
		cfg.Layouts[cat] = l
	}
	return cfg, nil
}

// LoadConfig reads a config file: TOML if the name ends in .toml, YAML
// otherwise. An empty path returns DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("library: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOMLConfig(data)
	}
	return ParseConfig(data)
}
