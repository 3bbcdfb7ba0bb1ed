package hid

import (
	"io"
	"log/slog"
)

// Config controls registry-wide behavior.
type Config struct {
	// Logger receives diagnostics: category open/close at debug level and
	// forced-clear release failures at warn level. Nil discards everything.
	Logger *slog.Logger

	// IndexLimit caps the largest slot index minted in every category.
	// Zero (or anything above MaxIndex) means MaxIndex. Small limits make
	// wraparound reachable in tests and load generators.
	IndexLimit uint32
}

// DefaultConfig returns a Config with the full index space and no logging.
func DefaultConfig() Config {
	return Config{IndexLimit: MaxIndex}
}

func (c Config) limit() uint32 {
	if c.IndexLimit == 0 || c.IndexLimit > MaxIndex {
		return MaxIndex
	}
	return c.IndexLimit
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}
