package store

import "log/slog"

// Config holds configuration for the Store.
type Config struct {
	// Logger receives debug output for rebuilds, cascades and reparents,
	// and warnings when an ancestor walk is cut short.
	// Default: slog.Default()
	Logger *slog.Logger

	// MaxDepth caps the depth of an ancestor chain walk in levels: a chain
	// holds at most MaxDepth+1 records, the record itself included.
	// Cycles are always cut by a visited set; MaxDepth additionally caps
	// pathological but acyclic inputs.
	// Default: 0 (unbounded)
	MaxDepth int

	// CompactThreshold is the number of removed slots tolerated in the
	// canonical sequence before it is compacted.
	// Default: 64 (also used for values below 1)
	CompactThreshold int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:           slog.Default(),
		MaxDepth:         0,
		CompactThreshold: 64,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	if c.CompactThreshold < 1 {
		c.CompactThreshold = 64
	}
}
