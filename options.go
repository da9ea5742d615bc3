package opc

import (
	"log/slog"
	"runtime"
)

type readConfig struct {
	limits       Limits
	verifyCRC    bool
	workers      int
	decompressor Decompressor
	logger       *slog.Logger
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{
		limits:    defaultLimits(),
		verifyCRC: true,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.decompressor == nil {
		cfg.decompressor = DefaultDecompressor()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithVerifyCRC controls whether each payload's CRC-32 is checked against
// its central directory record. Enabled by default.
func WithVerifyCRC(v bool) ReadOption {
	return func(c *readConfig) { c.verifyCRC = v }
}

// WithWorkers bounds how many entries are decompressed concurrently.
// Values <= 1 decompress serially.
func WithWorkers(n int) ReadOption {
	return func(c *readConfig) { c.workers = n }
}

// WithDecompressor replaces the compression backend.
func WithDecompressor(d Decompressor) ReadOption {
	return func(c *readConfig) { c.decompressor = d }
}

// WithLogger sets the logger for load diagnostics. If not set, logging is disabled.
func WithLogger(l *slog.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}
