// Package engine wires the Grid, reactive pipeline, block log, and query
// engine into the single assembled component external callers depend on
// (spec.md §6 "EXTERNAL INTERFACES"). It is the only package in this
// module that constructs a logger; every package it wires stays
// logging-free, the way an application wires a library (SPEC_FULL.md
// §6.1).
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/8b-is/mem8/format"
	"github.com/8b-is/mem8/internal/options"
	"github.com/8b-is/mem8/reactive"
)

// Config is the plain struct an Engine is constructed from (REDESIGN
// FLAGS / spec.md §9: "inject a CoreConfig at construction; forbid hidden
// global state"). Construct it with Option values via Open, or fill it
// directly.
type Config struct {
	// BlockLogPath is the file backing the Engine's append-only block
	// log. Open creates it if absent, or reopens it if present.
	BlockLogPath string

	// IdentityFreq and TemporalPhase seed a freshly created block log's
	// header (blocklog.Header); ignored when reopening an existing log.
	IdentityFreq  float64
	TemporalPhase float64

	// Keywords and KeywordBoost configure the block log's per-append
	// importance boosting (blocklog.WithKeywords/WithKeywordBoost).
	Keywords     []string
	KeywordBoost float64

	// CompressionAlgo selects the codec ExportM8 applies to eligible .m8
	// sections. The zero value is format.CompressionNone.
	CompressionAlgo format.CompressionType

	// ReactiveClock overrides the reactive pipeline's time source; nil
	// means time.Now.
	ReactiveClock func() time.Time

	// Logger receives structured diagnostics (block log fsync failures,
	// .m8 CRC mismatches, reactive tier bypass decisions). A nil Logger
	// is replaced with zap.NewNop() so callers never need a nil check.
	Logger *zap.Logger
}

// Option configures a Config at construction time. It is built on the
// generic functional-option machinery in internal/options, the same way
// the teacher builds its encoder/decoder options.
type Option = options.Option[*Config]

// WithBlockLogPath sets the file path backing the Engine's block log.
func WithBlockLogPath(path string) Option {
	return options.NoError(func(c *Config) { c.BlockLogPath = path })
}

// WithIdentitySeed sets the identity frequency and temporal phase a
// freshly created block log's header is stamped with.
func WithIdentitySeed(identityFreq, temporalPhase float64) Option {
	return options.NoError(func(c *Config) {
		c.IdentityFreq = identityFreq
		c.TemporalPhase = temporalPhase
	})
}

// WithKeywords sets the user-context keyword set tracked for block log
// importance boosting.
func WithKeywords(keywords ...string) Option {
	return options.NoError(func(c *Config) { c.Keywords = append(c.Keywords, keywords...) })
}

// WithKeywordBoost overrides the per-keyword importance boost.
func WithKeywordBoost(boost float64) Option {
	return options.NoError(func(c *Config) { c.KeywordBoost = boost })
}

// WithCompression selects the codec ExportM8 applies to eligible
// sections.
func WithCompression(algo format.CompressionType) Option {
	return options.NoError(func(c *Config) { c.CompressionAlgo = algo })
}

// WithReactiveClock overrides the reactive pipeline's time source, for
// deterministic tests.
func WithReactiveClock(clock func() time.Time) Option {
	return options.NoError(func(c *Config) { c.ReactiveClock = clock })
}

// WithLogger sets the structured logger the Engine diagnoses through.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Config) { c.Logger = logger })
}

func (c *Config) reactiveOptions() []reactive.Option {
	if c.ReactiveClock == nil {
		return nil
	}

	return []reactive.Option{reactive.WithClock(c.ReactiveClock)}
}
