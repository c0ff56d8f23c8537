package engine

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/8b-is/mem8/blocklog"
	"github.com/8b-is/mem8/grid"
	"github.com/8b-is/mem8/identity"
	"github.com/8b-is/mem8/internal/options"
	"github.com/8b-is/mem8/query"
	"github.com/8b-is/mem8/reactive"
	"github.com/8b-is/mem8/wave"
)

// Engine is the assembled mem8 component: a Grid, a reactive pipeline, a
// block log, and a query engine over the Grid. Construct one with Open.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	grid     *grid.Grid
	reactive *reactive.Pipeline
	query    *query.Engine
	log      *blocklog.Log
}

// Open assembles an Engine: an empty Grid, an empty reactive pipeline
// (register patterns with RegisterReactivePattern before serving
// traffic), and a block log at cfg.BlockLogPath — created fresh if the
// path does not yet exist, reopened (continuing its hash chain) if it
// does.
func Open(cfg Config, opts ...Option) (*Engine, error) {
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logOpts := make([]blocklog.Option, 0, 2)
	if len(cfg.Keywords) > 0 {
		logOpts = append(logOpts, blocklog.WithKeywords(cfg.Keywords...))
	}
	if cfg.KeywordBoost != 0 {
		logOpts = append(logOpts, blocklog.WithKeywordBoost(cfg.KeywordBoost))
	}

	log, err := openOrCreateLog(cfg, logOpts)
	if err != nil {
		cfg.Logger.Error("block log open failed", zap.String("path", cfg.BlockLogPath), zap.Error(err))
		return nil, err
	}

	g := grid.New()

	return &Engine{
		cfg:      cfg,
		logger:   cfg.Logger,
		grid:     g,
		reactive: reactive.New(cfg.reactiveOptions()...),
		query:    query.New(g),
		log:      log,
	}, nil
}

func openOrCreateLog(cfg Config, opts []blocklog.Option) (*blocklog.Log, error) {
	if _, err := os.Stat(cfg.BlockLogPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return blocklog.Create(cfg.BlockLogPath, cfg.IdentityFreq, cfg.TemporalPhase, opts...)
		}

		return nil, err
	}

	return blocklog.Open(cfg.BlockLogPath, opts...)
}

// Close closes the Engine's block log file handle.
func (e *Engine) Close() error {
	return e.log.Close()
}

// RegisterReactivePattern adds pat to tier's pattern set on the Engine's
// reactive pipeline. Intended to be called at startup, before concurrent
// ReactiveProcess calls begin (reactive.Pipeline.Register's contract).
func (e *Engine) RegisterReactivePattern(tier reactive.Tier, pat reactive.Pattern) {
	e.reactive.Register(tier, pat)
}

// StoreEntity projects identityBytes onto an (x, y) grid coordinate,
// pins the resulting Wave's frequency within contentClass's band at the
// given importance, and stores it at (x, y, z) with the given emotional
// context and decay time constant (spec.md §6 store_entity).
func (e *Engine) StoreEntity(identityBytes []byte, z uint16, contentClass wave.ContentClass, importance float64, age time.Duration, emotion wave.Emotion) error {
	x, y := identity.Project(identityBytes)
	frequency := contentClass.Band().Frequency(importance)

	w := wave.New(frequency, importance).
		WithEmotion(emotion.Valence, emotion.Arousal).
		WithDecay(age)

	coord := grid.Coord{X: x, Y: y, Z: z}
	if err := e.grid.Store(coord, w); err != nil {
		e.logger.Error("store_entity failed",
			zap.Uint8("x", x), zap.Uint8("y", y), zap.Uint16("z", z), zap.Error(err))

		return err
	}

	e.logger.Debug("store_entity",
		zap.Uint8("x", x), zap.Uint8("y", y), zap.Uint16("z", z),
		zap.Float64("frequency", frequency), zap.String("band", contentClass.Band().String()))

	return nil
}

// QueryByPattern delegates to the query.Engine over the Engine's Grid
// (spec.md §6 query_by_pattern), logging failures with their
// correlation ID for tracing.
func (e *Engine) QueryByPattern(ctx context.Context, pattern string, depthBudget int) ([]query.Result, string, error) {
	results, correlationID, err := e.query.QueryByPattern(ctx, pattern, depthBudget)
	if err != nil {
		e.logger.Error("query_by_pattern failed",
			zap.String("correlation_id", correlationID), zap.String("pattern", pattern), zap.Error(err))
	}

	return results, correlationID, err
}

// ReactiveProcess delegates to the Engine's reactive pipeline (spec.md §6
// reactive_process), logging the bypassing tier and pattern when one
// fires.
func (e *Engine) ReactiveProcess(input reactive.Input) (reactive.Response, bool) {
	resp, ok := e.reactive.Process(input)
	if ok {
		e.logger.Info("reactive tier bypass",
			zap.String("tier", resp.Tier.String()), zap.String("pattern", resp.PatternID), zap.Float64("strength", resp.Strength))
	}

	return resp, ok
}

// LogAppend appends content to the Engine's block log with the given
// base importance and caller-assigned token id (spec.md §6 log_append).
func (e *Engine) LogAppend(content []byte, importance float64, tokenID uint16) error {
	if err := e.log.Append(content, importance, tokenID); err != nil {
		e.logger.Error("block log append failed", zap.Error(err))
		return err
	}

	return nil
}

// LogReadBackwards opens an independent reader over the Engine's block
// log and returns every block newest-first (spec.md §6
// log_read_backwards).
func (e *Engine) LogReadBackwards() ([]blocklog.Block, error) {
	r, err := blocklog.OpenReader(e.cfg.BlockLogPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.ReadBackwards()
}

// LogReadByImportance opens an independent reader over the Engine's
// block log and returns its importance-ranked, keyword-matched blocks
// (spec.md §6 log_read_by_importance).
func (e *Engine) LogReadByImportance(keywords []string) ([]blocklog.Block, error) {
	r, err := blocklog.OpenReader(e.cfg.BlockLogPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.ReadByImportance(keywords)
}
