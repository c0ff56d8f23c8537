// Package query implements pattern-based resonance search over a
// grid.Grid: a text pattern is projected to a seed coordinate, candidate
// waves are sampled in parallel across the grid's depth, and scored by
// resonance against a synthetic probe wave built from the seed
// (SPEC_FULL.md §4.8).
package query

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/8b-is/mem8/grid"
	"github.com/8b-is/mem8/identity"
	"github.com/8b-is/mem8/wave"
)

// MaxResults bounds QueryByPattern's output, per the engine-level contract
// (spec.md §6).
const MaxResults = 20

// Result is one scored match: the grid coordinate and wave found there,
// and its resonance score against the query's probe wave.
type Result struct {
	Coord grid.Coord
	Wave  wave.Wave
	Score float64
}

// Engine answers pattern queries against a Grid. It never mutates the
// Grid; every sampling goroutine only calls read methods, honoring the
// Grid's multi-reader contract (spec.md §5).
type Engine struct {
	grid *grid.Grid
}

// New constructs an Engine over g.
func New(g *grid.Grid) *Engine {
	return &Engine{grid: g}
}

// QueryByPattern projects pattern to a seed coordinate via
// identity.Project, fans out z-slab sampling across depthBudget slabs
// using errgroup (bounded by GOMAXPROCS), scores every sampled wave
// against a synthetic probe wave derived from the seed, and returns up
// to MaxResults matches sorted by descending resonance score. The
// returned correlation ID identifies this query for logging/tracing.
func (e *Engine) QueryByPattern(ctx context.Context, pattern string, depthBudget int) ([]Result, string, error) {
	correlationID := uuid.NewString()

	if depthBudget <= 0 {
		depthBudget = 1
	}
	if depthBudget > grid.Depth {
		depthBudget = grid.Depth
	}

	probe := probeWave(pattern)

	slabSize := uint32(grid.Depth / depthBudget)
	if slabSize == 0 {
		slabSize = 1
	}

	slabResults := make([][]Result, depthBudget)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < depthBudget; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			zLow := uint32(i) * slabSize
			zHigh := zLow + slabSize
			if i == depthBudget-1 {
				zHigh = grid.Depth
			}

			samples := e.grid.SampleLayers(zLow, zHigh, 1)
			local := make([]Result, 0, len(samples))
			for _, s := range samples {
				local = append(local, Result{
					Coord: s.Coord,
					Wave:  s.Wave,
					Score: probe.ResonanceWith(s.Wave),
				})
			}

			slabResults[i] = local

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, correlationID, err
	}

	all := make([]Result, 0)
	for _, r := range slabResults {
		all = append(all, r...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	if len(all) > MaxResults {
		all = all[:MaxResults]
	}

	return all, correlationID, nil
}

// probeWave derives a synthetic wave from a pattern's projected seed
// coordinate: the x byte maps to a frequency across the full [0,1000] Hz
// spectrum, the y byte maps to a phase across [-pi, pi]. This is
// deterministic so repeated queries for the same pattern score
// identically.
func probeWave(pattern string) wave.Wave {
	x, y := identity.ProjectString(pattern)

	frequency := float64(x) / 255 * 1000
	phase := (float64(y)/255)*2*math.Pi - math.Pi

	return wave.New(frequency, 1.0).WithPhase(phase)
}
