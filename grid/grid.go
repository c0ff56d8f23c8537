// Package grid implements the fixed 256x256x65536 sparse store of waves
// that sits at the center of mem8 (spec.md §3, §4.2).
//
// The Grid is the exclusive owner of every wave.Wave it holds; overwriting
// a cell is the only form of mutation. Access is single-writer,
// multi-reader, guarded by a single sync.RWMutex around the whole sparse
// map (spec.md §5, §9: "one owner struct; readers obtain a borrowed
// snapshot of a cell; writers take an exclusive lock only around the cell
// update").
package grid

import (
	"sync"
	"time"

	"github.com/8b-is/mem8/errs"
	"github.com/8b-is/mem8/wave"
)

// Width, Height, and Depth are the fixed dimensions of the coordinate
// space (spec.md §3): 256 x 256 x 65536, about 4.3 billion cells. The
// backing store is sparse; only written cells occupy memory.
const (
	Width  = 256
	Height = 256
	Depth  = 65536
)

// Coord is a grid coordinate.
type Coord struct {
	X uint8
	Y uint8
	Z uint16
}

// pack folds a Coord into a single uint32 key for the sparse map.
func pack(c Coord) uint32 {
	return uint32(c.X) | uint32(c.Y)<<8 | uint32(c.Z)<<16
}

func unpack(k uint32) Coord {
	return Coord{
		X: uint8(k & 0xFF),
		Y: uint8((k >> 8) & 0xFF),
		Z: uint16(k >> 16),
	}
}

// Grid is the sparse (x,y,z) -> Wave store. The zero value is not usable;
// construct with New.
type Grid struct {
	mu      sync.RWMutex
	cells   map[uint32]wave.Wave
	poisoned bool
}

// New creates an empty Grid.
func New() *Grid {
	return &Grid{cells: make(map[uint32]wave.Wave)}
}

// Store writes w at (x,y,z), overwriting any wave already there. Store is
// idempotent: storing the same value twice has the same observable effect
// as storing it once.
func (g *Grid) Store(c Coord, w wave.Wave) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		return errs.ErrGridPoisoned
	}

	g.cells[pack(c)] = w

	return nil
}

// Get returns the wave stored at (x,y,z), if any.
func (g *Grid) Get(c Coord) (wave.Wave, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.poisoned {
		return wave.Wave{}, false, errs.ErrGridPoisoned
	}

	w, ok := g.cells[pack(c)]

	return w, ok, nil
}

// Poison marks the Grid as poisoned: every subsequent Store and Get fails
// with ErrGridPoisoned until a fresh Grid is constructed. ActiveMemoryCount,
// CellCount, SampleLayers and All do not check the flag and keep returning
// the stored cells.
func (g *Grid) Poison() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.poisoned = true
}

// ActiveMemoryCount returns the number of stored cells whose current
// decay factor is still >= wave.ActiveThreshold, evaluated at time now.
// It is O(cells stored) and is intended as a health metric, not for use
// in hot paths (spec.md §4.2).
func (g *Grid) ActiveMemoryCount(now time.Time) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, w := range g.cells {
		if w.Active(now) {
			count++
		}
	}

	return count
}

// CellCount returns the total number of stored (possibly inactive) cells.
func (g *Grid) CellCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.cells)
}

// Sample is one (coordinate, wave) pair yielded by SampleLayers.
type Sample struct {
	Coord Coord
	Wave  wave.Wave
}

// SampleLayers returns every stored cell whose Z lies in [zLow, zHigh),
// sampling every step'th layer. step must be >= 1. zLow and zHigh are
// uint32 rather than uint16 so that a caller can express the full-depth
// upper bound Depth (65536), one past the largest representable Z value.
// The iteration order is unspecified but stable within a single process
// for a fixed insert sequence (spec.md §4.2).
func (g *Grid) SampleLayers(zLow, zHigh uint32, step uint16) []Sample {
	if step == 0 {
		step = 1
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Sample, 0)
	for k, w := range g.cells {
		c := unpack(k)
		z := uint32(c.Z)
		if z < zLow || z >= zHigh {
			continue
		}
		if (z-zLow)%uint32(step) != 0 {
			continue
		}

		out = append(out, Sample{Coord: c, Wave: w})
	}

	return out
}

// EncodeCoordID packs a Coord into a single uint64, suitable for use as a
// CompressedWave record's id field when persisting a whole Grid (see the
// engine package's .m8 export/import).
func EncodeCoordID(c Coord) uint64 {
	return uint64(pack(c))
}

// DecodeCoordID is the inverse of EncodeCoordID.
func DecodeCoordID(id uint64) Coord {
	return unpack(uint32(id))
}

// All returns every stored (coordinate, wave) pair. Like SampleLayers,
// iteration order is unspecified.
func (g *Grid) All() []Sample {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Sample, 0, len(g.cells))
	for k, w := range g.cells {
		out = append(out, Sample{Coord: unpack(k), Wave: w})
	}

	return out
}
