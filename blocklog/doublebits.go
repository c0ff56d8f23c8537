package blocklog

import "math"

func doubleBits(f float64) uint64   { return math.Float64bits(f) }
func doubleFromBits(b uint64) float64 { return math.Float64frombits(b) }
