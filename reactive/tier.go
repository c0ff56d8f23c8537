// Package reactive implements the four-tier latency-ordered sensor-to-
// response pipeline (spec.md §4.6): each tier owns a disjoint wall-clock
// window and a bypass threshold; process walks the tiers in order and
// returns as soon as a tier's response strength clears its bypass cutoff.
package reactive

import (
	"math"
	"time"
)

// Tier is one of the four ordered response latency tiers.
type Tier int

const (
	HardwareReflex Tier = iota
	SubcorticalReaction
	EmotionalResponse
	ConsciousDeliberation
)

func (t Tier) String() string {
	switch t {
	case HardwareReflex:
		return "HardwareReflex"
	case SubcorticalReaction:
		return "SubcorticalReaction"
	case EmotionalResponse:
		return "EmotionalResponse"
	case ConsciousDeliberation:
		return "ConsciousDeliberation"
	default:
		return "Unknown"
	}
}

// orderedTiers is the fixed evaluation order process walks.
var orderedTiers = []Tier{HardwareReflex, SubcorticalReaction, EmotionalResponse, ConsciousDeliberation}

// Window returns the closed [low, high] wall-clock window in which this
// tier is eligible to fire.
func (t Tier) Window() (low, high time.Duration) {
	switch t {
	case HardwareReflex:
		return 0, 10 * time.Millisecond
	case SubcorticalReaction:
		return 10 * time.Millisecond, 50 * time.Millisecond
	case EmotionalResponse:
		return 50 * time.Millisecond, 200 * time.Millisecond
	default: // ConsciousDeliberation: no upper bound.
		return 200 * time.Millisecond, time.Duration(math.MaxInt64)
	}
}

// Bypasses reports whether a response of the given strength at this tier
// should return immediately rather than falling through to later tiers.
// ConsciousDeliberation is terminal: any response it produces is always
// final, regardless of strength.
func (t Tier) Bypasses(strength float64) bool {
	switch t {
	case HardwareReflex:
		return strength > 0.9
	case SubcorticalReaction:
		return strength > 0.8
	case EmotionalResponse:
		return strength > 0.7
	default:
		return true
	}
}

// bypassK is the decay constant in the bypass-probability analytics model.
const bypassK = 2.0

// BypassProbability is the analytics-only estimate of how likely a
// response at this tier would have bypassed later tiers for a given
// threat level. It does not influence Process's control flow (spec.md
// §4.6).
func BypassProbability(t Tier, threat float64) float64 {
	tierIndex := float64(t)
	return 1 - math.Exp(-bypassK*(3-tierIndex)*threat)
}
