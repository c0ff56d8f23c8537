// Package wave implements the damped-oscillator memory event at the heart
// of mem8: a Wave combines a frequency, amplitude, phase, and a pair of
// emotional scalars (valence, arousal), and decays exponentially toward
// zero once a decay time constant is set.
//
// Waves are immutable after construction; "updating" a memory means
// constructing a new Wave and storing it at the same grid coordinate.
package wave

import (
	"math"
	"time"
)

// ActiveThreshold is the effective-amplitude floor below which a Wave is
// considered inactive (spec.md §3).
const ActiveThreshold = 0.01

// ContentClass pins a Wave to a FrequencyBand. Values mirror the original
// mem8 format's content classification (src/mem8/format.rs ContentType).
type ContentClass uint8

const (
	ContentCode ContentClass = iota
	ContentDocumentation
	ContentConfiguration
	ContentData
	ContentMedia
)

// Band returns the FrequencyBand a content class is pinned to.
func (c ContentClass) Band() FrequencyBand {
	switch c {
	case ContentCode:
		return BandImplementation
	case ContentDocumentation:
		return BandConversational
	case ContentConfiguration:
		return BandDeepStructural
	case ContentData:
		return BandTechnical
	case ContentMedia:
		return BandAbstract
	default:
		return BandConversational
	}
}

func (c ContentClass) String() string {
	switch c {
	case ContentCode:
		return "Code"
	case ContentDocumentation:
		return "Documentation"
	case ContentConfiguration:
		return "Configuration"
	case ContentData:
		return "Data"
	case ContentMedia:
		return "Media"
	default:
		return "Unknown"
	}
}

// FrequencyBand is one of five disjoint 200Hz slices of [0, 1000) Hz.
type FrequencyBand int

const (
	BandDeepStructural FrequencyBand = iota
	BandConversational
	BandTechnical
	BandImplementation
	BandAbstract
)

// bandWidth is the width, in Hz, of every FrequencyBand.
const bandWidth = 200.0

// Low returns the lower bound, in Hz, of the band.
func (b FrequencyBand) Low() float64 {
	return float64(b) * bandWidth
}

// Frequency maps a parameter p in [0,1] to a frequency within the band.
func (b FrequencyBand) Frequency(p float64) float64 {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}

	return b.Low() + p*bandWidth
}

func (b FrequencyBand) String() string {
	switch b {
	case BandDeepStructural:
		return "DeepStructural"
	case BandConversational:
		return "Conversational"
	case BandTechnical:
		return "Technical"
	case BandImplementation:
		return "Implementation"
	case BandAbstract:
		return "Abstract"
	default:
		return "Unknown"
	}
}

// NeutralEmotion is the default emotional context applied when a caller
// supplies none. The original mem8 source does not default to an
// all-zero emotional state; it biases arousal slightly positive so a
// freshly stored memory reads as "calmly alert" rather than "flat".
var NeutralEmotion = Emotion{Valence: 0, Arousal: 0.3}

// Emotion is the pair of emotional scalars carried by every Wave.
type Emotion struct {
	// Valence is in [-1, 1]; negative is unpleasant, positive is pleasant.
	Valence float64
	// Arousal is in [0, 1]; 0 is calm, 1 is highly activated.
	Arousal float64
}

// Wave is one damped sinusoidal memory event. All fields are immutable
// once a Wave is constructed.
type Wave struct {
	Frequency float64 // Hz, > 0
	Amplitude float64 // >= 0, typically <= 16
	Phase     float64 // radians, wrapped to [-pi, pi]
	Emotion   Emotion

	CreatedAt time.Time

	// DecayTau is the exponential decay time constant. A zero value means
	// "absent" — the Wave never decays.
	DecayTau time.Duration
}

// New constructs a Wave with the given frequency and amplitude, zero
// phase, neutral emotion, created now, and no decay.
func New(frequency, amplitude float64) Wave {
	return Wave{
		Frequency: frequency,
		Amplitude: normalizeAmplitude(amplitude),
		Phase:     0,
		Emotion:   NeutralEmotion,
		CreatedAt: time.Now(),
	}
}

// NewAt is New with an explicit creation instant, used by tests and by
// callers replaying historical data through an injected clock.
func NewAt(frequency, amplitude float64, createdAt time.Time) Wave {
	w := New(frequency, amplitude)
	w.CreatedAt = createdAt

	return w
}

// WithPhase returns a copy of the Wave with phase normalized to [-pi, pi].
func (w Wave) WithPhase(phase float64) Wave {
	w.Phase = normalizePhase(phase)
	return w
}

// WithEmotion returns a copy of the Wave carrying the given emotional
// scalars.
func (w Wave) WithEmotion(valence, arousal float64) Wave {
	w.Emotion = Emotion{Valence: clamp(valence, -1, 1), Arousal: clamp(arousal, 0, 1)}
	return w
}

// WithDecay returns a copy of the Wave with the given decay time constant.
// A zero or negative tau clears decay (the Wave never decays).
func (w Wave) WithDecay(tau time.Duration) Wave {
	if tau <= 0 {
		w.DecayTau = 0
	} else {
		w.DecayTau = tau
	}

	return w
}

// HasDecay reports whether the Wave has a decay time constant set.
func (w Wave) HasDecay() bool {
	return w.DecayTau > 0
}

// DecayFactor returns the multiplicative decay applied to Amplitude at
// instant now. It is 1.0 when the Wave has no decay time constant.
func (w Wave) DecayFactor(now time.Time) float64 {
	if !w.HasDecay() {
		return 1.0
	}

	elapsed := now.Sub(w.CreatedAt).Seconds()
	if elapsed <= 0 {
		return 1.0
	}

	return math.Exp(-elapsed / w.DecayTau.Seconds())
}

// EffectiveAmplitude returns Amplitude * DecayFactor(now).
func (w Wave) EffectiveAmplitude(now time.Time) float64 {
	return w.Amplitude * w.DecayFactor(now)
}

// Active reports whether the Wave's effective amplitude at instant now is
// still above ActiveThreshold.
func (w Wave) Active(now time.Time) bool {
	return w.EffectiveAmplitude(now) >= ActiveThreshold
}

// Resonance weighting, fixed per spec.md §4.1 so two independent engines
// always agree on a score.
const (
	weightFrequency = 0.4
	weightAmplitude = 0.2
	weightPhase     = 0.3
	weightEmotion   = 0.1
)

// maxFrequencyHz bounds the frequency-closeness normalization; it is the
// top of the full [0,1000] Hz spectrum spec.md §3 assigns to bands.
const maxFrequencyHz = 1000.0

// ResonanceWith returns a similarity score in [0,1] between w and other,
// combining frequency closeness, amplitude product, phase coherence, and
// emotional cosine similarity with fixed weights (0.4, 0.2, 0.3, 0.1).
func (w Wave) ResonanceWith(other Wave) float64 {
	freqScore := 1 - math.Abs(w.Frequency-other.Frequency)/maxFrequencyHz
	if freqScore < 0 {
		freqScore = 0
	}

	ampScore := normalizeAmplitude(w.Amplitude) * normalizeAmplitude(other.Amplitude)
	if ampScore > 1 {
		ampScore = 1
	}

	phaseScore := math.Pow(math.Cos((w.Phase-other.Phase)/2), 2)

	emotionScore := emotionCosine(w.Emotion, other.Emotion)

	score := weightFrequency*freqScore +
		weightAmplitude*ampScore +
		weightPhase*phaseScore +
		weightEmotion*emotionScore

	return clamp(score, 0, 1)
}

func emotionCosine(a, b Emotion) float64 {
	dot := a.Valence*b.Valence + a.Arousal*b.Arousal
	na := math.Hypot(a.Valence, a.Arousal)
	nb := math.Hypot(b.Valence, b.Arousal)
	if na == 0 || nb == 0 {
		return 0
	}

	cos := dot / (na * nb)
	// Cosine similarity is in [-1,1]; rescale to [0,1] so it composes
	// linearly with the other [0,1] sub-scores.
	return (cos + 1) / 2
}

func normalizeAmplitude(a float64) float64 {
	if a < 0 {
		return 0
	}

	return a
}

func normalizePhase(p float64) float64 {
	p = math.Mod(p+math.Pi, 2*math.Pi)
	if p < 0 {
		p += 2 * math.Pi
	}

	return p - math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
