// Package wavecodec implements the 32-byte lossy CompressedWave encoding
// used to persist a wave.Wave inside a .m8 wave-memory section (spec.md
// §3, §4.3's sibling for waves).
//
// Layout (little-endian, 32 bytes total):
//
//	offset  size  field
//	0       8     id               (u64)
//	8       1     amplitude        (u8, log-quantized)
//	9       2     frequency        (u16)
//	11      1     phase            (u8)
//	12      1     valence          (i8)
//	13      1     arousal          (u8)
//	14      2     decay_tau_secs   (u16, 0xFFFF = no decay)
//	16      8     timestamp        (u64, unix micros)
//	24      8     interference     (u64)
package wavecodec

import (
	"math"
	"time"

	"github.com/8b-is/mem8/endian"
	"github.com/8b-is/mem8/wave"
)

// Size is the fixed byte length of a CompressedWave record.
const Size = 32

// noDecaySentinel marks the absence of a decay time constant in the
// 16-bit decay_tau_secs field.
const noDecaySentinel = 0xFFFF

// CompressedWave is the 32-byte on-disk encoding of a wave.Wave.
type CompressedWave struct {
	ID            uint64
	Amplitude     uint8
	Frequency     uint16
	Phase         uint8
	Valence       int8
	Arousal       uint8
	DecayTauSecs  uint16
	TimestampUnix uint64 // microseconds since Unix epoch
	Interference  uint64
}

var engine = endian.GetLittleEndianEngine()

// Encode quantizes w into a CompressedWave tagged with id. interference
// is an opaque caller-supplied scalar (e.g. an accumulated interference
// signature from neighboring cells); it round-trips bit-exact.
func Encode(id uint64, w wave.Wave, interference uint64) CompressedWave {
	cw := CompressedWave{
		ID:            id,
		Amplitude:     quantizeAmplitude(w.Amplitude),
		Frequency:     quantizeFrequency(w.Frequency),
		Phase:         quantizePhase(w.Phase),
		Valence:       quantizeValence(w.Emotion.Valence),
		Arousal:       quantizeArousal(w.Emotion.Arousal),
		TimestampUnix: uint64(w.CreatedAt.UnixMicro()),
		Interference:  interference,
	}

	if w.HasDecay() {
		secs := w.DecayTau.Seconds()
		if secs > 65534 {
			secs = 65534
		}
		cw.DecayTauSecs = uint16(secs)
	} else {
		cw.DecayTauSecs = noDecaySentinel
	}

	return cw
}

// ToWave reconstructs an (approximate) wave.Wave from the CompressedWave.
func (cw CompressedWave) ToWave() wave.Wave {
	w := wave.Wave{
		Frequency: dequantizeFrequency(cw.Frequency),
		Amplitude: dequantizeAmplitude(cw.Amplitude),
		Phase:     dequantizePhase(cw.Phase),
		Emotion: wave.Emotion{
			Valence: dequantizeValence(cw.Valence),
			Arousal: dequantizeArousal(cw.Arousal),
		},
		CreatedAt: time.UnixMicro(int64(cw.TimestampUnix)),
	}

	if cw.DecayTauSecs != noDecaySentinel {
		w.DecayTau = time.Duration(cw.DecayTauSecs) * time.Second
	}

	return w
}

// Bytes serializes the CompressedWave into a newly allocated 32-byte slice.
func (cw CompressedWave) Bytes() []byte {
	b := make([]byte, Size)
	cw.PutBytes(b)

	return b
}

// PutBytes serializes the CompressedWave into b, which must be at least
// Size bytes long.
func (cw CompressedWave) PutBytes(b []byte) {
	_ = b[Size-1]

	engine.PutUint64(b[0:8], cw.ID)
	b[8] = cw.Amplitude
	engine.PutUint16(b[9:11], cw.Frequency)
	b[11] = cw.Phase
	b[12] = byte(cw.Valence)
	b[13] = cw.Arousal
	engine.PutUint16(b[14:16], cw.DecayTauSecs)
	engine.PutUint64(b[16:24], cw.TimestampUnix)
	engine.PutUint64(b[24:32], cw.Interference)
}

// Parse decodes a CompressedWave from a Size-byte slice.
func Parse(b []byte) (CompressedWave, bool) {
	if len(b) < Size {
		return CompressedWave{}, false
	}

	cw := CompressedWave{
		ID:            engine.Uint64(b[0:8]),
		Amplitude:     b[8],
		Frequency:     engine.Uint16(b[9:11]),
		Phase:         b[11],
		Valence:       int8(b[12]),
		Arousal:       b[13],
		DecayTauSecs:  engine.Uint16(b[14:16]),
		TimestampUnix: engine.Uint64(b[16:24]),
		Interference:  engine.Uint64(b[24:32]),
	}

	return cw, true
}

// quantizeAmplitude implements q = clamp(32*log2(a), 0, 255), with a=0
// mapping exactly to q=0.
func quantizeAmplitude(a float64) uint8 {
	if a <= 0 {
		return 0
	}

	q := 32 * math.Log2(a)
	if q < 0 {
		q = 0
	}
	if q > 255 {
		q = 255
	}

	return uint8(math.Round(q))
}

// dequantizeAmplitude implements a = 2^(q/32), with q=0 mapping exactly
// to a=0.
func dequantizeAmplitude(q uint8) float64 {
	if q == 0 {
		return 0
	}

	return math.Pow(2, float64(q)/32)
}

func quantizeFrequency(f float64) uint16 {
	if f < 0 {
		f = 0
	}
	if f > 65535 {
		f = 65535
	}

	return uint16(math.Round(f))
}

func dequantizeFrequency(f uint16) float64 {
	return float64(f)
}

// quantizePhase implements p = round((phase/pi + 1) * 127.5).
func quantizePhase(phase float64) uint8 {
	v := (phase/math.Pi + 1) * 127.5
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}

	return uint8(math.Round(v))
}

func dequantizePhase(q uint8) float64 {
	return (float64(q)/127.5 - 1) * math.Pi
}

// quantizeValence implements round(v*127).
func quantizeValence(v float64) int8 {
	q := math.Round(v * 127)
	if q < -127 {
		q = -127
	}
	if q > 127 {
		q = 127
	}

	return int8(q)
}

func dequantizeValence(q int8) float64 {
	return float64(q) / 127
}

// quantizeArousal implements round(a*255).
func quantizeArousal(a float64) uint8 {
	q := math.Round(a * 255)
	if q < 0 {
		q = 0
	}
	if q > 255 {
		q = 255
	}

	return uint8(q)
}

func dequantizeArousal(q uint8) float64 {
	return float64(q) / 255
}
