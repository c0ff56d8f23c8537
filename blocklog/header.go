// Package blocklog implements the append-only binary log that persists
// grid activity and associated text as fixed 4096-byte blocks, chained by
// SHA-256 and readable backwards or by importance (spec.md §4.5).
package blocklog

import (
	"fmt"
	"hash/crc32"

	"github.com/8b-is/mem8/endian"
	"github.com/8b-is/mem8/errs"
)

// Magic is the fixed 4-byte identifier a block log file opens with.
var Magic = [4]byte{'M', 'E', 'M', '8'}

// Version is the block log format version this package writes.
const Version uint8 = 1

// HeaderSize is the fixed byte length of the block log file header.
const HeaderSize = 4 + 1 + 1 + 4 + 8 + 8 + 4

var engine = endian.GetLittleEndianEngine()

// Header is the 30-byte (HeaderSize) preamble of a block log file.
type Header struct {
	Version       uint8
	Flags         uint8
	BlockCount    uint32
	IdentityFreq  float64
	TemporalPhase float64
	CRC32         uint32
}

func (h Header) bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], Magic[:])
	b[4] = h.Version
	b[5] = h.Flags
	engine.PutUint32(b[6:10], h.BlockCount)
	engine.PutUint64(b[10:18], doubleBits(h.IdentityFreq))
	engine.PutUint64(b[18:26], doubleBits(h.TemporalPhase))

	sum := crc32.ChecksumIEEE(b[:26])
	engine.PutUint32(b[26:30], sum)

	return b[:HeaderSize]
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header truncated", errs.ErrTruncatedBlock)
	}

	if b[0] != Magic[0] || b[1] != Magic[1] || b[2] != Magic[2] || b[3] != Magic[3] {
		return Header{}, errs.ErrBadMagic
	}

	h := Header{
		Version:       b[4],
		Flags:         b[5],
		BlockCount:    engine.Uint32(b[6:10]),
		IdentityFreq:  doubleFromBits(engine.Uint64(b[10:18])),
		TemporalPhase: doubleFromBits(engine.Uint64(b[18:26])),
		CRC32:         engine.Uint32(b[26:30]),
	}

	if h.Version > Version {
		return Header{}, fmt.Errorf("%w: block log version %d exceeds supported %d", errs.ErrUnsupportedVersion, h.Version, Version)
	}

	if h.CRC32 != 0 {
		computed := crc32.ChecksumIEEE(b[:26])
		if computed != h.CRC32 {
			return Header{}, errs.ErrChecksumMismatch
		}
	}

	return h, nil
}
