package m8

import (
	"fmt"

	"github.com/8b-is/mem8/endian"
	"github.com/8b-is/mem8/errs"
)

// Magic is the fixed 4-byte identifier every .m8 file opens with.
var Magic = [4]byte{'M', 'E', 'M', '8'}

// Version is the container format version this package writes and the
// highest version it accepts on read.
const Version uint16 = 1

// HeaderSize is the fixed byte length of the .m8 file header, before any
// sections.
const HeaderSize = 4 + 2 + 2 + 8 + 8

// CRCSize is the byte length of the trailing checksum.
const CRCSize = 4

var engine = endian.GetLittleEndianEngine()

// Header is the fixed preamble of a .m8 file (spec.md §3, §6): magic,
// version, section_count, file_size (including the trailing CRC), and a
// Unix-seconds timestamp.
type Header struct {
	Version       uint16
	SectionCount  uint16
	FileSize      uint64
	TimestampUnix uint64
}

func (h Header) put(b []byte) {
	copy(b[0:4], Magic[:])
	engine.PutUint16(b[4:6], h.Version)
	engine.PutUint16(b[6:8], h.SectionCount)
	engine.PutUint64(b[8:16], h.FileSize)
	engine.PutUint64(b[16:24], h.TimestampUnix)
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header truncated", errs.ErrTruncatedSection)
	}

	if b[0] != Magic[0] || b[1] != Magic[1] || b[2] != Magic[2] || b[3] != Magic[3] {
		return Header{}, errs.ErrBadMagic
	}

	h := Header{
		Version:       engine.Uint16(b[4:6]),
		SectionCount:  engine.Uint16(b[6:8]),
		FileSize:      engine.Uint64(b[8:16]),
		TimestampUnix: engine.Uint64(b[16:24]),
	}

	if h.Version > Version {
		return Header{}, fmt.Errorf("%w: file version %d exceeds supported %d", errs.ErrUnsupportedVersion, h.Version, Version)
	}

	return h, nil
}
