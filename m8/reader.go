package m8

import (
	"fmt"
	"hash/crc32"

	"github.com/8b-is/mem8/compress"
	"github.com/8b-is/mem8/errs"
)

// Reader parses a complete .m8 file held in memory. It verifies the magic,
// rejects unsupported versions, walks every section (skipping unknown
// types by their declared size), and verifies the trailing CRC32 — unless
// the CRC is zero, which is accepted as a legacy file (spec.md §9).
type Reader struct {
	Header   Header
	Sections []Section
}

// Open parses b as a complete .m8 file.
func Open(b []byte) (*Reader, error) {
	header, err := parseHeader(b)
	if err != nil {
		return nil, err
	}

	if len(b) < CRCSize || uint64(len(b)) < header.FileSize {
		return nil, fmt.Errorf("%w: file shorter than declared file_size", errs.ErrTruncatedSection)
	}

	crcOffset := len(b) - CRCSize
	storedCRC := engine.Uint32(b[crcOffset:])
	if storedCRC != 0 {
		computed := crc32.ChecksumIEEE(b[:crcOffset])
		if computed != storedCRC {
			return nil, errs.ErrChecksumMismatch
		}
	}

	sections := make([]Section, 0, header.SectionCount)

	off := HeaderSize
	for i := 0; i < int(header.SectionCount); i++ {
		if off+1+4 > crcOffset {
			return nil, fmt.Errorf("%w: section %d header", errs.ErrTruncatedSection, i)
		}

		rawType := SectionType(b[off])
		off++
		size := int(engine.Uint32(b[off:]))
		off += 4

		if off+size > crcOffset {
			return nil, fmt.Errorf("%w: section %d payload (%d bytes)", errs.ErrTruncatedSection, i, size)
		}

		payload := b[off : off+size]
		off += size

		compressed := rawType&sectionFlagCompressed != 0
		sectionType := rawType &^ sectionFlagCompressed &^ sectionAlgoMask

		if compressed {
			algoCodeBits := (rawType & sectionAlgoMask) >> sectionAlgoShift
			algo, ok := algoFromCode(algoCodeBits)
			if !ok {
				return nil, fmt.Errorf("%w: section %d: unknown compression algorithm code", errs.ErrTruncatedSection, i)
			}

			codec, cerr := compress.GetCodec(algo)
			if cerr != nil {
				return nil, fmt.Errorf("%w: section %d: %v", errs.ErrTruncatedSection, i, cerr)
			}

			decoded, derr := codec.Decompress(payload)
			if derr != nil {
				return nil, fmt.Errorf("%w: section %d: %v", errs.ErrTruncatedSection, i, derr)
			}
			payload = decoded
		}

		if sectionType == SectionWaveMemoryBlob && len(payload)%32 != 0 {
			return nil, fmt.Errorf("%w: wave-memory section size %d not a multiple of 32", errs.ErrTruncatedSection, len(payload))
		}

		sections = append(sections, Section{Type: sectionType, Payload: payload})
	}

	return &Reader{Header: header, Sections: sections}, nil
}

// Section returns the first section of the given type, if present.
func (r *Reader) Section(t SectionType) (Section, bool) {
	for _, s := range r.Sections {
		if s.Type == t {
			return s, true
		}
	}

	return Section{}, false
}
