package m8

import (
	"hash/crc32"

	"github.com/8b-is/mem8/compress"
	"github.com/8b-is/mem8/format"
	"github.com/8b-is/mem8/internal/pool"
)

// compressionFloor is the minimum payload size, in bytes, below which a
// Writer never bothers compressing a section: the codec framing overhead
// would erase any benefit (SPEC_FULL.md §6.2).
const compressionFloor = 256

// compressibleSections lists the section types eligible for the Writer's
// optional payload compression. Small fixed-layout sections (identity,
// wave-memory records meant for direct mmap-style scanning) are left
// uncompressed on purpose.
var compressibleSections = map[SectionType]bool{
	SectionContext:           true,
	SectionAIContext:         true,
	SectionRelationships:     true,
	SectionMarkqantDoc:       true,
	SectionCodeRelations:     true,
	SectionBuildArtifacts:    true,
	SectionReactiveStateDump: true,
	SectionCustodianNotes:    true,
}

// The on-disk section type byte reserves its top three bits (section type
// IDs only use 0x01-0x11, the low five bits) to record compression: bit 7
// flags the payload as compressed, bits 6-5 name the algorithm. This lets
// a reader pick the exact codec back up instead of probing every built-in
// decompressor against foreign data.
const (
	sectionFlagCompressed SectionType = 0x80
	sectionAlgoMask       SectionType = 0x60
	sectionAlgoShift      = 5
)

func algoCode(algo format.CompressionType) (SectionType, bool) {
	switch algo {
	case format.CompressionZstd:
		return 0, true
	case format.CompressionS2:
		return 1, true
	case format.CompressionLZ4:
		return 2, true
	default:
		return 0, false
	}
}

func algoFromCode(code SectionType) (format.CompressionType, bool) {
	switch code {
	case 0:
		return format.CompressionZstd, true
	case 1:
		return format.CompressionS2, true
	case 2:
		return format.CompressionLZ4, true
	default:
		return format.CompressionNone, false
	}
}

// Writer accumulates sections in memory and emits a complete .m8 file in
// one pass via Finish, matching the teacher's buffer-then-emit writer
// shape (spec.md §4.4: "buffer sections until finish(), then emit magic,
// header, sections, CRC32 in one pass").
//
// A Writer is single-owner; it must not be shared across goroutines
// (spec.md §5).
type Writer struct {
	sections []Section
	codec    compress.Codec
	algo     format.CompressionType
}

// NewWriter constructs an empty Writer. WithCompression selects the codec
// applied to eligible sections; the default is no compression.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{algo: format.CompressionNone}
	for _, o := range opts {
		o(w)
	}

	return w
}

// WriterOption configures a Writer at construction time.
type WriterOption func(*Writer)

// WithCompression selects the compression algorithm applied to
// compressible section payloads above compressionFloor bytes.
func WithCompression(algo format.CompressionType) WriterOption {
	return func(w *Writer) {
		w.algo = algo
	}
}

// AddSection appends a section to the Writer's buffer. Sections are
// emitted in the order added.
func (w *Writer) AddSection(t SectionType, payload []byte) {
	w.sections = append(w.sections, Section{Type: t, Payload: payload})
}

// Finish serializes the buffered sections into a complete .m8 file: magic,
// header, sections, trailing CRC32 (spec.md §4.4, §6). timestampUnix is
// the Unix-seconds value written into the header.
func (w *Writer) Finish(timestampUnix uint64) ([]byte, error) {
	codec, err := w.codecForWrite()
	if err != nil {
		return nil, err
	}

	encoded := make([][]byte, len(w.sections))
	total := HeaderSize
	for i, s := range w.sections {
		payload := s.Payload
		sectionType := s.Type

		if codec != nil && compressibleSections[s.Type] && len(payload) >= compressionFloor {
			if code, ok := algoCode(w.algo); ok {
				compressed, cerr := codec.Compress(payload)
				if cerr == nil && len(compressed) < len(payload) {
					payload = compressed
					sectionType |= sectionFlagCompressed | (code << sectionAlgoShift)
				}
			}
		}

		buf := make([]byte, 1+4+len(payload))
		buf[0] = byte(sectionType)
		engine.PutUint32(buf[1:5], uint32(len(payload)))
		copy(buf[5:], payload)

		encoded[i] = buf
		total += len(buf)
	}

	total += CRCSize

	// Assemble through the shared file-buffer pool rather than a fresh
	// make([]byte, total) every call, matching the teacher's pooled
	// section/file buffer strategy for one-shot blob assembly.
	fb := pool.GetFileBuffer()
	defer pool.PutFileBuffer(fb)
	fb.ExtendOrGrow(total)
	buf := fb.Bytes()

	header := Header{
		Version:       Version,
		SectionCount:  uint16(len(w.sections)),
		FileSize:      uint64(total),
		TimestampUnix: timestampUnix,
	}
	header.put(buf[:HeaderSize])

	off := HeaderSize
	for _, s := range encoded {
		off += copy(buf[off:], s)
	}

	sum := crc32.ChecksumIEEE(buf[:off])
	engine.PutUint32(buf[off:off+CRCSize], sum)

	out := make([]byte, total)
	copy(out, buf)

	return out, nil
}

func (w *Writer) codecForWrite() (compress.Codec, error) {
	if w.algo == format.CompressionNone {
		return nil, nil
	}

	return compress.CreateCodec(w.algo, "m8 section")
}
