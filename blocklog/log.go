package blocklog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/8b-is/mem8/errs"
)

// defaultKeywordBoost is the importance bump applied, per matching
// keyword, when a keyword from the log's configured user-context set
// appears in appended content (spec.md §4.5).
const defaultKeywordBoost = 0.2

// Option configures a Log at construction time.
type Option func(*Log)

// WithKeywords sets the user-context keyword set tracked for importance
// boosting on append, each contributing defaultKeywordBoost if present in
// the appended content.
func WithKeywords(keywords ...string) Option {
	return func(l *Log) {
		l.keywords = append(l.keywords, keywords...)
	}
}

// WithKeywordBoost overrides the per-keyword importance boost (default
// 0.2).
func WithKeywordBoost(boost float64) Option {
	return func(l *Log) {
		l.keywordBoost = boost
	}
}

// Log is a single-writer handle onto one block log file. Append is safe to
// call from one goroutine at a time (guarded internally by a mutex to
// match the teacher's defensive style, but the format itself assumes a
// single writer per file — spec.md §5).
type Log struct {
	mu   sync.Mutex
	file *os.File

	header Header

	keywords     []string
	keywordBoost float64

	lastHash [32]byte
}

// Create initializes a new block log file at path with the given identity
// frequency and temporal phase, and returns a writer Log positioned at an
// empty file.
func Create(path string, identityFreq, temporalPhase float64, opts ...Option) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.WrapIO("blocklog create", err)
	}

	l := &Log{
		file: f,
		header: Header{
			Version:       Version,
			IdentityFreq:  identityFreq,
			TemporalPhase: temporalPhase,
		},
		keywordBoost: defaultKeywordBoost,
	}
	for _, o := range opts {
		o(l)
	}

	if err := l.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}

	return l, nil
}

// Open opens an existing block log file for appending.
func Open(path string, opts ...Option) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errs.WrapIO("blocklog open", err)
	}

	hdrBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, errs.WrapIO("blocklog read header", err)
	}

	header, err := parseHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.WrapIO("blocklog stat", err)
	}

	wantSize := int64(HeaderSize) + int64(header.BlockCount)*BlockSize
	if info.Size() != wantSize {
		f.Close()
		return nil, fmt.Errorf("%w: file size %d does not match header+%d*4096", errs.ErrTruncatedBlock, info.Size(), header.BlockCount)
	}

	l := &Log{
		file:         f,
		header:       header,
		keywordBoost: defaultKeywordBoost,
	}
	for _, o := range opts {
		o(l)
	}

	if header.BlockCount > 0 {
		last, err := l.readBlockAt(header.BlockCount - 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		l.lastHash = last.chainHash()
	}

	return l, nil
}

// Close closes the underlying file handle.
func (l *Log) Close() error {
	return l.file.Close()
}

// BlockCount returns the number of blocks currently committed.
func (l *Log) BlockCount() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.header.BlockCount
}

// Append writes content as a new block with the given base importance and
// caller-assigned token id, boosting importance per any configured
// keyword match, then commits the block by advancing block_count in the
// header. A failed write never advances block_count (spec.md §4.5: "the
// header is the commit point").
func (l *Log) Append(content []byte, importance float64, tokenID uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	effective := importance
	if len(l.keywords) > 0 {
		text := string(content)
		for _, kw := range l.keywords {
			if kw != "" && strings.Contains(text, kw) {
				effective += l.keywordBoost
			}
		}
	}
	if effective > 1 {
		effective = 1
	}
	if effective < 0 {
		effective = 0
	}

	block := Block{
		Index:       uint64(l.header.BlockCount),
		TimestampUs: uint64(time.Now().UnixMicro()),
		Importance:  ImportanceFromFloat(effective),
		TokenID:     tokenID,
		PrevHash:    l.lastHash,
		Content:     content,
	}
	block.WaveSig = waveSig(content, l.header.IdentityFreq)

	buf := block.bytes()
	offset := int64(HeaderSize) + int64(block.Index)*BlockSize

	if _, err := l.file.WriteAt(buf, offset); err != nil {
		return errs.WrapIO("blocklog append", err)
	}
	if err := l.file.Sync(); err != nil {
		return errs.WrapIO("blocklog sync", err)
	}

	l.header.BlockCount++
	if err := l.writeHeader(); err != nil {
		return err
	}

	l.lastHash = block.chainHash()

	return nil
}

func (l *Log) writeHeader() error {
	if _, err := l.file.WriteAt(l.header.bytes(), 0); err != nil {
		return errs.WrapIO("blocklog write header", err)
	}

	return l.file.Sync()
}

func (l *Log) readBlockAt(index uint32) (Block, error) {
	buf := make([]byte, BlockSize)
	offset := int64(HeaderSize) + int64(index)*BlockSize

	if _, err := l.file.ReadAt(buf, offset); err != nil {
		return Block{}, errs.WrapIO("blocklog read block", err)
	}

	return parseBlock(buf)
}

// Reader is an independent, read-only file handle onto a block log
// (spec.md §5: "multiple concurrent readers are allowed but must open
// their own file handle").
type Reader struct {
	file   *os.File
	header Header
}

// OpenReader opens path as a read-only Reader.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WrapIO("blocklog reader open", err)
	}

	hdrBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, errs.WrapIO("blocklog reader read header", err)
	}

	header, err := parseHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{file: f, header: header}, nil
}

// Close closes the Reader's file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) readBlockAt(index uint32) (Block, error) {
	buf := make([]byte, BlockSize)
	offset := int64(HeaderSize) + int64(index)*BlockSize

	if _, err := r.file.ReadAt(buf, offset); err != nil {
		return Block{}, errs.WrapIO("blocklog reader read block", err)
	}

	return parseBlock(buf)
}

// ReadBackwards returns every block newest-first, starting at the last
// committed block and stepping backwards to block 0 (spec.md §4.5).
func (r *Reader) ReadBackwards() ([]Block, error) {
	out := make([]Block, 0, r.header.BlockCount)

	for i := r.header.BlockCount; i > 0; i-- {
		b, err := r.readBlockAt(i - 1)
		if err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, nil
}

// maxImportanceResults and minFloorResults bound read_by_importance's
// output (spec.md §4.5): at most 20 keyword matches, with a floor of 10
// unfiltered highest-importance blocks when matches run short.
const (
	maxImportanceResults = 20
	minFloorResults      = 10
)

// ReadByImportance scans every block, ranks by importance (ties broken by
// descending timestamp), and returns up to maxImportanceResults blocks
// whose content contains any of keywords. If fewer than minFloorResults
// blocks match, the matches are padded with the next highest-importance
// blocks overall until the result holds minFloorResults blocks (or every
// block in the log).
func (r *Reader) ReadByImportance(keywords []string) ([]Block, error) {
	all := make([]Block, 0, r.header.BlockCount)
	for i := uint32(0); i < r.header.BlockCount; i++ {
		b, err := r.readBlockAt(i)
		if err != nil {
			return nil, err
		}

		all = append(all, b)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Importance != all[j].Importance {
			return all[i].Importance > all[j].Importance
		}

		return all[i].TimestampUs > all[j].TimestampUs
	})

	included := make(map[uint64]bool, maxImportanceResults)
	matches := make([]Block, 0, maxImportanceResults)

	if len(keywords) > 0 {
		for _, b := range all {
			if len(matches) >= maxImportanceResults {
				break
			}

			text := string(b.Content)
			for _, kw := range keywords {
				if kw != "" && strings.Contains(text, kw) {
					matches = append(matches, b)
					included[b.Index] = true
					break
				}
			}
		}
	}

	if len(matches) >= minFloorResults {
		return matches, nil
	}

	// Keyword matching came up short of the guaranteed floor: pad with the
	// next highest-importance blocks overall (unfiltered), preserving the
	// importance/timestamp order already established in all.
	for _, b := range all {
		if len(matches) >= minFloorResults || len(matches) >= len(all) {
			break
		}
		if included[b.Index] {
			continue
		}

		matches = append(matches, b)
		included[b.Index] = true
	}

	return matches, nil
}
