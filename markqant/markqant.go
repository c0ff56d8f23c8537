// Package markqant implements the rotating-token text compressor used
// inside .m8 text sections (spec.md §4.3).
//
// Markqant builds a small dictionary (at most 128 entries, tokens
// 0x80..0xFF) of the whitespace-delimited n-grams that save the most
// bytes, then rewrites the input by greedily substituting the longest
// matching dictionary pattern at each position. Decoding is a linear scan:
// any byte >= 0x80 that maps to a dictionary entry is expanded; every
// other byte is copied verbatim.
package markqant

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/8b-is/mem8/errs"
	"github.com/8b-is/mem8/internal/pool"
	"github.com/8b-is/mem8/internal/xhash"
)

// MaxDictionaryEntries is the largest number of dictionary entries a
// Markqant payload may carry (tokens 0x80..0xFF).
const MaxDictionaryEntries = 128

// firstToken is the lowest token value a dictionary entry may use.
const firstToken = 0x80

// maxNGram is the largest n-gram width considered during dictionary
// construction.
const maxNGram = 5

// Entry is one dictionary mapping: a single token byte to the UTF-8
// pattern it expands to.
type Entry struct {
	Token   byte
	Pattern string
}

// Dictionary is the ordered set of token->pattern mappings carried in a
// Markqant payload's header.
type Dictionary []Entry

// Encoded is the result of encoding a text: a dictionary plus the token
// stream that expands back to the original bytes via that dictionary.
type Encoded struct {
	Dictionary Dictionary
	Data       []byte
}

// ngramStat accumulates the occurrence count for one candidate pattern.
// Patterns are keyed by their xxHash64 to keep the scanning pass's
// lookups O(1); a stored pattern string guards against the (extremely
// unlikely) hash collision the same way mebo's internal collision
// tracker guards metric-name hashes.
type ngramStat struct {
	pattern string
	freq    int
}

// Encode builds a Markqant dictionary for text and rewrites text into the
// resulting token stream.
func Encode(text string) Encoded {
	dict := buildDictionary(text)

	return Encoded{
		Dictionary: dict,
		Data:       encodeWithDictionary(text, dict),
	}
}

// buildDictionary scans text for whitespace-delimited n-grams (n in
// 1..5), scores every candidate with frequency >= 2 by
// (len(pattern)-1)*(freq-1), and keeps the top MaxDictionaryEntries,
// breaking ties by longer pattern first then lexicographically.
func buildDictionary(text string) Dictionary {
	words := splitUnits(text)

	stats := make(map[uint64]*ngramStat)
	order := make([]uint64, 0)

	for n := 1; n <= maxNGram; n++ {
		for i := 0; i+n <= len(words); i++ {
			pattern := text[words[i].start:words[i+n-1].end]
			h := xhash.ID(pattern)

			st, ok := stats[h]
			if !ok {
				st = &ngramStat{pattern: pattern}
				stats[h] = st
				order = append(order, h)
			} else if st.pattern != pattern {
				// Hash collision between distinct patterns: keep the
				// first seen under a synthetic bucket so we never merge
				// unrelated candidates.
				h2 := h ^ (uint64(len(pattern)) * 0x9E3779B97F4A7C15)
				st2, ok2 := stats[h2]
				if !ok2 {
					st2 = &ngramStat{pattern: pattern}
					stats[h2] = st2
					order = append(order, h2)
				}
				st2.freq++

				continue
			}

			st.freq++
		}
	}

	type candidate struct {
		pattern string
		score   int
	}

	candidates := make([]candidate, 0, len(order))
	for _, h := range order {
		st := stats[h]
		if st.freq < 2 {
			continue
		}

		score := (len(st.pattern) - 1) * (st.freq - 1)
		if score <= 0 {
			continue
		}

		candidates = append(candidates, candidate{pattern: st.pattern, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if len(candidates[i].pattern) != len(candidates[j].pattern) {
			return len(candidates[i].pattern) > len(candidates[j].pattern)
		}

		return candidates[i].pattern < candidates[j].pattern
	})

	if len(candidates) > MaxDictionaryEntries {
		candidates = candidates[:MaxDictionaryEntries]
	}

	dict := make(Dictionary, 0, len(candidates))
	for i, c := range candidates {
		dict = append(dict, Entry{Token: byte(firstToken + i), Pattern: c.pattern})
	}

	return dict
}

type wordSpan struct{ start, end int }

// splitWords returns the byte-range of every maximal run of non-whitespace
// characters in text, in order.
func splitWords(text string) []wordSpan {
	spans := make([]wordSpan, 0)

	inWord := false
	start := 0
	for i, r := range text {
		if isSpace(r) {
			if inWord {
				spans = append(spans, wordSpan{start, i})
				inWord = false
			}

			continue
		}

		if !inWord {
			start = i
			inWord = true
		}
	}

	if inWord {
		spans = append(spans, wordSpan{start, len(text)})
	}

	return spans
}

// splitUnits is like splitWords but folds each word's trailing whitespace
// run into the same span (the final unit keeps none, since there is
// nothing after it to fold in). This lets n-gram patterns include the
// separator that follows them, which is what makes a repeated word like
// "the " profitable to tokenize as a whole.
func splitUnits(text string) []wordSpan {
	words := splitWords(text)
	units := make([]wordSpan, len(words))

	for i, w := range words {
		end := w.end
		if i+1 < len(words) {
			end = words[i+1].start
		}

		units[i] = wordSpan{w.start, end}
	}

	return units
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// encodeWithDictionary rewrites text by greedily preferring the longest
// dictionary pattern matching at the current cursor, falling back to
// verbatim UTF-8 scalar bytes.
func encodeWithDictionary(text string, dict Dictionary) []byte {
	byLength := make([]Entry, len(dict))
	copy(byLength, dict)
	sort.Slice(byLength, func(i, j int) bool {
		return len(byLength[i].Pattern) > len(byLength[j].Pattern)
	})

	sb := pool.GetSectionBuffer()
	defer pool.PutSectionBuffer(sb)

	pos := 0
	for pos < len(text) {
		matched := false
		for _, e := range byLength {
			n := len(e.Pattern)
			if n == 0 || pos+n > len(text) {
				continue
			}
			if text[pos:pos+n] == e.Pattern {
				sb.MustWrite([]byte{e.Token})
				pos += n
				matched = true

				break
			}
		}

		if matched {
			continue
		}

		_, size := utf8.DecodeRuneInString(text[pos:])
		sb.MustWrite([]byte(text[pos : pos+size]))
		pos += size
	}

	out := make([]byte, sb.Len())
	copy(out, sb.Bytes())

	return out
}

// Decode expands data back to its original text using dict. It fails with
// ErrInvalidToken if a byte >= 0x80 is neither a defined token nor the
// start of a valid UTF-8 sequence.
func Decode(data []byte, dict Dictionary) (string, error) {
	lookup, err := dict.toMap()
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, len(data))

	i := 0
	for i < len(data) {
		b := data[i]
		if b < firstToken {
			out = append(out, b)
			i++

			continue
		}

		if pattern, ok := lookup[b]; ok {
			out = append(out, pattern...)
			i++

			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", fmt.Errorf("%w: undefined token 0x%02x at offset %d", errs.ErrInvalidToken, b, i)
		}

		out = append(out, data[i:i+size]...)
		i += size
	}

	return string(out), nil
}

// toMap validates the dictionary (entry_count <= 128, no duplicate
// tokens) and returns a token->pattern lookup.
func (d Dictionary) toMap() (map[byte]string, error) {
	if len(d) > MaxDictionaryEntries {
		return nil, fmt.Errorf("%w: %d entries exceeds max %d", errs.ErrInvalidDictionary, len(d), MaxDictionaryEntries)
	}

	m := make(map[byte]string, len(d))
	for _, e := range d {
		if e.Token < firstToken {
			return nil, fmt.Errorf("%w: token 0x%02x below 0x80", errs.ErrInvalidDictionary, e.Token)
		}
		if _, dup := m[e.Token]; dup {
			return nil, fmt.Errorf("%w: duplicate token 0x%02x", errs.ErrInvalidDictionary, e.Token)
		}

		m[e.Token] = e.Pattern
	}

	return m, nil
}
