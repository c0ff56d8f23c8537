package markqant

import (
	"fmt"

	"github.com/8b-is/mem8/endian"
	"github.com/8b-is/mem8/errs"
)

var engine = endian.GetLittleEndianEngine()

// MarshalSection serializes e into the wire format a .m8 Markqant section
// payload carries: entry_count u16 | {token u8, pattern_len u16, pattern}*
// | encoded_len u32 | encoded (spec.md §3, §6).
func (e Encoded) MarshalSection() ([]byte, error) {
	if len(e.Dictionary) > MaxDictionaryEntries {
		return nil, fmt.Errorf("%w: %d entries exceeds max %d", errs.ErrInvalidDictionary, len(e.Dictionary), MaxDictionaryEntries)
	}

	size := 2
	for _, ent := range e.Dictionary {
		size += 1 + 2 + len(ent.Pattern)
	}
	size += 4 + len(e.Data)

	buf := make([]byte, size)
	off := 0

	engine.PutUint16(buf[off:], uint16(len(e.Dictionary)))
	off += 2

	for _, ent := range e.Dictionary {
		buf[off] = ent.Token
		off++
		engine.PutUint16(buf[off:], uint16(len(ent.Pattern)))
		off += 2
		off += copy(buf[off:], ent.Pattern)
	}

	engine.PutUint32(buf[off:], uint32(len(e.Data)))
	off += 4
	copy(buf[off:], e.Data)

	return buf, nil
}

// UnmarshalSection parses a Markqant section payload produced by
// MarshalSection.
func UnmarshalSection(b []byte) (Encoded, error) {
	if len(b) < 2 {
		return Encoded{}, fmt.Errorf("%w: markqant header", errs.ErrTruncatedPayload)
	}

	entryCount := int(engine.Uint16(b[0:2]))
	if entryCount > MaxDictionaryEntries {
		return Encoded{}, fmt.Errorf("%w: %d entries exceeds max %d", errs.ErrInvalidDictionary, entryCount, MaxDictionaryEntries)
	}

	off := 2
	dict := make(Dictionary, 0, entryCount)
	seen := make(map[byte]bool, entryCount)

	for i := 0; i < entryCount; i++ {
		if off+3 > len(b) {
			return Encoded{}, fmt.Errorf("%w: dictionary entry %d header", errs.ErrTruncatedPayload, i)
		}

		token := b[off]
		off++
		patLen := int(engine.Uint16(b[off:]))
		off += 2

		if off+patLen > len(b) {
			return Encoded{}, fmt.Errorf("%w: dictionary entry %d pattern", errs.ErrTruncatedPayload, i)
		}

		if token < firstToken {
			return Encoded{}, fmt.Errorf("%w: token 0x%02x below 0x80", errs.ErrInvalidDictionary, token)
		}
		if seen[token] {
			return Encoded{}, fmt.Errorf("%w: duplicate token 0x%02x", errs.ErrInvalidDictionary, token)
		}
		seen[token] = true

		dict = append(dict, Entry{Token: token, Pattern: string(b[off : off+patLen])})
		off += patLen
	}

	if off+4 > len(b) {
		return Encoded{}, fmt.Errorf("%w: encoded_len header", errs.ErrTruncatedPayload)
	}

	encodedLen := int(engine.Uint32(b[off:]))
	off += 4

	if off+encodedLen != len(b) {
		return Encoded{}, fmt.Errorf("%w: encoded_len %d does not match remaining %d bytes", errs.ErrTruncatedPayload, encodedLen, len(b)-off)
	}

	data := make([]byte, encodedLen)
	copy(data, b[off:])

	return Encoded{Dictionary: dict, Data: data}, nil
}

// DecodeText is a convenience that unmarshals a section payload and
// decodes it back to the original text in one call.
func DecodeText(b []byte) (string, error) {
	enc, err := UnmarshalSection(b)
	if err != nil {
		return "", err
	}

	return Decode(enc.Data, enc.Dictionary)
}

// EncodeText is a convenience that encodes text and marshals it to a
// section payload in one call.
func EncodeText(text string) ([]byte, error) {
	return Encode(text).MarshalSection()
}
