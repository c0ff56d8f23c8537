// Package identity projects external identifiers — filesystem paths, git
// commit hashes, or any other byte-string name — onto a grid coordinate
// using a DJB2-variant hash.
//
// The hash is intentionally not cryptographic: collisions are expected,
// and collisions are the mechanism by which related paths end up sharing
// spatial locality in the grid (spec.md §3, §9).
package identity

// djb2Seed is the traditional DJB2 starting value.
const djb2Seed = 5381

// Hash computes the DJB2-variant hash of data: h = ((h<<5)+h) + b for
// every byte b, seeded at 5381.
func Hash(data []byte) uint64 {
	h := uint64(djb2Seed)
	for _, b := range data {
		h = (h<<5)+h + uint64(b)
	}

	return h
}

// Project maps name onto an (x, y) grid coordinate. Z is assigned
// externally by the caller (a depth counter, a temporal slot, etc.) and
// is not part of this projection.
func Project(name []byte) (x, y uint8) {
	h := Hash(name)
	x = uint8(h & 0xFF)
	y = uint8((h >> 8) & 0xFF)

	return x, y
}

// ProjectString is a convenience wrapper around Project for string input.
func ProjectString(name string) (x, y uint8) {
	return Project([]byte(name))
}
