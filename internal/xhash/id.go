// Package xhash provides a fast, non-cryptographic string hash used for
// internal lookup keys: the Markqant n-gram frequency table keys.
//
// It is deliberately not used for grid identity projection — that
// projection is fixed to the DJB2 variant in package identity and must
// never be substituted (spec.md §9).
package xhash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
