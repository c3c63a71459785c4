package cborutil

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 computes the 32-byte Blake2b-256 digest used throughout the
// Ouroboros wire format for header hashes and transaction ids.
func Blake2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}
