// Package chain holds the data model shared by every component of the
// chain-reading engine: chain Points, decoded Blocks, auxiliary data,
// scroll descriptors and registry entries.
package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HeaderHashSize is the fixed width of a Blake2b-256 block-header hash.
const HeaderHashSize = 32

// Point is a chain coordinate: a slot number paired with the Blake2b-256
// hash of the block header at that slot. The zero value with a nil Hash
// represents Origin.
type Point struct {
	Slot uint64
	Hash []byte // nil for Origin, else exactly HeaderHashSize bytes
}

// Origin is the distinguished point before the first block of the chain.
var Origin = Point{}

// IsOrigin reports whether p is the Origin point.
func (p Point) IsOrigin() bool {
	return len(p.Hash) == 0
}

// Equal reports byte-exact equality, per spec.md §8's Point-equality invariant.
func (p Point) Equal(o Point) bool {
	if p.Slot != o.Slot {
		return false
	}
	return bytes.Equal(p.Hash, o.Hash)
}

// Less orders points by slot then by hash, per spec.md §3.
func (p Point) Less(o Point) bool {
	if p.Slot != o.Slot {
		return p.Slot < o.Slot
	}
	return bytes.Compare(p.Hash, o.Hash) < 0
}

// String renders the point as "slot@hash" (or "origin") for log lines.
func (p Point) String() string {
	if p.IsOrigin() {
		return "origin"
	}
	return fmt.Sprintf("%d@%s", p.Slot, hex.EncodeToString(p.Hash))
}

// NewPoint validates hash length and constructs a Point.
func NewPoint(slot uint64, hash []byte) (Point, error) {
	if len(hash) != HeaderHashSize {
		return Point{}, &MalformedError{Where: fmt.Sprintf("point header hash must be %d bytes, got %d", HeaderHashSize, len(hash))}
	}
	cp := make([]byte, HeaderHashSize)
	copy(cp, hash)
	return Point{Slot: slot, Hash: cp}, nil
}
