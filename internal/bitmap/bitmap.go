// Package bitmap implements the fixed-length bit array used to track the
// shared/private attribute of every page in a bound memory region.
package bitmap

import (
	"github.com/bits-and-blooms/bitset"
)

// Bitmap is a fixed-length bit array of Len() bits. Bit i set means page i
// is shared (populated); clear means private (discarded).
type Bitmap struct {
	bits *bitset.BitSet
	n    uint64
}

// New allocates a bitmap of n bits, all clear.
func New(n uint64) *Bitmap {
	return &Bitmap{
		bits: bitset.New(uint(n)),
		n:    n,
	}
}

// Len returns the bitmap's fixed length in bits.
func (b *Bitmap) Len() uint64 {
	return b.n
}

// Test reports whether bit i is set. i must be < Len().
func (b *Bitmap) Test(i uint64) bool {
	return b.bits.Test(uint(i))
}

// SetRange sets [start, start+count) to 1.
func (b *Bitmap) SetRange(start, count uint64) {
	for i := start; i < start+count; i++ {
		b.bits.Set(uint(i))
	}
}

// ClearRange clears [start, start+count) to 0.
func (b *Bitmap) ClearRange(start, count uint64) {
	for i := start; i < start+count; i++ {
		b.bits.Clear(uint(i))
	}
}

// FindNextSet returns the index of the first set bit at or after start, or
// Len() if none exists. start == Len() returns Len().
func (b *Bitmap) FindNextSet(start uint64) uint64 {
	if start >= b.n {
		return b.n
	}
	idx, ok := b.bits.NextSet(uint(start))
	if !ok || uint64(idx) >= b.n {
		return b.n
	}
	return uint64(idx)
}

// FindNextClear returns the index of the first clear bit at or after start,
// or Len() if none exists. start == Len() returns Len().
func (b *Bitmap) FindNextClear(start uint64) uint64 {
	if start >= b.n {
		return b.n
	}
	idx, ok := b.bits.NextClear(uint(start))
	if !ok || uint64(idx) >= b.n {
		return b.n
	}
	return uint64(idx)
}

// RangeAllSet reports whether every bit in [start, start+count) is set.
// count must be > 0.
func (b *Bitmap) RangeAllSet(start, count uint64) bool {
	last := start + count - 1
	firstClear := b.FindNextClear(start)
	return firstClear > last
}

// RangeAllClear reports whether every bit in [start, start+count) is clear.
// count must be > 0.
func (b *Bitmap) RangeAllClear(start, count uint64) bool {
	last := start + count - 1
	firstSet := b.FindNextSet(start)
	return firstSet > last
}

// Count returns the number of set bits, for diagnostics.
func (b *Bitmap) Count() uint64 {
	return uint64(b.bits.Count())
}
