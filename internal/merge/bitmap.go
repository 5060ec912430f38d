package merge

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// BitmapSet accumulates, per function/line key, the set of benchmark ids
// that exercised it. A roaring.Bitmap is used as the mutable accumulator
// because a full run ranges over thousands of sparse benchmark ids per
// function; the final on-disk representation is NOT roaring's own
// serialization, it is the dense, fixed-length, MSB-first byte layout the
// store persists, produced by Pack only once per flush.
type BitmapSet struct {
	bitmaps map[Key]*roaring.Bitmap
}

// NewBitmapSet returns an empty accumulator.
func NewBitmapSet() *BitmapSet {
	return &BitmapSet{bitmaps: make(map[Key]*roaring.Bitmap)}
}

// Mark ensures a bitmap exists for key and sets the bit for benchmarkID
// (benchmark id i maps to bit i-1).
func (s *BitmapSet) Mark(key Key, benchmarkID int64) {
	bm, ok := s.bitmaps[key]
	if !ok {
		bm = roaring.New()
		s.bitmaps[key] = bm
	}
	bm.Add(uint32(benchmarkID - 1))
}

// Keys returns every key with at least one bit set; order is unspecified.
func (s *BitmapSet) Keys() []Key {
	out := make([]Key, 0, len(s.bitmaps))
	for k := range s.bitmaps {
		out = append(out, k)
	}
	return out
}

// Pack renders the bitmap for key as a contiguous, MSB-first byte slice of
// length ceil(n/8), where bit index i (0-based) corresponds to benchmark id
// i+1. Bits for ids beyond the bitmap's recorded maximum are simply unset —
// the slice is always sized from n, the total benchmark count, not from the
// highest set bit.
func Pack(bm *roaring.Bitmap, n int) []byte {
	out := make([]byte, (n+7)/8)
	if bm == nil {
		return out
	}
	it := bm.Iterator()
	for it.HasNext() {
		bit := it.Next()
		if int(bit) >= n {
			continue
		}
		byteIdx := bit / 8
		// MSB-first within each byte: bit 0 of the vector is the most
		// significant bit of byte 0.
		shift := 7 - (bit % 8)
		out[byteIdx] |= 1 << shift
	}
	return out
}

// PackKey is a convenience wrapper around Pack for one key in the set,
// returning an all-zero slice of the right length if the key was never marked.
func (s *BitmapSet) PackKey(key Key, n int) []byte {
	return Pack(s.bitmaps[key], n)
}

// SetBits returns the 0-based bit indices set in a packed bitmap blob, in
// ascending order. Bit index i corresponds to benchmark id i+1.
func SetBits(data []byte) []int {
	var out []int
	for byteIdx, b := range data {
		for shift := 7; shift >= 0; shift-- {
			if b&(1<<shift) != 0 {
				out = append(out, byteIdx*8+(7-shift))
			}
		}
	}
	return out
}

// Popcount returns the number of set bits in a packed bitmap blob. For a
// completed store, every function's popcount equals its usage count; tests
// lean on this to verify bitmap/count consistency.
func Popcount(data []byte) int {
	count := 0
	for _, b := range data {
		for b != 0 {
			count += int(b & 1)
			b >>= 1
		}
	}
	return count
}

// ValidateLength returns an error unless data is exactly ceil(n/8) bytes.
func ValidateLength(data []byte, n int) error {
	want := (n + 7) / 8
	if len(data) != want {
		return fmt.Errorf("bitmap length %d, want %d for %d benchmarks", len(data), want, n)
	}
	return nil
}
