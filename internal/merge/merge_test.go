package merge

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fKey = Key{SourcePath: "src.cpp", StartLine: 10, StartCol: 0}

func TestInto_SumIsCommutative(t *testing.T) {
	t.Parallel()

	a := NewCoverageMap()
	a.Set(fKey, "f", 3)
	b := NewCoverageMap()
	b.Set(fKey, "f", 4)

	ab := NewCoverageMap()
	Into(ab, a, SUM)
	Into(ab, b, SUM)

	ba := NewCoverageMap()
	Into(ba, b, SUM)
	Into(ba, a, SUM)

	assert.Equal(t, ab.Entries()[0].Usage, ba.Entries()[0].Usage)
	assert.Equal(t, int64(7), ab.Entries()[0].Usage)
}

func TestInto_MaxIsIdempotentOnRepeatedMerge(t *testing.T) {
	t.Parallel()

	a := NewCoverageMap()
	a.Set(fKey, "f", 2)
	b := NewCoverageMap()
	b.Set(fKey, "f", 5)

	once := NewCoverageMap()
	Into(once, a, MAX)
	Into(once, b, MAX)

	twice := NewCoverageMap()
	Into(twice, a, MAX)
	Into(twice, b, MAX)
	Into(twice, b, MAX)

	assert.Equal(t, once.Entries()[0].Usage, twice.Entries()[0].Usage)
	assert.Equal(t, int64(5), once.Entries()[0].Usage)
}

func TestInto_NewKeysInsertedAsIs(t *testing.T) {
	t.Parallel()

	dst := NewCoverageMap()
	src := NewCoverageMap()
	src.Set(Key{SourcePath: "src.cpp", StartLine: 30}, "g", 1)

	Into(dst, src, SUM)
	require.Equal(t, 1, dst.Len())
	assert.Equal(t, "g", dst.Entries()[0].Name)
}

func TestPack_MSBFirstBitOrder(t *testing.T) {
	t.Parallel()

	bm := roaring.New()
	bm.Add(0) // benchmark id 1
	bm.Add(1) // benchmark id 2

	data := Pack(bm, 2)
	require.Len(t, data, 1)
	assert.Equal(t, byte(0b11000000), data[0])
}

func TestPack_LengthIsCeilN8(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 8, 9, 16, 17} {
		data := Pack(roaring.New(), n)
		assert.Equal(t, (n+7)/8, len(data))
	}
}

func TestPack_TwoBenchmarkBitmaps(t *testing.T) {
	t.Parallel()

	// f touched by benchmarks 1 and 2 -> bitmap 11000000
	f := roaring.New()
	f.Add(0)
	f.Add(1)
	assert.Equal(t, []byte{0b11000000}, Pack(f, 2))

	// g touched by benchmark 2 only -> bitmap 01000000
	g := roaring.New()
	g.Add(1)
	assert.Equal(t, []byte{0b01000000}, Pack(g, 2))
}

func TestSetBits_RoundTripsPack(t *testing.T) {
	t.Parallel()

	bm := roaring.New()
	bm.Add(0)
	bm.Add(9)
	data := Pack(bm, 16)
	assert.Equal(t, []int{0, 9}, SetBits(data))
	assert.Empty(t, SetBits([]byte{0, 0}))
}

func TestPopcount_MatchesBitCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, Popcount([]byte{0b11000000}))
	assert.Equal(t, 0, Popcount([]byte{0, 0}))
	assert.Equal(t, 8, Popcount([]byte{0xFF}))
}

func TestValidateLength(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateLength([]byte{0}, 8))
	require.Error(t, ValidateLength([]byte{0}, 9))
}

func TestBitmapSet_PackKeyUnmarkedIsAllZero(t *testing.T) {
	t.Parallel()

	s := NewBitmapSet()
	data := s.PackKey(Key{SourcePath: "x", StartLine: 1}, 16)
	assert.Equal(t, []byte{0, 0}, data)
}

func TestBitmapSet_MarkThenPack(t *testing.T) {
	t.Parallel()

	s := NewBitmapSet()
	k := Key{SourcePath: "src.cpp", StartLine: 10}
	s.Mark(k, 1)
	s.Mark(k, 2)

	data := s.PackKey(k, 2)
	assert.Equal(t, []byte{0b11000000}, data)
	assert.Equal(t, 2, Popcount(data))
}
