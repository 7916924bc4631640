package memspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpace() *MemorySpace {
	return New(Config{Blen: 64, W16Len: 16, W32Len: 8, W64Len: 4})
}

func TestGetSetBitsRoundTrip(t *testing.T) {
	m := newTestSpace()

	err := m.SetBits(3, []uint8{1, 0, 1})
	require.NoError(t, err)

	got, err := m.GetBits(0, 8)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 1, 0, 1, 0, 0}, got)
}

func TestSetBitsSingleBit(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.SetBits(5, []uint8{1}))
	got, err := m.GetBits(5, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1}, got)

	require.NoError(t, m.SetBits(5, []uint8{0}))
	got, err = m.GetBits(5, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0}, got)
}

func TestGetSetWordsRoundTrip(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.SetWords(Words16, 0, []uint64{1, 2, 3}))
	got, err := m.GetWords(Words16, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, got)
}

func TestSetWordsTruncatesModuloWidth(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.SetWords(Words16, 0, []uint64{0x1FFFF}))
	got, err := m.GetWords(Words16, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0xFFFF}, got)
}

func TestOutOfBoundsReadWrite(t *testing.T) {
	m := newTestSpace()

	_, err := m.GetWords(Words16, 15, 5)
	require.Error(t, err)
	var oob *OutOfBoundsError
	require.True(t, errors.As(err, &oob))
	assert.Equal(t, Words16, oob.Section)

	err = m.SetWords(Words16, 15, []uint64{1, 2, 3})
	require.Error(t, err)

	got, _ := m.GetWords(Words16, 0, 16)
	for _, v := range got {
		assert.Equal(t, uint64(0), v)
	}
}

func TestZeroLengthAccessIsValid(t *testing.T) {
	m := newTestSpace()

	got, err := m.GetWords(Words16, 16, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = m.GetWords(Words16, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransformSubstitutesOnRead(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.InstallTransform(Words16, 2, Transform{Low: 300, High: 400, Output: 321}))

	require.NoError(t, m.SetWords(Words16, 2, []uint64{350}))
	got, err := m.GetWords(Words16, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{321}, got)

	require.NoError(t, m.SetWords(Words16, 2, []uint64{999}))
	got, err = m.GetWords(Words16, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{999}, got)
}

func TestTransformLastInstalledWins(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.InstallTransform(Words16, 0, Transform{Low: 0, High: 10, Output: 1}))
	require.NoError(t, m.InstallTransform(Words16, 0, Transform{Low: 0, High: 10, Output: 2}))

	require.NoError(t, m.SetWords(Words16, 0, []uint64{5}))
	got, err := m.GetWords(Words16, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, got)
}

func TestCoilPackingOrderingIsLSBFirst(t *testing.T) {
	m := newTestSpace()

	require.NoError(t, m.SetBits(0, []uint8{1, 0, 0, 0, 0, 0, 0, 0}))
	got, err := m.GetBits(0, 8)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got[0])
	assert.Equal(t, byte(0x01), m.bits.bytes[0])

	m2 := newTestSpace()
	require.NoError(t, m2.SetBits(3, []uint8{1}))
	got2, err := m2.GetBits(0, 8)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 1, 0, 0, 0, 0}, got2)
	assert.Equal(t, byte(0x08), m2.bits.bytes[0])
}

func TestBlenRoundsUpToMultipleOf8(t *testing.T) {
	m := New(Config{Blen: 10})
	assert.Equal(t, uint32(16), m.Len(Bits))
	_, err := m.GetBits(8, 8)
	require.NoError(t, err)
	_, err = m.GetBits(8, 9)
	require.Error(t, err)
}
