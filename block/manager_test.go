package block

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/signadot/tony-format/go-blocktree/ndarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterByIdentity(t *testing.T) {
	m := NewManager()
	a := ndarray.NewBuffer([]byte{1, 2, 3})
	b := ndarray.NewBuffer([]byte{1, 2, 3})

	ba := m.Register(a, "$.a")
	bb := m.Register(b, "$.b")
	again := m.Register(a, "$.c")

	require.Equal(t, 2, m.Len())
	assert.Equal(t, 0, ba.Index())
	assert.Equal(t, 1, bb.Index(), "equal bytes in another buffer must get their own block")
	assert.Same(t, ba, again)
	assert.Equal(t, []string{"$.a", "$.c"}, ba.Refs())
	assert.Same(t, a, ba.Buffer())
}

func TestRegisterDoesNotCopy(t *testing.T) {
	m := NewManager()
	data := []byte{9, 9}
	blk := m.Register(ndarray.NewBuffer(data), "")
	data[0] = 7
	assert.Equal(t, byte(7), blk.Data()[0])
	assert.Empty(t, blk.Refs())
}

func TestShouldInline(t *testing.T) {
	tests := []struct {
		count, threshold int
		want             bool
	}{
		{0, NoInline, false},
		{3, NoInline, false},
		{3, 64, true},
		{64, 64, true},
		{65, 64, false},
		{0, 0, true},
		{1, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldInline(tt.count, tt.threshold), "count=%d threshold=%d", tt.count, tt.threshold)
	}
}

func TestResolveRange(t *testing.T) {
	m := NewManager()
	m.Append([]byte{1})
	blk, err := m.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, blk.Data())

	_, err = m.Resolve(1)
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, 1, re.Len)

	_, err = m.Resolve(-1)
	require.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := NewManager()
	m.Register(ndarray.NewBuffer([]byte("hello")), "$.x")
	m.Register(ndarray.NewBuffer([]byte{}), "$.y")
	m.Register(ndarray.NewBuffer([]byte{0, 1, 2, 3, 4, 5, 6, 7}), "$.z")

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, 3*(4+2+HeaderSize)+5+0+8, buf.Len())

	got, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, m.Segments(), got.Segments())
	for i, blk := range got.Blocks() {
		assert.Equal(t, i, blk.Index())
		assert.Equal(t, md5.Sum(blk.Data()), blk.Checksum())
	}
}

func TestReadCorruption(t *testing.T) {
	m := NewManager()
	m.Register(ndarray.NewBuffer([]byte("payload")), "")
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.Bytes()

	flipped := bytes.Clone(raw)
	flipped[len(flipped)-1] ^= 0xff
	_, err = Read(bytes.NewReader(flipped))
	var ce *ChecksumError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Index)

	_, err = Read(bytes.NewReader(flipped), VerifyChecksums(false))
	require.NoError(t, err)

	badMagic := bytes.Clone(raw)
	badMagic[1] = 'X'
	_, err = Read(bytes.NewReader(badMagic))
	require.ErrorIs(t, err, ErrBadMagic)

	compressed := bytes.Clone(raw)
	copy(compressed[6+4:], "zlib")
	_, err = Read(bytes.NewReader(compressed))
	require.ErrorIs(t, err, ErrCompressed)

	_, err = Read(bytes.NewReader(raw[:len(raw)-2]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// allocated, used and data sizes sit at bytes 14, 22 and 30
	sized := func(n uint64) []byte {
		b := bytes.Clone(raw)
		for _, off := range []int{14, 22, 30} {
			binary.BigEndian.PutUint64(b[off:], n)
		}
		return b
	}
	_, err = Read(bytes.NewReader(sized(1 << 62)))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = Read(bytes.NewReader(sized(1 << 63)))
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestRollback(t *testing.T) {
	m := NewManager()
	keep := ndarray.NewBuffer([]byte{1})
	m.Register(keep, "$.a")
	mk := m.Mark()

	m.Register(keep, "$.b")
	drop := ndarray.NewBuffer([]byte{2})
	m.Register(drop, "$.c")
	require.Equal(t, 2, m.Len())

	m.Rollback(mk)
	require.Equal(t, 1, m.Len())
	blk, err := m.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"$.a"}, blk.Refs())

	again := m.Register(drop, "$.d")
	assert.Equal(t, 1, again.Index(), "a released buffer is registered afresh")
}
