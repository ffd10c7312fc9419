package block

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/signadot/tony-format/go-blocktree/debug"
)

// Magic starts every block on disk.
var Magic = [4]byte{0xd3, 'B', 'L', 'K'}

// HeaderSize is the size of the fixed header following the magic and the
// 2-byte header length.
const HeaderSize = 48

var (
	ErrBadMagic   = errors.New("bad block magic")
	ErrBadHeader  = errors.New("bad block header")
	ErrCompressed = errors.New("compressed blocks are not supported")
)

// header is the big-endian on-disk block header.
type header struct {
	Flags       uint32
	Compression [4]byte
	Allocated   uint64
	Used        uint64
	DataSize    uint64
	Checksum    [md5.Size]byte
}

// WriteTo writes every block in index order, each framed by its magic,
// header length and header.
func (m *Manager) WriteTo(w io.Writer) (int64, error) {
	return m.WriteBlocks(w, true)
}

// WriteBlocks is WriteTo with control over the header checksum. Without
// it the checksum is left zero, which readers take as "not recorded".
func (m *Manager) WriteBlocks(w io.Writer, checksums bool) (int64, error) {
	var n int64
	for _, b := range m.blocks {
		h := header{
			Allocated: uint64(len(b.data)),
			Used:      uint64(len(b.data)),
			DataSize:  uint64(len(b.data)),
		}
		if checksums {
			b.summed = false
			h.Checksum = b.Checksum()
		}
		if debug.Blocks() {
			debug.Logf("write block %d: %d bytes md5=%x\n", b.index, len(b.data), h.Checksum)
		}
		buf := bytes.NewBuffer(make([]byte, 0, 6+HeaderSize))
		buf.Write(Magic[:])
		binary.Write(buf, binary.BigEndian, uint16(HeaderSize))
		binary.Write(buf, binary.BigEndian, &h)
		k, err := w.Write(buf.Bytes())
		n += int64(k)
		if err != nil {
			return n, fmt.Errorf("block %d header: %w", b.index, err)
		}
		k, err = w.Write(b.data)
		n += int64(k)
		if err != nil {
			return n, fmt.Errorf("block %d data: %w", b.index, err)
		}
	}
	return n, nil
}

type readOpts struct {
	verify  bool
	mgrOpts []Option
}

type ReadOption func(*readOpts)

// VerifyChecksums controls whether block data is checked against the
// header's md5. It defaults to true.
func VerifyChecksums(v bool) ReadOption {
	return func(o *readOpts) { o.verify = v }
}

func ReadManagerOptions(opts ...Option) ReadOption {
	return func(o *readOpts) { o.mgrOpts = append(o.mgrOpts, opts...) }
}

// Read reads framed blocks until EOF into a new Manager.
func Read(r io.Reader, opts ...ReadOption) (*Manager, error) {
	o := &readOpts{verify: true}
	for _, opt := range opts {
		opt(o)
	}
	m := NewManager(o.mgrOpts...)
	for {
		var magic [4]byte
		_, err := io.ReadFull(r, magic[:])
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", m.Len(), err)
		}
		if magic != Magic {
			return nil, fmt.Errorf("%w at block %d: %x", ErrBadMagic, m.Len(), magic)
		}
		data, err := readBlock(r, m.Len(), o.verify)
		if err != nil {
			return nil, err
		}
		m.Append(data)
	}
}

func readBlock(r io.Reader, index int, verify bool) ([]byte, error) {
	var hsize uint16
	if err := binary.Read(r, binary.BigEndian, &hsize); err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}
	if hsize < HeaderSize {
		return nil, fmt.Errorf("%w: block %d header is %d bytes", ErrBadHeader, index, hsize)
	}
	raw := make([]byte, hsize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("block %d header: %w", index, err)
	}
	var h header
	if err := binary.Read(bytes.NewReader(raw), binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("block %d header: %w", index, err)
	}
	if h.Compression != [4]byte{} {
		return nil, fmt.Errorf("%w: block %d uses %q", ErrCompressed, index, bytes.TrimRight(h.Compression[:], "\x00"))
	}
	if h.Used > h.Allocated || h.DataSize != h.Used {
		return nil, fmt.Errorf("%w: block %d sizes allocated=%d used=%d data=%d", ErrBadHeader, index, h.Allocated, h.Used, h.DataSize)
	}
	if h.Allocated > math.MaxInt {
		return nil, fmt.Errorf("%w: block %d allocates %d bytes", ErrBadHeader, index, h.Allocated)
	}
	// the buffer grows with the bytes actually read, not with the header's claim
	var space bytes.Buffer
	if _, err := io.CopyN(&space, r, int64(h.Allocated)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("block %d data: %w", index, err)
	}
	data := space.Bytes()[:h.DataSize:h.DataSize]
	if verify && h.Checksum != [md5.Size]byte{} {
		if got := md5.Sum(data); got != h.Checksum {
			return nil, &ChecksumError{Index: index, Want: h.Checksum, Got: got}
		}
	}
	return data, nil
}

// ChecksumError reports block data that does not match its header.
type ChecksumError struct {
	Index int
	Want  [md5.Size]byte
	Got   [md5.Size]byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("block %d checksum mismatch: header %x, data %x", e.Index, e.Want, e.Got)
}
