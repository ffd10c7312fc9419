package block

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"slices"

	"github.com/signadot/tony-format/go-blocktree/ndarray"
)

// NoInline is the threshold value meaning "never inline".
const NoInline = -1

// Block is one contiguous binary segment of a document.
type Block struct {
	index    int
	data     []byte
	buffer   *ndarray.Buffer
	checksum [md5.Size]byte
	summed   bool
	refs     []string
}

// Index is the block's position in the document, fixed once assigned.
func (b *Block) Index() int { return b.index }

func (b *Block) Data() []byte { return b.data }

func (b *Block) Len() int { return len(b.data) }

// Buffer returns the allocation the block's bytes live in. All arrays
// resolved from one block share this Buffer.
func (b *Block) Buffer() *ndarray.Buffer {
	if b.buffer == nil {
		b.buffer = ndarray.NewBuffer(b.data)
	}
	return b.buffer
}

// Checksum is the md5 of the block data.
func (b *Block) Checksum() [md5.Size]byte {
	if !b.summed {
		b.checksum = md5.Sum(b.data)
		b.summed = true
	}
	return b.checksum
}

// Refs lists the tree paths that reference the block, in registration
// order.
func (b *Block) Refs() []string { return slices.Clone(b.refs) }

func (b *Block) addRef(ref string) {
	if ref == "" || slices.Contains(b.refs, ref) {
		return
	}
	b.refs = append(b.refs, ref)
}

// Manager owns the ordered blocks of one document. Blocks may only be added
// through Register (save) or Append (load), which is what keeps at most one
// block per Buffer.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	blocks   []*Block
	byBuffer map[*ndarray.Buffer]*Block
	logger   *slog.Logger
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		byBuffer: map[*ndarray.Buffer]*Block{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register returns the block holding buf, allocating the next index the
// first time buf is seen. Lookup is by identity: equal bytes in different
// buffers get different blocks. The buffer's bytes are not copied. ref is
// the tree path of the referencing node, recorded for diagnostics.
func (m *Manager) Register(buf *ndarray.Buffer, ref string) *Block {
	if b, ok := m.byBuffer[buf]; ok {
		b.addRef(ref)
		m.logger.Debug("block shared", "index", b.index, "ref", ref)
		return b
	}
	b := &Block{
		index:  len(m.blocks),
		data:   buf.Bytes(),
		buffer: buf,
	}
	b.addRef(ref)
	m.blocks = append(m.blocks, b)
	m.byBuffer[buf] = b
	m.logger.Debug("block allocated", "index", b.index, "size", len(b.data), "ref", ref)
	return b
}

// Append adds a block read from a document and returns its index.
func (m *Manager) Append(data []byte) int {
	b := &Block{index: len(m.blocks), data: data}
	m.blocks = append(m.blocks, b)
	m.byBuffer[b.Buffer()] = b
	return b.index
}

// Mark records the manager's state for a later Rollback.
type Mark struct {
	n    int
	refs []int
}

func (m *Manager) Mark() Mark {
	mk := Mark{n: len(m.blocks), refs: make([]int, len(m.blocks))}
	for i, b := range m.blocks {
		mk.refs[i] = len(b.refs)
	}
	return mk
}

// Rollback forgets every block registered since mk was taken, and every
// reference recorded on older blocks since then.
func (m *Manager) Rollback(mk Mark) {
	for _, b := range m.blocks[mk.n:] {
		delete(m.byBuffer, b.Buffer())
		m.logger.Debug("block released", "index", b.index)
	}
	clear(m.blocks[mk.n:])
	m.blocks = m.blocks[:mk.n]
	for i, b := range m.blocks {
		b.refs = b.refs[:mk.refs[i]]
	}
}

// Resolve maps a block index from the tree to its block.
func (m *Manager) Resolve(i int) (*Block, error) {
	if i < 0 || i >= len(m.blocks) {
		return nil, &RangeError{Index: i, Len: len(m.blocks)}
	}
	return m.blocks[i], nil
}

// Reference resolves i and records ref as one of its referrers.
func (m *Manager) Reference(i int, ref string) (*Block, error) {
	b, err := m.Resolve(i)
	if err != nil {
		return nil, err
	}
	b.addRef(ref)
	return b, nil
}

// Len is the number of blocks.
func (m *Manager) Len() int { return len(m.blocks) }

// Blocks returns the blocks in index order.
func (m *Manager) Blocks() []*Block { return slices.Clone(m.blocks) }

// Segments returns each block's bytes in index order.
func (m *Manager) Segments() [][]byte {
	res := make([][]byte, len(m.blocks))
	for i, b := range m.blocks {
		res[i] = b.data
	}
	return res
}

// ShouldInline decides whether an array of count elements is written into
// the tree instead of a block. A threshold of NoInline (or any negative
// value) never inlines.
func ShouldInline(count, threshold int) bool {
	if threshold < 0 {
		return false
	}
	return count <= threshold
}

// RangeError reports a tree reference to a block that does not exist.
type RangeError struct {
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("block index %d out of range: document has %d blocks", e.Index, e.Len)
}
