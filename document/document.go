package document

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/signadot/tony-format/go-blocktree/block"
	"github.com/signadot/tony-format/go-blocktree/core"
	"github.com/signadot/tony-format/go-blocktree/ir"
)

const (
	// Magic opens the header line.
	Magic   = "#BLOCKTREE"
	Version = "1.0.0"
	// Tag marks the root of the tree.
	Tag = "!core/document"

	yamlDirective = "%YAML 1.1"
	docStart      = "---"
	docEnd        = "..."
)

var (
	ErrHeader  = errors.New("not a blocktree document")
	ErrVersion = errors.New("unsupported blocktree version")
	ErrTree    = errors.New("bad tree section")
	ErrRoot    = errors.New("document root must be a mapping")
)

// Document is a tree plus the blocks it references.
type Document struct {
	Version string
	Tree    *ir.Node
	Blocks  *block.Manager

	opts *options
}

// Encode converts v into a document without writing it. v must convert to
// a mapping; typically it is a map[string]any holding tables, columns and
// arrays among plain values.
func Encode(v any, opts ...Option) (*Document, error) {
	o := newOptions(opts)
	ctx := core.NewContext(block.NewManager(block.WithLogger(o.logger)), o.inline)
	tree, err := ctx.ConvertToTree(v)
	if err != nil {
		return nil, err
	}
	if tree.Type != ir.ObjectType || tree.Tag != "" {
		return nil, fmt.Errorf("%w, got %s %s", ErrRoot, tree.Type, tree.Tag)
	}
	tree.Tag = Tag
	o.logger.Debug("document encoded", "blocks", ctx.Blocks.Len(), "inline", o.inline)
	return &Document{Version: Version, Tree: tree, Blocks: ctx.Blocks, opts: o}, nil
}

// Write encodes v and writes it to w.
func Write(w io.Writer, v any, opts ...Option) error {
	d, err := Encode(v, opts...)
	if err != nil {
		return err
	}
	_, err = d.WriteTo(w)
	return err
}

func WriteFile(path string, v any, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, v, opts...); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteTo writes the header, the tree and then the blocks in index order.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	tree, err := EncodeTree(d.Tree)
	if err != nil {
		return 0, err
	}
	tree = bytes.TrimLeft(bytes.TrimPrefix(tree, []byte(docStart)), " ")
	var head bytes.Buffer
	fmt.Fprintf(&head, "%s %s\n%s\n%s\n", Magic, d.Version, yamlDirective, docStart)
	head.Write(tree)
	head.WriteString(docEnd + "\n")
	n, err := w.Write(head.Bytes())
	if err != nil {
		return int64(n), err
	}
	m, err := d.Blocks.WriteBlocks(w, d.options().checksums)
	return int64(n) + m, err
}

// Read parses a document. Blocks are loaded eagerly and checked against
// their checksums unless WithVerifyChecksums(false) is given.
func Read(r io.Reader, opts ...Option) (*Document, error) {
	o := newOptions(opts)
	br := bufio.NewReader(r)
	version, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	text, err := readTree(br)
	if err != nil {
		return nil, err
	}
	tree, err := DecodeTree(text)
	if err != nil {
		return nil, err
	}
	if tree.Type != ir.ObjectType || tree.Tag != Tag {
		return nil, fmt.Errorf("%w: root is a %s tagged %q", ErrTree, tree.Type, tree.Tag)
	}
	blocks, err := block.Read(br,
		block.VerifyChecksums(o.verify),
		block.ReadManagerOptions(block.WithLogger(o.logger)))
	if err != nil {
		return nil, err
	}
	o.logger.Debug("document read", "version", version, "blocks", blocks.Len())
	return &Document{Version: version, Tree: tree, Blocks: blocks, opts: o}, nil
}

func ReadFile(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return d, nil
}

// Load reads a document and converts its tree.
func Load(r io.Reader, opts ...Option) (map[string]any, error) {
	d, err := Read(r, opts...)
	if err != nil {
		return nil, err
	}
	return d.Decode()
}

// Decode converts the tree into in-memory values: tables, columns and
// arrays for tagged nodes, maps, slices and scalars for the rest.
// Block-backed arrays share the document's block buffers.
func (d *Document) Decode() (map[string]any, error) {
	v, err := d.Context().ConvertFromTree(d.Tree)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// Context binds the core converters to the document's blocks, for decoding
// single nodes.
func (d *Document) Context() *core.Context {
	return core.NewContext(d.Blocks, d.options().inline)
}

// Get returns the top-level tree entry key.
func (d *Document) Get(key string) *ir.Node {
	return ir.Get(d.Tree, key)
}

// Keys lists the top-level tree keys in document order.
func (d *Document) Keys() []string {
	res := make([]string, len(d.Tree.Fields))
	for i, f := range d.Tree.Fields {
		res[i] = f.String
	}
	return res
}

func (d *Document) options() *options {
	if d.opts == nil {
		d.opts = newOptions(nil)
	}
	return d.opts
}

func readHeader(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %w", ErrHeader, err)
	}
	magic, version, ok := strings.Cut(strings.TrimRight(line, "\r\n"), " ")
	if !ok || magic != Magic {
		return "", fmt.Errorf("%w: header %q", ErrHeader, strings.TrimSpace(line))
	}
	major, _, _ := strings.Cut(version, ".")
	if want, _, _ := strings.Cut(Version, "."); major != want {
		return "", fmt.Errorf("%w: %s", ErrVersion, version)
	}
	return version, nil
}

// readTree collects the YAML section up to and including the document end
// marker. The reader is left at the first block.
func readTree(br *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if strings.TrimRight(line, "\r\n") == docEnd {
			return buf.Bytes(), nil
		}
		buf.WriteString(line)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing %q", ErrTree, docEnd)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTree, err)
		}
	}
}

type options struct {
	inline    int
	logger    *slog.Logger
	checksums bool
	verify    bool
}

func newOptions(opts []Option) *options {
	o := &options{
		inline:    block.NoInline,
		logger:    slog.Default(),
		checksums: true,
		verify:    true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type Option func(*options)

// WithInlineThreshold writes arrays of at most n elements inline in the
// tree. The default, block.NoInline, puts every array in a block.
func WithInlineThreshold(n int) Option {
	return func(o *options) { o.inline = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithChecksums controls whether written block headers carry an md5.
func WithChecksums(v bool) Option {
	return func(o *options) { o.checksums = v }
}

func WithVerifyChecksums(v bool) Option {
	return func(o *options) { o.verify = v }
}
