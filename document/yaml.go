package document

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/signadot/tony-format/go-blocktree/debug"
	"github.com/signadot/tony-format/go-blocktree/ir"
	"gopkg.in/yaml.v3"
)

// EncodeTree renders a tree as a YAML document body. Tags are written as
// YAML local tags.
func EncodeTree(n *ir.Node) ([]byte, error) {
	y, err := toYAML(n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(y); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTree, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTree, err)
	}
	return buf.Bytes(), nil
}

// DecodeTree parses one YAML document into a tree.
func DecodeTree(d []byte) (*ir.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(d, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTree, err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrTree)
	}
	return fromYAML(&doc)
}

func toYAML(n *ir.Node) (*yaml.Node, error) {
	y := &yaml.Node{Tag: n.Tag}
	switch n.Type {
	case ir.NullType:
		y.Kind, y.Value = yaml.ScalarNode, "null"
		if y.Tag == "" {
			y.Tag = "!!null"
		}
	case ir.BoolType:
		y.Kind, y.Value = yaml.ScalarNode, strconv.FormatBool(n.Bool)
		if y.Tag == "" {
			y.Tag = "!!bool"
		}
	case ir.StringType:
		y.Kind, y.Value = yaml.ScalarNode, n.String
		if y.Tag == "" {
			y.Tag = "!!str"
		}
		if strings.Contains(n.String, "\n") {
			y.Style = yaml.LiteralStyle
		}
	case ir.NumberType:
		y.Kind = yaml.ScalarNode
		tag := "!!int"
		switch {
		case n.Int64 != nil:
			y.Value = strconv.FormatInt(*n.Int64, 10)
		case n.Float64 != nil:
			y.Value, tag = formatFloat(*n.Float64), "!!float"
		default:
			y.Value = n.Number
		}
		if y.Tag == "" {
			y.Tag = tag
		}
	case ir.ArrayType:
		y.Kind = yaml.SequenceNode
		if y.Tag == "" {
			y.Tag = "!!seq"
		}
		leaves := true
		for _, v := range n.Values {
			c, err := toYAML(v)
			if err != nil {
				return nil, err
			}
			leaves = leaves && v.Type.IsLeaf() && !strings.Contains(c.Value, "\n")
			y.Content = append(y.Content, c)
		}
		if leaves && len(n.Values) != 0 {
			y.Style = yaml.FlowStyle
		}
	case ir.ObjectType:
		y.Kind = yaml.MappingNode
		if y.Tag == "" {
			y.Tag = "!!map"
		}
		for i, f := range n.Fields {
			if f.Type != ir.StringType {
				return nil, fmt.Errorf("%w: %s key at %s", ErrTree, f.Type, n.Path())
			}
			v, err := toYAML(n.Values[i])
			if err != nil {
				return nil, err
			}
			y.Content = append(y.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.String}, v)
		}
	default:
		return nil, fmt.Errorf("%w: %s node at %s", ErrTree, n.Type, n.Path())
	}
	return y, nil
}

// formatFloat always marks the value as a float, so 2.0 does not read back
// as an integer.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func fromYAML(y *yaml.Node) (*ir.Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) != 1 {
			return nil, fmt.Errorf("%w: document with %d roots", ErrTree, len(y.Content))
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.ScalarNode:
		return scalar(y)
	case yaml.SequenceNode:
		vals := make([]*ir.Node, len(y.Content))
		for i, c := range y.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return ir.FromSlice(vals).WithTag(localTag(y)), nil
	case yaml.MappingNode:
		kvs := make([]ir.KeyVal, 0, len(y.Content)/2)
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: non-scalar key at line %d", ErrTree, k.Line)
			}
			v, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			kvs = append(kvs, ir.KeyVal{Key: ir.FromString(k.Value), Val: v})
		}
		return ir.FromKeyVals(kvs).WithTag(localTag(y)), nil
	}
	return nil, fmt.Errorf("%w: unexpected yaml node kind %d at line %d", ErrTree, y.Kind, y.Line)
}

// localTag is the node's tag unless it is one of the standard "!!" tags.
func localTag(y *yaml.Node) string {
	tag := y.ShortTag()
	if strings.HasPrefix(tag, "!!") {
		return ""
	}
	return tag
}

func scalar(y *yaml.Node) (*ir.Node, error) {
	tag := localTag(y)
	resolved := y
	if tag != "" {
		// A locally tagged scalar keeps the type its text implies.
		plain := *y
		plain.Tag = ""
		resolved = &plain
	}
	var res *ir.Node
	switch resolved.ShortTag() {
	case "!!null":
		res = ir.Null()
	case "!!bool":
		var b bool
		if err := resolved.Decode(&b); err != nil {
			return nil, scalarErr(y, err)
		}
		res = ir.FromBool(b)
	case "!!int":
		var i int64
		if err := resolved.Decode(&i); err == nil {
			res = ir.FromInt(i)
			break
		}
		var u uint64
		if err := resolved.Decode(&u); err != nil {
			return nil, scalarErr(y, err)
		}
		res = ir.FromUint(u)
	case "!!float":
		var f float64
		if err := resolved.Decode(&f); err != nil {
			return nil, scalarErr(y, err)
		}
		res = ir.FromFloat(f)
	default:
		res = ir.FromString(y.Value)
	}
	if debug.Codec() {
		debug.Logf("yaml scalar line %d: %s %q\n", y.Line, res.Type, y.Value)
	}
	return res.WithTag(tag), nil
}

func scalarErr(y *yaml.Node, err error) error {
	return fmt.Errorf("%w: line %d: %q: %w", ErrTree, y.Line, y.Value, err)
}
