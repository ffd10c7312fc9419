package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetKeepsOrder(t *testing.T) {
	obj := FromKeyVals(nil)
	obj.Set("name", FromString("a"))
	obj.Set("data", FromInt(1))
	obj.Set("unit", FromString("deg"))
	obj.Set("data", FromInt(2))

	var keys []string
	for _, f := range obj.Fields {
		keys = append(keys, f.String)
	}
	if diff := cmp.Diff([]string{"name", "data", "unit"}, keys); diff != "" {
		t.Errorf("field order (-want +got):\n%s", diff)
	}
	got, err := Get(obj, "data").AsInt()
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("data = %d, want 2", got)
	}
	if Get(obj, "missing") != nil {
		t.Errorf("expected nil for missing field")
	}
}

func TestPath(t *testing.T) {
	leaf := FromInt(3)
	cols := FromSlice([]*Node{FromKeyVals(nil), FromKeyVals([]KeyVal{{Key: FromString("data"), Val: leaf}})})
	root := FromKeyVals([]KeyVal{{Key: FromString("my table"), Val: FromKeyVals([]KeyVal{{Key: FromString("columns"), Val: cols}})}})

	if got, want := leaf.Path(), "$.'my table'.columns[1].data"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got, want := JoinIndex(Join("$", "t"), 2), "$.t[2]"; got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
	if root.Path() != "$" {
		t.Errorf("root path = %q", root.Path())
	}
	if leaf.Root() != root {
		t.Errorf("Root() did not reach the root")
	}
}

func TestReType(t *testing.T) {
	tests := []struct {
		in   string
		want *Node
	}{
		{"null", Null()},
		{"true", FromBool(true)},
		{"12", FromInt(12)},
		{"18446744073709551615", FromUint(18446744073709551615)},
		{"1.5", FromFloat(1.5)},
		{"abc", FromString("abc")},
	}
	for _, tt := range tests {
		n := FromString(tt.in)
		n.ReType()
		if Compare(n, tt.want) != 0 {
			t.Errorf("ReType(%q) = %+v", tt.in, n)
		}
	}
}

func TestAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"foo":    "bar",
		"n":      int64(3),
		"big":    uint64(1 << 63),
		"f":      2.5,
		"nested": map[string]any{"ok": true, "list": []any{int64(1), "x", nil}},
	}
	n, err := FromAny(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.ToAny()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(any(in), out); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	_, err = FromAny(struct{}{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
