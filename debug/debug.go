package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Blocks  bool
	Convert bool
	Codec   bool
}

var d *debug

func init() {
	d = &debug{}
	d.Blocks = boolEnv("BLOCKTREE_DEBUG_BLOCKS")
	d.Convert = boolEnv("BLOCKTREE_DEBUG_CONVERT")
	d.Codec = boolEnv("BLOCKTREE_DEBUG_CODEC")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Blocks traces block registration and framing.
func Blocks() bool {
	return d.Blocks
}

// Convert traces node conversion.
func Convert() bool {
	return d.Convert
}

// Codec traces tree encoding and decoding.
func Codec() bool {
	return d.Codec
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(d)
	os.Stderr.Write([]byte{'\n'})
}
