package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/document"
	"github.com/signadot/tony-format/go-blocktree/libdiff"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires two files", cli.ErrUsage)
	}
	from, err := cfg.readDoc(args[0])
	if err != nil {
		return err
	}
	to, err := cfg.readDoc(args[1])
	if err != nil {
		return err
	}
	n := writeDiff(cc.Out, from, to, !cfg.Tree)
	cfg.log.Debug("diff", "from", args[0], "to", args[1], "changes", n)
	if n != 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// writeDiff writes the tree changes and, with blocks set, the blocks whose
// checksums differ. It returns the number of differences written.
func writeDiff(w io.Writer, from, to *document.Document, blocks bool) int {
	n := 0
	if from.Version != to.Version {
		fmt.Fprintf(w, "version %s -> %s\n", from.Version, to.Version)
		n++
	}
	for _, c := range libdiff.Diff(from.Tree, to.Tree) {
		fmt.Fprintln(w, c)
		n++
	}
	if !blocks {
		return n
	}
	fb, tb := from.Blocks.Blocks(), to.Blocks.Blocks()
	for i := range max(len(fb), len(tb)) {
		switch {
		case i >= len(fb):
			fmt.Fprintf(w, "insert block %d: %d bytes\n", i, tb[i].Len())
		case i >= len(tb):
			fmt.Fprintf(w, "delete block %d: %d bytes\n", i, fb[i].Len())
		default:
			fs, ts := fb[i].Checksum(), tb[i].Checksum()
			if bytes.Equal(fs[:], ts[:]) {
				continue
			}
			fmt.Fprintf(w, "replace block %d: %d bytes %x -> %d bytes %x\n", i, fb[i].Len(), fs, tb[i].Len(), ts)
		}
		n++
	}
	return n
}
