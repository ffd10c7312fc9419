package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/document"
)

func info(cfg *InfoConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Info.Parse(cc, args)
	if err != nil {
		cfg.Info.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: info requires at least one file", cli.ErrUsage)
	}
	cs := cfg.colors(cc.Out)
	for _, arg := range args {
		d, err := cfg.readDoc(arg)
		if err != nil {
			return err
		}
		// decoding records the referrers of every block
		if _, err := d.Decode(); err != nil {
			return fmt.Errorf("error decoding %s: %w", arg, err)
		}
		writeInfo(cc.Out, cs, arg, d)
	}
	return nil
}

func writeInfo(w io.Writer, cs *colors, name string, d *document.Document) {
	fmt.Fprintf(w, "%s: version %s, %d blocks\n", cs.path.Sprint(name), d.Version, d.Blocks.Len())
	for _, key := range d.Keys() {
		n := d.Get(key)
		if n.Tag != "" {
			fmt.Fprintf(w, "  %s %s\n", key, n.Tag)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", key, n.Type)
	}
	for _, b := range d.Blocks.Blocks() {
		sum := b.Checksum()
		fmt.Fprintf(w, "  block %s %d bytes md5 %s\n",
			cs.index.Sprint(b.Index()), b.Len(), hex.EncodeToString(sum[:]))
		for _, ref := range b.Refs() {
			fmt.Fprintf(w, "    %s\n", cs.ref.Sprint(ref))
		}
	}
}
