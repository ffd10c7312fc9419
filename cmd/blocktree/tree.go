package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/document"
)

func tree(cfg *TreeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Tree.Parse(cc, args)
	if err != nil {
		cfg.Tree.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: tree requires at least one file", cli.ErrUsage)
	}
	for i, arg := range args {
		d, err := cfg.readDoc(arg)
		if err != nil {
			return err
		}
		text, err := document.EncodeTree(d.Tree)
		if err != nil {
			return fmt.Errorf("error encoding tree of %s: %w", arg, err)
		}
		if i > 0 {
			fmt.Fprintln(cc.Out, "---")
		}
		if _, err := cc.Out.Write(text); err != nil {
			return err
		}
	}
	return nil
}
