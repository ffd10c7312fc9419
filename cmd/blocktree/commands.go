package main

import (
	"fmt"
	"strconv"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, &cli.Opt{
		Name:        "o",
		Description: "output file (default stdout)",
		Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
	})

	return cli.NewCommandAt(&cfg.Main, "blocktree").
		WithSynopsis("blocktree [opts] command [opts]").
		WithDescription("blocktree inspects and builds documents holding a tree plus binary blocks.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return btMain(cfg, cc, args)
		}).
		WithSubs(
			InfoCommand(cfg),
			TreeCommand(cfg),
			TableCommand(cfg),
			DiffCommand(cfg),
			PackCommand(cfg))
}

func InfoCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &InfoConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Info, "info").
		WithAliases("i").
		WithSynopsis("info file [file...]").
		WithDescription("list the blocks of documents with their size, checksum and referrers").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return info(cfg, cc, args)
		})
}

func TreeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &TreeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Tree, "tree").
		WithAliases("t").
		WithSynopsis("tree file [file...]").
		WithDescription("print the tree section of documents").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return tree(cfg, cc, args)
		})
}

func TableCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &TableConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Table, "table").
		WithSynopsis("table [-key k] file").
		WithDescription("render a stored table as rows; masked cells show as --").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return showTable(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d").
		WithSynopsis("diff [-tree] a b").
		WithDescription("compare the trees and block checksums of two documents; exits 1 when they differ").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func PackCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PackConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "o",
			Description: "output file (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "inline",
			Description: "inline arrays of at most n elements; -1 never inlines",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.inlineOpt), "(n)"),
		})
	return cli.NewCommandAt(&cfg.Pack, "pack").
		WithAliases("p").
		WithSynopsis("pack [-o out] [-inline n] [-s] [-key k] file.csv").
		WithDescription("build a table from csv, inferring int64, float64 or ascii per column, and write it as a document").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return pack(cfg, cc, args)
		})
}

func (cfg *PackConfig) inlineOpt(_ *cli.Context, v string) (any, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: -inline: %w", cli.ErrUsage, err)
	}
	cfg.Inline = &n
	return n, nil
}
