package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/config"
	"github.com/signadot/tony-format/go-blocktree/document"
)

type MainConfig struct {
	Verbose    bool   `cli:"name=v aliases=verbose desc='log at debug level'"`
	Color      bool   `cli:"name=color desc='colour output'"`
	Gops       bool   `cli:"name=gops desc='start a gops diagnostics agent'"`
	ConfigFile string `cli:"name=config desc='configuration file (default $BLOCKTREE_CONFIG)'"`

	Out      string
	CloseOut func() error

	conf *config.Config
	log  *slog.Logger

	Main *cli.Command
}

func (cfg *MainConfig) readDoc(path string) (*document.Document, error) {
	opts := append(cfg.conf.ReadOptions(), document.WithLogger(cfg.log))
	if path == "-" {
		return document.Read(os.Stdin, opts...)
	}
	return document.ReadFile(path, opts...)
}

// useColor reports whether output to w is coloured: always with -color,
// otherwise when w is a terminal.
func (cfg *MainConfig) useColor(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

type colors struct {
	path, index, ref, head, masked *color.Color
}

func (cfg *MainConfig) colors(w io.Writer) *colors {
	return newColors(cfg.useColor(w))
}

func newColors(enabled bool) *colors {
	res := &colors{
		path:   color.New(color.Bold),
		index:  color.New(color.FgCyan),
		ref:    color.New(color.FgGreen),
		head:   color.New(color.Bold, color.Underline),
		masked: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{res.path, res.index, res.ref, res.head, res.masked} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return res
}

type InfoConfig struct {
	*MainConfig

	Info *cli.Command
}

type TreeConfig struct {
	*MainConfig

	Tree *cli.Command
}

type TableConfig struct {
	*MainConfig
	Key string `cli:"name=key aliases=k desc='top-level key of the table (default from config)'"`

	Table *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Tree bool `cli:"name=tree desc='compare the trees only'"`

	Diff *cli.Command
}

type PackConfig struct {
	*MainConfig
	Key        string `cli:"name=key aliases=k desc='top-level key of the table (default from config)'"`
	Structured bool   `cli:"name=s aliases=structured desc='store all columns in one record block'"`

	Inline *int

	Pack *cli.Command
}
