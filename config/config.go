// Package config holds the settings shared by the blocktree commands,
// loaded from a YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/signadot/tony-format/go-blocktree/debug"
	"github.com/signadot/tony-format/go-blocktree/document"
)

const (
	EnvConfig          = "BLOCKTREE_CONFIG"
	EnvInlineThreshold = "BLOCKTREE_INLINE_THRESHOLD"
	EnvLogLevel        = "BLOCKTREE_LOG_LEVEL"
)

type Config struct {
	// InlineThreshold is the largest array, in elements, written inline.
	// Unset means never inline.
	InlineThreshold *int   `json:"inlineThreshold,omitempty"`
	Checksums       *bool  `json:"checksums,omitempty"`
	VerifyChecksums *bool  `json:"verifyChecksums,omitempty"`
	LogLevel        string `json:"logLevel,omitempty"`
	Pack            Pack   `json:"pack,omitempty"`
}

// Pack configures building tables from CSV.
type Pack struct {
	// Key is the top-level tree key of the packed table.
	Key       string `json:"key,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	// Structured stores all columns as fields of one record array, so the
	// table occupies a single block.
	Structured   bool              `json:"structured,omitempty"`
	Units        map[string]string `json:"units,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

func Default() *Config {
	return &Config{Pack: Pack{Key: "table", Delimiter: ","}}
}

// Load reads path over the defaults. Unknown fields are errors.
func Load(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(d, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("error decoding %s: %s", path, yaml.FormatError(err, false, true))
	}
	if debug.Codec() {
		debug.Logf("loaded config %s: ", path)
		debug.LogAny(cfg)
	}
	return cfg, cfg.Validate()
}

// Resolve loads path, or the file named by BLOCKTREE_CONFIG when path is
// empty, or the defaults when neither is set, and then applies the
// environment.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvInlineThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInlineThreshold, err)
		}
		c.InlineThreshold = &n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if len([]rune(c.Pack.Delimiter)) > 1 {
		return fmt.Errorf("pack delimiter %q must be a single character", c.Pack.Delimiter)
	}
	return nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// WriteOptions are the document options for writing.
func (c *Config) WriteOptions() []document.Option {
	var opts []document.Option
	if c.InlineThreshold != nil {
		opts = append(opts, document.WithInlineThreshold(*c.InlineThreshold))
	}
	if c.Checksums != nil {
		opts = append(opts, document.WithChecksums(*c.Checksums))
	}
	return opts
}

// ReadOptions are the document options for reading.
func (c *Config) ReadOptions() []document.Option {
	var opts []document.Option
	if c.VerifyChecksums != nil {
		opts = append(opts, document.WithVerifyChecksums(*c.VerifyChecksums))
	}
	return opts
}
