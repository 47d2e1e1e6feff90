// Package config loads ucc's project-level settings from a ucc.yaml file,
// promoting gopkg.in/yaml.v3 (already an indirect dependency of the
// teacher's stack, pulled in transitively via tliron/kutil) to direct use.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is ucc's project configuration, loaded from a ucc.yaml file
// sitting next to the sources it compiles.
type Config struct {
	// Optimize is the default optimization level when -optimize isn't
	// passed on the command line: 0 disables internal/optimizer entirely,
	// 1 runs the full default pipeline.
	Optimize int `yaml:"optimize"`

	// DOTDir is where -dot writes a <function>.dot file per function,
	// relative to the current working directory.
	DOTDir string `yaml:"dot_dir"`

	// ErrorFormat selects internal/errors' diagnostic rendering: "text"
	// (default, human-readable) or "json" (machine-readable, one object
	// per diagnostic).
	ErrorFormat string `yaml:"error_format"`
}

// Default returns the configuration ucc uses when no ucc.yaml is present.
func Default() Config {
	return Config{
		Optimize:    1,
		DOTDir:      "",
		ErrorFormat: "text",
	}
}

// Load reads and parses path, filling in Default() for any field ucc.yaml
// leaves unset. A missing file is not an error — callers get Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	var overlay struct {
		Optimize    *int    `yaml:"optimize"`
		DOTDir      *string `yaml:"dot_dir"`
		ErrorFormat *string `yaml:"error_format"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if overlay.Optimize != nil {
		cfg.Optimize = *overlay.Optimize
	}
	if overlay.DOTDir != nil {
		cfg.DOTDir = *overlay.DOTDir
	}
	if overlay.ErrorFormat != nil {
		cfg.ErrorFormat = *overlay.ErrorFormat
	}

	if cfg.ErrorFormat != "text" && cfg.ErrorFormat != "json" {
		return cfg, fmt.Errorf("%s: error_format must be \"text\" or \"json\", got %q", path, cfg.ErrorFormat)
	}

	return cfg, nil
}
