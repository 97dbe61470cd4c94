package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents an optional xrfc.toml project configuration file,
// grounded on chazu-maggie's manifest package: a thin TOML struct with a
// directory-walking loader, no schema validation beyond what
// BurntSushi/toml does for us.
type Config struct {
	Build BuildConfig `toml:"build"`

	// Dir is the directory containing the loaded xrfc.toml, empty if no
	// file was found and defaults are in effect.
	Dir string `toml:"-"`
}

// BuildConfig holds the project-wide defaults main.go falls back to when
// the corresponding flag wasn't passed on the command line.
type BuildConfig struct {
	OptLevel   int    `toml:"opt-level"`
	Output     string `toml:"output"`
	CacheDir   string `toml:"cache-dir"`
	DumpChunks bool   `toml:"dump-chunks"`
}

// defaultConfig returns the configuration in effect when no xrfc.toml is
// found: full optimization, cache alongside the default cache directory.
func defaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			OptLevel: 2,
			CacheDir: ".xrfc-cache",
		},
	}
}

// LoadConfig parses xrfc.toml from dir. A missing file is not an error;
// it returns defaultConfig() instead, matching chazu-maggie's
// FindAndLoad convention of treating "no manifest" as a valid state
// rather than a fatal one.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, "xrfc.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return cfg, nil
}

// FindConfig walks up from startDir looking for xrfc.toml, the way
// chazu-maggie's FindAndLoad walks up looking for maggie.toml. It stops
// at the filesystem root and falls back to defaultConfig() if nothing is
// found.
func FindConfig(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "xrfc.toml")
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return defaultConfig(), nil
		}
		dir = parent
	}
}
