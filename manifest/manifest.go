// Package manifest handles qbench.toml experiment configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file searched for by FindAndLoad.
const FileName = "qbench.toml"

// A Manifest configures an experiment sweep: which backend to run against and
// the parameter grids to cover.
type Manifest struct {
	Engine Engine `toml:"engine"`
	Sweep  Sweep  `toml:"sweep"`

	// Path is the location the manifest was loaded from (set at load time).
	Path string `toml:"-"`
}

// Engine selects and configures the simulation backend.
type Engine struct {
	Backend string `toml:"backend"`
	Modes   int    `toml:"modes"`
	Cutoff  int    `toml:"cutoff"`
	Seed    int64  `toml:"seed"`
}

// Sweep holds the parameter grids for the sensing benchmark.
type Sweep struct {
	Squeeze []float64 `toml:"squeeze"`
	Shift   []float64 `toml:"shift"`
	Shots   []int     `toml:"shots"`
}

// Load parses a manifest file from the given path and applies defaults.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Defaults
	if m.Engine.Backend == "" {
		m.Engine.Backend = "gaussian"
	}
	if m.Engine.Modes == 0 {
		m.Engine.Modes = 1
	}
	if m.Engine.Seed == 0 {
		m.Engine.Seed = 42
	}
	if len(m.Sweep.Squeeze) == 0 {
		m.Sweep.Squeeze = []float64{0.5}
	}
	if len(m.Sweep.Shift) == 0 {
		m.Sweep.Shift = []float64{0.1}
	}
	if len(m.Sweep.Shots) == 0 {
		m.Sweep.Shots = []int{100}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a qbench.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
