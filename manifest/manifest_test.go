package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `
[engine]
backend = "fock"
modes = 2
cutoff = 8
seed = 1234

[sweep]
squeeze = [0.0, 0.5, 1.0]
shift = [0.05, 0.1]
shots = [500]
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Engine.Backend != "fock" {
		t.Errorf("backend = %q, want fock", m.Engine.Backend)
	}
	if m.Engine.Cutoff != 8 {
		t.Errorf("cutoff = %d, want 8", m.Engine.Cutoff)
	}
	if m.Engine.Seed != 1234 {
		t.Errorf("seed = %d, want 1234", m.Engine.Seed)
	}
	if len(m.Sweep.Squeeze) != 3 || m.Sweep.Squeeze[1] != 0.5 {
		t.Errorf("squeeze grid = %v, want [0 0.5 1]", m.Sweep.Squeeze)
	}
	if m.Path == "" || !filepath.IsAbs(m.Path) {
		t.Errorf("path = %q, want absolute", m.Path)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Engine.Backend != "gaussian" {
		t.Errorf("default backend = %q, want gaussian", m.Engine.Backend)
	}
	if m.Engine.Modes != 1 || m.Engine.Seed != 42 {
		t.Errorf("default engine = %+v", m.Engine)
	}
	if len(m.Sweep.Squeeze) == 0 || len(m.Sweep.Shift) == 0 || len(m.Sweep.Shots) == 0 {
		t.Errorf("default sweep grids missing: %+v", m.Sweep)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[engine\nbackend="), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed TOML succeeded, want error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("making nested dir: %v", err)
	}
	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m == nil || m.Engine.Backend != "fock" {
		t.Errorf("FindAndLoad = %+v, want the fock manifest", m)
	}
}
