package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.GC.HeapGrowFactor != 2.0 {
		t.Errorf("HeapGrowFactor = %v, want 2.0", cfg.GC.HeapGrowFactor)
	}
	if cfg.GC.InitialThreshold != 1024*1024 {
		t.Errorf("InitialThreshold = %v, want 1MiB", cfg.GC.InitialThreshold)
	}
	if cfg.Debug.TraceExecution || cfg.Debug.PrintCode || cfg.Debug.StressGC || cfg.Debug.LogGC {
		t.Error("debug knobs should default to false")
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with no lox.yaml should not error, got %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
gc:
  heapGrowFactor: 1.5
  initialThreshold: 2048
debug:
  traceExecution: true
  logGC: true
`
	if err := os.WriteFile(filepath.Join(dir, "lox.yaml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GC.HeapGrowFactor != 1.5 {
		t.Errorf("HeapGrowFactor = %v, want 1.5", cfg.GC.HeapGrowFactor)
	}
	if cfg.GC.InitialThreshold != 2048 {
		t.Errorf("InitialThreshold = %v, want 2048", cfg.GC.InitialThreshold)
	}
	if !cfg.Debug.TraceExecution {
		t.Error("traceExecution should be true")
	}
	if !cfg.Debug.LogGC {
		t.Error("logGC should be true")
	}
	if cfg.Debug.PrintCode {
		t.Error("printCode was not set in the file, should remain false")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lox.yaml"), []byte("gc: [not a mapping"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected an error unmarshaling malformed YAML")
	}
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	contents := "debug:\n  traceExecution: false\n"
	if err := os.WriteFile(filepath.Join(dir, "lox.yaml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOX_TRACE", "true")
	t.Setenv("LOX_STRESS_GC", "1")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug.TraceExecution {
		t.Error("LOX_TRACE=true should override the file's false")
	}
	if !cfg.Debug.StressGC {
		t.Error("LOX_STRESS_GC=1 should enable stress GC")
	}
}

func TestEnvOverrideIgnoresUnparseableValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOX_PRINT_CODE", "not-a-bool")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Debug.PrintCode {
		t.Error("an unparseable env value should not enable the flag")
	}
}
