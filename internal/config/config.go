// Package config loads the optional lox.yaml project file that tunes the
// GC and debug knobs described in SPEC_FULL.md §1.3/§2.1, mirroring
// funxy's internal/ext/config.go: a YAML-backed struct with layered
// precedence (flag > env > file > default).
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GC tunes the tracing collector's thresholds (§4.2).
type GC struct {
	HeapGrowFactor    float64 `yaml:"heapGrowFactor"`
	InitialThreshold  int64   `yaml:"initialThreshold"`
}

// Debug mirrors the compile-time knobs of §6, made runtime-configurable
// here rather than build tags, since funxy's own debug facilities are
// likewise toggled by config rather than recompilation.
type Debug struct {
	TraceExecution bool `yaml:"traceExecution"`
	PrintCode      bool `yaml:"printCode"`
	StressGC       bool `yaml:"stressGC"`
	LogGC          bool `yaml:"logGC"`
}

// Config is the top-level shape of lox.yaml.
type Config struct {
	GC    GC    `yaml:"gc"`
	Debug Debug `yaml:"debug"`
}

// Default returns clox's own defaults, used when no lox.yaml is present.
func Default() Config {
	return Config{
		GC: GC{
			HeapGrowFactor:   2.0,
			InitialThreshold: 1024 * 1024,
		},
	}
}

// Load reads lox.yaml from dir (falling back to defaults if absent),
// then applies LOX_* environment overrides, matching funxy's
// flag > env > file > default precedence (flags are applied by the
// caller, one layer above Load).
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, "lox.yaml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOX_TRACE"); v != "" {
		cfg.Debug.TraceExecution = envBool(v)
	}
	if v := os.Getenv("LOX_PRINT_CODE"); v != "" {
		cfg.Debug.PrintCode = envBool(v)
	}
	if v := os.Getenv("LOX_STRESS_GC"); v != "" {
		cfg.Debug.StressGC = envBool(v)
	}
	if v := os.Getenv("LOX_LOG_GC"); v != "" {
		cfg.Debug.LogGC = envBool(v)
	}
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
