package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != ModeBuild {
		t.Errorf("Expected default mode to be 'build', got %s", cfg.Mode)
	}

	if cfg.MarkerBase != DefaultMarkerBase {
		t.Errorf("Expected default marker base to be %q, got %q", DefaultMarkerBase, cfg.MarkerBase)
	}

	if cfg.MinFigurePx != DefaultMinFigurePx {
		t.Errorf("Expected default min figure px to be %d, got %d", DefaultMinFigurePx, cfg.MinFigurePx)
	}

	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Expected default max file size to be %d, got %d", DefaultMaxFileSize, cfg.MaxFileSize)
	}

	if cfg.DifficultyMin != DefaultDifficultyMin || cfg.DifficultyMax != DefaultDifficultyMax {
		t.Errorf("Expected default difficulty scale %d..%d, got %d..%d",
			DefaultDifficultyMin, DefaultDifficultyMax, cfg.DifficultyMin, cfg.DifficultyMax)
	}

	if len(cfg.GradeLabels) != len(DefaultGradeLabels) {
		t.Errorf("Expected %d default grade labels, got %d", len(DefaultGradeLabels), len(cfg.GradeLabels))
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("Expected default log level to be %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}

	if !strings.HasSuffix(cfg.OutputPath, "banco.json") {
		t.Errorf("Expected default output path to end in banco.json, got %s", cfg.OutputPath)
	}
}

func TestConfigValidate(t *testing.T) {
	validConfig := func(t *testing.T) *Config {
		cfg := DefaultConfig()
		dir := t.TempDir()
		cfg.RawDir = filepath.Join(dir, "raw")
		cfg.MetadataDir = filepath.Join(dir, "metadata")
		cfg.FiguresDir = filepath.Join(dir, "figuras")
		cfg.OutputPath = filepath.Join(dir, "banco.json")
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "list mode is valid",
			mutate:  func(c *Config) { c.Mode = ModeList },
			wantErr: false,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "serve" },
			wantErr: true,
		},
		{
			name:    "empty raw directory",
			mutate:  func(c *Config) { c.RawDir = "" },
			wantErr: true,
		},
		{
			name:    "empty metadata directory",
			mutate:  func(c *Config) { c.MetadataDir = "" },
			wantErr: true,
		},
		{
			name:    "empty output path",
			mutate:  func(c *Config) { c.OutputPath = "" },
			wantErr: true,
		},
		{
			name:    "empty marker base is allowed",
			mutate:  func(c *Config) { c.MarkerBase = "" },
			wantErr: false,
		},
		{
			name:    "multi-character marker base",
			mutate:  func(c *Config) { c.MarkerBase = "BQ" },
			wantErr: true,
		},
		{
			name:    "negative min figure px",
			mutate:  func(c *Config) { c.MinFigurePx = -1 },
			wantErr: true,
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "inverted difficulty scale",
			mutate:  func(c *Config) { c.DifficultyMin = 5; c.DifficultyMax = 3 },
			wantErr: true,
		},
		{
			name:    "difficulty minimum below one",
			mutate:  func(c *Config) { c.DifficultyMin = 0 },
			wantErr: true,
		},
		{
			name:    "no grade labels",
			mutate:  func(c *Config) { c.GradeLabels = nil },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreatesFiguresDir(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.RawDir = filepath.Join(dir, "raw")
	cfg.MetadataDir = filepath.Join(dir, "metadata")
	cfg.FiguresDir = filepath.Join(dir, "nested", "figuras")
	cfg.OutputPath = filepath.Join(dir, "banco.json")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	cfg2 := *cfg
	if err := cfg2.Validate(); err != nil {
		t.Errorf("Validate() failed on existing figures dir: %v", err)
	}
}

func TestSplitGradeLabels(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "three labels", input: "Primeiro Ano,Segundo Ano,Terceiro Ano", want: 3},
		{name: "blank entries dropped", input: "Primeiro Ano,, ,Segundo Ano", want: 2},
		{name: "empty input", input: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitGradeLabels(tt.input); len(got) != tt.want {
				t.Errorf("splitGradeLabels(%q) = %v, want %d labels", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IsDebug() {
		t.Error("IsDebug() true with default log level")
	}
	cfg.LogLevel = "debug"
	if !cfg.IsDebug() {
		t.Error("IsDebug() false with debug log level")
	}

	if cfg.IsListMode() {
		t.Error("IsListMode() true in build mode")
	}
	cfg.Mode = ModeList
	if !cfg.IsListMode() {
		t.Error("IsListMode() false in list mode")
	}

	if s := cfg.String(); !strings.Contains(s, "Mode: list") {
		t.Errorf("String() = %q, expected it to mention the mode", s)
	}
}
