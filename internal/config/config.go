package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeBuild = "build"
	ModeList  = "list"

	// Default values
	DefaultMarkerBase    = "B"
	DefaultDifficultyMin = 1
	DefaultDifficultyMax = 10
	DefaultMinFigurePx   = 100
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// DefaultGradeLabels is the grade vocabulary accepted in metadata tables
// unless overridden by configuration.
var DefaultGradeLabels = []string{"Primeiro Ano", "Segundo Ano", "Terceiro Ano"}

// Config holds all configuration for the question bank pipeline
type Config struct {
	// Run configuration
	Mode string // "build" or "list"

	// Input/output locations
	RawDir      string // directory with raw exam PDFs
	MetadataDir string // directory with metadata CSV tables
	FiguresDir  string // directory where extracted figures are written
	OutputPath  string // path of the bank (or list) JSON artifact

	// Extraction configuration
	MarkerBase    string // base character of question markers, e.g. "B" for "B.1)"
	MinFigurePx   int    // minimum pixel size for an embedded image to count as a figure
	MaxFileSize   int64  // maximum PDF file size in bytes
	DifficultyMin int
	DifficultyMax int
	GradeLabels   []string

	// List-mode query filters
	QueryGrade         string
	QueryOrigin        string
	QueryTopic         string
	QueryMinDifficulty int
	QueryMaxDifficulty int

	// Application configuration
	Version  string
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeBuild,
		RawDir:        filepath.Join(currentDir, "data", "raw"),
		MetadataDir:   filepath.Join(currentDir, "data", "metadata"),
		FiguresDir:    filepath.Join(currentDir, "data", "figuras"),
		OutputPath:    filepath.Join(currentDir, "outputs", "banco.json"),
		MarkerBase:    DefaultMarkerBase,
		MinFigurePx:   DefaultMinFigurePx,
		MaxFileSize:   DefaultMaxFileSize,
		DifficultyMin: DefaultDifficultyMin,
		DifficultyMax: DefaultDifficultyMax,
		GradeLabels:   append([]string(nil), DefaultGradeLabels...),
		Version:       "1.0.0",
		LogLevel:      DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.RawDir, &cfg.MetadataDir, &cfg.FiguresDir, &cfg.OutputPath} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("QBANK")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("rawdir", cfg.RawDir)
	viper.SetDefault("metadatadir", cfg.MetadataDir)
	viper.SetDefault("figuresdir", cfg.FiguresDir)
	viper.SetDefault("output", cfg.OutputPath)
	viper.SetDefault("marker", cfg.MarkerBase)
	viper.SetDefault("minfigurepx", cfg.MinFigurePx)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("difficultymin", cfg.DifficultyMin)
	viper.SetDefault("difficultymax", cfg.DifficultyMax)
	viper.SetDefault("grades", strings.Join(cfg.GradeLabels, ","))
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'build' assembles the bank, 'list' also writes a filtered exercise list")
	pflag.String("rawdir", cfg.RawDir, "Directory containing raw exam PDF files")
	pflag.String("metadatadir", cfg.MetadataDir, "Directory containing metadata CSV tables")
	pflag.String("figuresdir", cfg.FiguresDir, "Directory where extracted figures are written")
	pflag.String("output", cfg.OutputPath, "Path of the output JSON artifact")
	pflag.String("marker", cfg.MarkerBase, "Base character of question markers (e.g. 'B' matches 'B.1)')")
	pflag.Int("minfigurepx", cfg.MinFigurePx, "Minimum pixel size for embedded images to count as figures")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("difficultymin", cfg.DifficultyMin, "Lower bound of the difficulty scale")
	pflag.Int("difficultymax", cfg.DifficultyMax, "Upper bound of the difficulty scale")
	pflag.String("grades", strings.Join(cfg.GradeLabels, ","), "Comma-separated grade labels accepted in metadata tables")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")

	pflag.String("grade", "", "List mode: keep only questions with this grade label")
	pflag.String("origin", "", "List mode: keep only questions from this source exam")
	pflag.String("topic", "", "List mode: keep only questions tagged with this topic")
	pflag.Int("mindifficulty", 0, "List mode: keep only questions at or above this difficulty")
	pflag.Int("maxdifficulty", 0, "List mode: keep only questions at or below this difficulty")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "rawdir", "metadatadir", "figuresdir", "output",
		"marker", "minfigurepx", "maxfilesize",
		"difficultymin", "difficultymax", "grades", "loglevel",
		"grade", "origin", "topic", "mindifficulty", "maxdifficulty",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nqbank - builds a searchable bank of exam questions from PDF exam sheets\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --rawdir=data/raw --metadatadir=data/metadata    # build the full bank\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=list --topic=Cinemática --grade='Primeiro Ano'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  QBANK_RAWDIR        Raw exam PDF directory\n")
		fmt.Fprintf(os.Stderr, "  QBANK_METADATADIR   Metadata CSV directory\n")
		fmt.Fprintf(os.Stderr, "  QBANK_FIGURESDIR    Extracted figures directory\n")
		fmt.Fprintf(os.Stderr, "  QBANK_OUTPUT        Output JSON path\n")
		fmt.Fprintf(os.Stderr, "  QBANK_MARKER        Question marker base character\n")
		fmt.Fprintf(os.Stderr, "  QBANK_LOGLEVEL      Log level\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.RawDir = viper.GetString("rawdir")
	cfg.MetadataDir = viper.GetString("metadatadir")
	cfg.FiguresDir = viper.GetString("figuresdir")
	cfg.OutputPath = viper.GetString("output")
	cfg.MarkerBase = viper.GetString("marker")
	cfg.MinFigurePx = viper.GetInt("minfigurepx")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.DifficultyMin = viper.GetInt("difficultymin")
	cfg.DifficultyMax = viper.GetInt("difficultymax")
	cfg.GradeLabels = splitGradeLabels(viper.GetString("grades"))
	cfg.LogLevel = viper.GetString("loglevel")

	cfg.QueryGrade = viper.GetString("grade")
	cfg.QueryOrigin = viper.GetString("origin")
	cfg.QueryTopic = viper.GetString("topic")
	cfg.QueryMinDifficulty = viper.GetInt("mindifficulty")
	cfg.QueryMaxDifficulty = viper.GetInt("maxdifficulty")
}

// splitGradeLabels parses a comma-separated grade list, dropping blanks
func splitGradeLabels(s string) []string {
	var labels []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeBuild && c.Mode != ModeList {
		return errors.New("mode must be either 'build' or 'list'")
	}

	if c.RawDir == "" {
		return errors.New("raw PDF directory cannot be empty")
	}
	if c.MetadataDir == "" {
		return errors.New("metadata directory cannot be empty")
	}
	if c.FiguresDir == "" {
		return errors.New("figures directory cannot be empty")
	}
	if c.OutputPath == "" {
		return errors.New("output path cannot be empty")
	}

	// The figures directory is an output location, create it if missing
	if _, err := os.Stat(c.FiguresDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.FiguresDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create figures directory %s: %w", c.FiguresDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access figures directory %s: %w", c.FiguresDir, err)
	}

	if c.MarkerBase != "" && len([]rune(c.MarkerBase)) != 1 {
		return fmt.Errorf("marker base must be a single character, got %q", c.MarkerBase)
	}

	if c.MinFigurePx < 0 {
		return errors.New("minimum figure pixel size cannot be negative")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.DifficultyMin < 1 || c.DifficultyMax < c.DifficultyMin {
		return fmt.Errorf("invalid difficulty scale %d..%d", c.DifficultyMin, c.DifficultyMax)
	}

	if len(c.GradeLabels) == 0 {
		return errors.New("at least one grade label must be configured")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsListMode returns true if a filtered exercise list should be produced
func (c *Config) IsListMode() bool {
	return c.Mode == ModeList
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, RawDir: %s, MetadataDir: %s, FiguresDir: %s, Output: %s, Marker: %s, LogLevel: %s}",
		c.Mode, c.RawDir, c.MetadataDir, c.FiguresDir, c.OutputPath, c.MarkerBase, c.LogLevel)
}
