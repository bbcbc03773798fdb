package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/provaschool/qbank/internal/bank"
	"github.com/provaschool/qbank/internal/config"
	"github.com/provaschool/qbank/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the run configuration
func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

// run builds the bank and writes the requested output artifact
func run(ctx context.Context, cfg *config.Config) error {
	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	qbank, summary, err := p.Run(ctx)
	if summary != nil {
		log.Println(summary.String())
	}
	if err != nil {
		return err
	}

	records := qbank.Query(bank.Filter{})
	if cfg.IsListMode() {
		filter := bank.Filter{
			Grade:         cfg.QueryGrade,
			Origin:        cfg.QueryOrigin,
			Topic:         cfg.QueryTopic,
			MinDifficulty: cfg.QueryMinDifficulty,
			MaxDifficulty: cfg.QueryMaxDifficulty,
		}
		records = qbank.Query(filter)
		log.Printf("List filter matched %d of %d question(s)", len(records), qbank.Len())
	}

	if err := p.WriteRecords(cfg.OutputPath, records); err != nil {
		return err
	}
	log.Printf("Wrote %d question(s) to %s", len(records), cfg.OutputPath)

	return nil
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("qbank - exam question bank builder\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
