// Package pipeline drives one bank-building run: it pairs every raw exam
// PDF with the loaded metadata table, scans and assembles the sources
// concurrently, and merges the results into a fresh question bank.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/provaschool/qbank/internal/assemble"
	"github.com/provaschool/qbank/internal/bank"
	"github.com/provaschool/qbank/internal/config"
	"github.com/provaschool/qbank/internal/figures"
	"github.com/provaschool/qbank/internal/metadata"
	"github.com/provaschool/qbank/internal/pathguard"
	"github.com/provaschool/qbank/internal/scan"
)

// Pipeline composes the scanner, figure extractor and metadata table for
// one run configuration
type Pipeline struct {
	cfg          *config.Config
	scanner      *scan.Scanner
	extractor    *figures.Extractor
	rawGuard     *pathguard.Guard
	metaGuard    *pathguard.Guard
	figuresGuard *pathguard.Guard
	outputGuard  *pathguard.Guard
}

// New creates a pipeline from a validated configuration
func New(cfg *config.Config) (*Pipeline, error) {
	rawGuard, err := pathguard.New(cfg.RawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw directory guard: %w", err)
	}
	metaGuard, err := pathguard.New(cfg.MetadataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata directory guard: %w", err)
	}
	figuresGuard, err := pathguard.New(cfg.FiguresDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create figures directory guard: %w", err)
	}
	outputGuard, err := pathguard.New(filepath.Dir(cfg.OutputPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory guard: %w", err)
	}

	return &Pipeline{
		cfg:          cfg,
		scanner:      scan.NewScanner(cfg.MaxFileSize, cfg.MarkerBase, cfg.MinFigurePx),
		extractor:    figures.NewExtractor(cfg.FiguresDir, cfg.MinFigurePx),
		rawGuard:     rawGuard,
		metaGuard:    metaGuard,
		figuresGuard: figuresGuard,
		outputGuard:  outputGuard,
	}, nil
}

// SourceOutcome is the per-PDF result of a run. Err is set when the
// source failed structurally (unreadable PDF, zero boundaries); such a
// failure is isolated to its source. An identity collision recorded
// here is the exception and fails the whole run at merge time.
type SourceOutcome struct {
	Path    string
	Report  *assemble.Report
	Records []bank.QuestionRecord
	Err     error
}

// RunSummary enumerates per-source outcomes and totals for one run
type RunSummary struct {
	RunID           string
	MetadataRecords int
	Sources         []SourceOutcome
	TotalRecords    int
	TotalUnmatched  int
	TotalMismatches int
	TotalAuditNotes int
	FailedSources   int
}

// String renders the run summary for the log
func (s *RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d source(s), %d metadata row(s)\n", s.RunID, len(s.Sources), s.MetadataRecords)
	for _, src := range s.Sources {
		if src.Err != nil {
			fmt.Fprintf(&b, "  %s: FAILED: %v\n", filepath.Base(src.Path), src.Err)
			continue
		}
		fmt.Fprintf(&b, "  %s\n", src.Report.Summary())
	}
	fmt.Fprintf(&b, "  total: %d record(s), %d unmatched, %d figure mismatch(es), %d audit warning(s), %d failed source(s)",
		s.TotalRecords, s.TotalUnmatched, s.TotalMismatches, s.TotalAuditNotes, s.FailedSources)
	return b.String()
}

// Run executes one full build: load metadata once, scan and assemble
// every raw PDF, merge into the bank. PDFs are processed concurrently
// but merged serially in input order, so identity collision detection
// stays deterministic across runs.
func (p *Pipeline) Run(ctx context.Context) (*bank.Bank, *RunSummary, error) {
	if err := p.metaGuard.ValidateDirectory(p.cfg.MetadataDir); err != nil {
		return nil, nil, err
	}
	if err := p.rawGuard.ValidateDirectory(p.cfg.RawDir); err != nil {
		return nil, nil, err
	}
	if err := p.figuresGuard.ValidateDirectory(p.cfg.FiguresDir); err != nil {
		return nil, nil, err
	}

	table, err := metadata.LoadDir(p.cfg.MetadataDir, metadata.Options{
		DifficultyMin: p.cfg.DifficultyMin,
		DifficultyMax: p.cfg.DifficultyMax,
		GradeLabels:   p.cfg.GradeLabels,
	})
	if err != nil {
		return nil, nil, err
	}

	pdfPaths, err := p.discoverPDFs()
	if err != nil {
		return nil, nil, err
	}

	summary := &RunSummary{
		RunID:           uuid.NewString(),
		MetadataRecords: table.Len(),
		Sources:         make([]SourceOutcome, len(pdfPaths)),
	}

	// One worker per source; results land in input-order slots
	var wg sync.WaitGroup
	for i, path := range pdfPaths {
		wg.Add(1)
		go func(slot int, pdfPath string) {
			defer wg.Done()
			summary.Sources[slot] = p.processSource(ctx, pdfPath, table)
		}(i, path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}

	// Serial merge in input order keeps duplicate detection deterministic
	merged, err := mergeOutcomes(summary)
	if err != nil {
		return nil, summary, err
	}

	qbank, err := bank.Build(merged)
	if err != nil {
		return nil, summary, err
	}
	summary.TotalRecords = qbank.Len()

	return qbank, summary, nil
}

// mergeOutcomes folds the per-source outcomes into one record sequence.
// A structural source failure (unreadable PDF, zero boundaries) is
// isolated and counted, but an identity collision signals a scanner
// defect: no bank is committed for the run.
func mergeOutcomes(summary *RunSummary) ([]bank.QuestionRecord, error) {
	var merged []bank.QuestionRecord
	for i := range summary.Sources {
		src := &summary.Sources[i]
		if src.Err != nil {
			var dupErr *bank.DuplicateQuestionError
			if errors.As(src.Err, &dupErr) {
				return nil, src.Err
			}
			summary.FailedSources++
			continue
		}
		merged = append(merged, src.Records...)
		summary.TotalUnmatched += len(src.Report.Unmatched)
		summary.TotalMismatches += len(src.Report.FigureMismatches)
		summary.TotalAuditNotes += len(src.Report.AuditWarnings)
	}
	return merged, nil
}

// processSource scans and assembles one raw PDF
func (p *Pipeline) processSource(ctx context.Context, pdfPath string, table *metadata.Table) SourceOutcome {
	outcome := SourceOutcome{Path: pdfPath}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	if err := p.rawGuard.ValidatePath(pdfPath); err != nil {
		outcome.Err = err
		return outcome
	}

	fragments, err := p.scanner.Scan(pdfPath)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	records, report, err := assemble.Assemble(pdfPath, fragments, table, p.extractor)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	for _, rec := range records {
		if rec.FigurePath == "" {
			continue
		}
		if err := p.figuresGuard.ValidatePath(rec.FigurePath); err != nil {
			outcome.Err = err
			return outcome
		}
	}

	outcome.Records = records
	outcome.Report = report
	return outcome
}

// WriteRecords exports a record sequence to path after confirming the
// target stays inside the configured output directory
func (p *Pipeline) WriteRecords(path string, records []bank.QuestionRecord) error {
	if err := p.outputGuard.ValidatePath(path); err != nil {
		return err
	}
	return bank.WriteRecordsJSON(path, records)
}

// discoverPDFs lists the raw exam PDFs for this run in name order
func (p *Pipeline) discoverPDFs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.cfg.RawDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("cannot list raw directory %s: %w", p.cfg.RawDir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no raw exam PDFs found in %s", p.cfg.RawDir)
	}
	sort.Strings(matches)
	return matches, nil
}
