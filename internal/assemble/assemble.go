// Package assemble joins scanned question fragments with their metadata
// rows into canonical question records. The join is an explicit
// left-outer join with an auditable report: an incomplete metadata table
// degrades to fewer records plus a visible report, never to silently
// wrong records.
package assemble

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/provaschool/qbank/internal/bank"
	"github.com/provaschool/qbank/internal/metadata"
	"github.com/provaschool/qbank/internal/scan"
)

// FigureStore materializes the embedded images of a fragment and returns
// the persisted paths. Satisfied by figures.Extractor.
type FigureStore interface {
	Extract(pdfPath, origin string, questionNumber int, pages scan.PageRange) ([]string, error)
}

// UnmatchedFragment records a scanned question with no metadata row. No
// record is synthesized for it: a question without certified metadata
// never enters the bank silently.
type UnmatchedFragment struct {
	SourceID string         `json:"source_id"`
	Number   int            `json:"number"`
	Pages    scan.PageRange `json:"pages"`
}

// FigureMismatch records a disagreement between the metadata's declared
// figure reference and what was actually extracted. Non-fatal: text and
// classification integrity do not depend on figure presence.
type FigureMismatch struct {
	ID              string `json:"id"`
	DeclaredRef     string `json:"declared_ref,omitempty"`
	DetectedRegions int    `json:"detected_regions"`
	Extracted       int    `json:"extracted"`
	Reason          string `json:"reason"`
}

// AuditWarning carries the extraction-integrity notes of one question
type AuditWarning struct {
	ID    string   `json:"id"`
	Notes []string `json:"notes"`
}

// Report is the audit trail of one assembly pass
type Report struct {
	RunID            string              `json:"run_id"`
	SourceID         string              `json:"source_id"`
	FragmentCount    int                 `json:"fragment_count"`
	Assembled        int                 `json:"assembled"`
	Unmatched        []UnmatchedFragment `json:"unmatched,omitempty"`
	FigureMismatches []FigureMismatch    `json:"figure_mismatches,omitempty"`
	AuditWarnings    []AuditWarning      `json:"audit_warnings,omitempty"`
}

// Summary returns a one-line human-readable report digest
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d questions assembled", r.SourceID, r.Assembled, r.FragmentCount)
	if n := len(r.Unmatched); n > 0 {
		fmt.Fprintf(&b, ", %d unmatched", n)
	}
	if n := len(r.FigureMismatches); n > 0 {
		fmt.Fprintf(&b, ", %d figure mismatch(es)", n)
	}
	if n := len(r.AuditWarnings); n > 0 {
		fmt.Fprintf(&b, ", %d audit warning(s)", n)
	}
	return b.String()
}

// Assemble joins each fragment against the metadata table, materializing
// figures along the way, and returns the canonical records in fragment
// order plus the assembly report. Two fragments resolving to the same
// identity indicate a scanner defect: assembly aborts with a
// DuplicateQuestionError and no partial result.
func Assemble(pdfPath string, fragments []scan.RawFragment, table *metadata.Table, figs FigureStore) ([]bank.QuestionRecord, *Report, error) {
	report := &Report{
		RunID:         uuid.NewString(),
		FragmentCount: len(fragments),
	}
	if len(fragments) > 0 {
		report.SourceID = fragments[0].SourceID
	}

	records := make([]bank.QuestionRecord, 0, len(fragments))
	seen := make(map[string]bool, len(fragments))

	for _, frag := range fragments {
		meta, ok := table.Lookup(frag.SourceID, frag.Number)
		if !ok {
			report.Unmatched = append(report.Unmatched, UnmatchedFragment{
				SourceID: frag.SourceID,
				Number:   frag.Number,
				Pages:    frag.Pages,
			})
			continue
		}

		id := bank.RecordID(meta.Origin, frag.Number)
		if seen[id] {
			return nil, nil, &bank.DuplicateQuestionError{ID: id}
		}
		seen[id] = true

		figurePaths, mismatch := extractFigures(pdfPath, id, frag, meta, figs)
		if mismatch != nil {
			report.FigureMismatches = append(report.FigureMismatches, *mismatch)
		}

		if len(frag.AuditNotes) > 0 {
			report.AuditWarnings = append(report.AuditWarnings, AuditWarning{
				ID:    id,
				Notes: frag.AuditNotes,
			})
		}

		rec := bank.QuestionRecord{
			ID:         id,
			Origin:     meta.Origin,
			Number:     frag.Number,
			Grade:      meta.Grade,
			Difficulty: meta.Difficulty,
			Text:       frag.PlainText(),
			Topics:     meta.Topics,
		}
		if len(figurePaths) > 0 {
			rec.FigurePath = figurePaths[0]
		}

		records = append(records, rec)
		report.Assembled++
	}

	return records, report, nil
}

// extractFigures materializes a fragment's images and cross-checks the
// result against the metadata's advisory figure reference. Extraction
// failures degrade to a mismatch entry; they never fail the fragment.
func extractFigures(pdfPath, id string, frag scan.RawFragment, meta metadata.Record, figs FigureStore) ([]string, *FigureMismatch) {
	declared := meta.FigureRef != ""
	regions := len(frag.ImageRegions)

	var paths []string
	if regions > 0 {
		var err error
		paths, err = figs.Extract(pdfPath, meta.Origin, frag.Number, frag.Pages)
		if err != nil {
			return nil, &FigureMismatch{
				ID:              id,
				DeclaredRef:     meta.FigureRef,
				DetectedRegions: regions,
				Extracted:       0,
				Reason:          fmt.Sprintf("figure extraction failed: %v", err),
			}
		}
	}

	extracted := len(paths)
	switch {
	case declared && extracted == 0:
		return paths, &FigureMismatch{
			ID:              id,
			DeclaredRef:     meta.FigureRef,
			DetectedRegions: regions,
			Extracted:       extracted,
			Reason:          "metadata declares a figure but none was extracted",
		}
	case !declared && extracted > 0:
		return paths, &FigureMismatch{
			ID:              id,
			DetectedRegions: regions,
			Extracted:       extracted,
			Reason:          "figures extracted but metadata declares none",
		}
	case extracted != regions:
		return paths, &FigureMismatch{
			ID:              id,
			DeclaredRef:     meta.FigureRef,
			DetectedRegions: regions,
			Extracted:       extracted,
			Reason:          "detected image regions and extracted figures disagree",
		}
	}

	return paths, nil
}
