// Package figures materializes the embedded images of a question as
// files on disk, named deterministically so repeated runs are idempotent.
package figures

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	// Decoders for the formats exam scans actually contain
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/provaschool/qbank/internal/scan"
)

// Directory permissions for the figures output directory
const dirPerm = 0o750

// ExtractionError reports a figure that could not be materialized
type ExtractionError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("figures %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("figures %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying cause, if any
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor writes question figures into a designated output directory
type Extractor struct {
	outDir string
	minPx  int
}

// NewExtractor creates a figure extractor writing into outDir. Images
// smaller than minPx in either dimension are treated as page decoration
// and skipped.
func NewExtractor(outDir string, minPx int) *Extractor {
	return &Extractor{
		outDir: outDir,
		minPx:  minPx,
	}
}

// Extract materializes the decodable images on the fragment's pages and
// returns the written file paths in page/object order. File names derive
// from origin, question number and figure index, so re-extraction
// overwrites identical names instead of accumulating duplicates. An
// individual undecodable image is skipped; the count difference surfaces
// later as a figure mismatch.
func (e *Extractor) Extract(pdfPath, origin string, questionNumber int, pages scan.PageRange) ([]string, error) {
	if pages.First <= 0 || pages.Last < pages.First {
		return nil, &ExtractionError{Path: pdfPath,
			Reason: fmt.Sprintf("invalid page range %d-%d", pages.First, pages.Last)}
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, &ExtractionError{Path: pdfPath, Reason: "cannot open PDF", Err: err}
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	selected := []string{fmt.Sprintf("%d-%d", pages.First, pages.Last)}
	pageImages, err := api.ExtractImagesRaw(f, selected, conf)
	if err != nil {
		return nil, &ExtractionError{Path: pdfPath, Reason: "image extraction failed", Err: err}
	}

	if err := os.MkdirAll(e.outDir, dirPerm); err != nil {
		return nil, &ExtractionError{Path: e.outDir, Reason: "cannot create figures directory", Err: err}
	}

	var written []string
	index := 1
	for _, byObject := range pageImages {
		objNrs := make([]int, 0, len(byObject))
		for objNr := range byObject {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			img := byObject[objNr]

			data, err := io.ReadAll(img)
			if err != nil {
				continue
			}
			if !e.usableImage(data) {
				continue
			}

			name := FigureFileName(origin, questionNumber, index, img.FileType)
			target := filepath.Join(e.outDir, name)
			if err := os.WriteFile(target, data, 0o640); err != nil {
				return nil, &ExtractionError{Path: target, Reason: "cannot write figure", Err: err}
			}

			written = append(written, target)
			index++
		}
	}

	return written, nil
}

// usableImage reports whether the bytes decode to an image at least
// minPx wide and tall
func (e *Extractor) usableImage(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return cfg.Width >= e.minPx && cfg.Height >= e.minPx
}

// FigureFileName builds the deterministic file name for one figure
func FigureFileName(origin string, questionNumber, index int, fileType string) string {
	if fileType == "" {
		fileType = "png"
	}
	return fmt.Sprintf("%s_q%d_fig%d.%s", origin, questionNumber, index, fileType)
}

// OutputDir returns the directory figures are written into
func (e *Extractor) OutputDir() string {
	return e.outDir
}
