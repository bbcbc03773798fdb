package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Scanner walks a raw exam PDF and produces one RawFragment per detected
// question, in page/reading order. Questions may span page breaks; a page
// break inside a question does not start a new fragment.
type Scanner struct {
	maxFileSize int64
	minImagePx  int
	marker      *regexp.Regexp
}

// NewScanner creates a scanner for exam sheets using the given question
// marker base character ("B" detects "B.1)", "B2)", ...; an empty base
// detects bare "1)" / "1." markers).
func NewScanner(maxFileSize int64, markerBase string, minImagePx int) *Scanner {
	return &Scanner{
		maxFileSize: maxFileSize,
		minImagePx:  minImagePx,
		marker:      markerPattern(markerBase),
	}
}

// markerPattern builds the question-boundary pattern for a marker base
func markerPattern(base string) *regexp.Regexp {
	if base == "" {
		return regexp.MustCompile(`^\s*(\d+)[.)]\s*`)
	}
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(base) + `\.?(\d+)\)\s*`)
}

// pageContent is the scan-relevant content of one PDF page
type pageContent struct {
	number int
	lines  []string
	images []ImageRegion
}

// Scan parses the PDF at path into question fragments. The source id is
// the file base name without extension. A document in which no question
// boundary matches is a layout mismatch and yields a ScanError rather
// than an empty result.
func (s *Scanner) Scan(path string) ([]RawFragment, error) {
	if err := s.preflight(path); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, newScanError(path, "failed to open PDF", err)
	}
	defer f.Close()

	sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	pages := make([]pageContent, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		pages = append(pages, pageContent{
			number: pageNum,
			lines:  s.pageLines(reader, pageNum),
			images: s.pageImageRegions(reader, pageNum),
		})
	}

	fragments := splitFragments(sourceID, pages, s.marker)
	if len(fragments) == 0 {
		return nil, newScanError(path, "no question boundaries found", nil)
	}

	return fragments, nil
}

// preflight performs basic validation before the PDF is parsed
func (s *Scanner) preflight(path string) error {
	if path == "" {
		return newScanError(path, "path cannot be empty", nil)
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return newScanError(path, "file does not exist", nil)
	}
	if err != nil {
		return newScanError(path, "cannot access file", err)
	}

	if fileInfo.IsDir() {
		return newScanError(path, "path is a directory, not a file", nil)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return newScanError(path, "file is not a PDF", nil)
	}

	if fileInfo.Size() == 0 {
		return newScanError(path, "file is empty", nil)
	}

	if fileInfo.Size() > s.maxFileSize {
		return newScanError(path,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), s.maxFileSize), nil)
	}

	return nil
}

// pageLines extracts the text of a page as one string per visual row
func (s *Scanner) pageLines(reader *pdf.Reader, pageNum int) []string {
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		// Fall back to plain text when row extraction fails for a page
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil
		}
		return strings.Split(content, "\n")
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var builder strings.Builder
		for _, text := range row.Content {
			builder.WriteString(text.S)
		}
		lines = append(lines, builder.String())
	}

	return lines
}

// pageImageRegions records the embedded images of a page as regions,
// without decoding them. Tiny images (logos, rules) below the configured
// pixel threshold are ignored.
func (s *Scanner) pageImageRegions(reader *pdf.Reader, pageNum int) []ImageRegion {
	var regions []ImageRegion

	defer func() {
		// Recover from any panics during image detection
		if recover() != nil {
			// Image detection failed for this page, continue with others
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return regions
	}

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return regions
	}

	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return regions
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}

		subtype := obj.Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}

		region := ImageRegion{
			Page:   pageNum,
			Name:   key,
			Format: "unknown",
		}
		if width := obj.Key("Width"); !width.IsNull() {
			region.Width = int(width.Int64())
		}
		if height := obj.Key("Height"); !height.IsNull() {
			region.Height = int(height.Int64())
		}
		if filter := obj.Key("Filter"); !filter.IsNull() {
			region.Format = normalizeImageFormat(filter.Name())
		}

		if region.Width < s.minImagePx || region.Height < s.minImagePx {
			continue
		}

		regions = append(regions, region)
	}

	return regions
}

// normalizeImageFormat converts PDF filter names to more readable format names
func normalizeImageFormat(filterName string) string {
	switch filterName {
	case "DCTDecode":
		return "JPEG"
	case "JPXDecode":
		return "JPEG2000"
	case "CCITTFaxDecode":
		return "TIFF/Fax"
	case "JBIG2Decode":
		return "JBIG2"
	case "FlateDecode":
		return "PNG/Deflate"
	case "LZWDecode":
		return "LZW"
	case "RunLengthDecode":
		return "RLE"
	default:
		if filterName != "" {
			return filterName
		}
		return "unknown"
	}
}

// fragmentBuilder accumulates one in-progress fragment
type fragmentBuilder struct {
	number    int
	firstPage int
	lastPage  int
	lines     []string
	images    []ImageRegion
}

func (b *fragmentBuilder) finish(sourceID string) RawFragment {
	joined := strings.Join(b.lines, "\n")
	cleaned := CleanText(joined)

	var blocks []string
	for _, block := range strings.Split(cleaned, "\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}

	return RawFragment{
		SourceID:     sourceID,
		Number:       b.number,
		Text:         blocks,
		ImageRegions: b.images,
		Pages:        PageRange{First: b.firstPage, Last: b.lastPage},
		AuditNotes:   AuditText(cleaned),
	}
}

// splitFragments runs the boundary-detection state machine over the page
// contents. It starts in a seeking state, transitions to accumulating on
// the first marker match, and closes the current fragment on each
// subsequent match or at end of document. Images on a page attach to the
// fragment that is open when the page ends; images seen before the first
// boundary belong to no question and are dropped.
func splitFragments(sourceID string, pages []pageContent, marker *regexp.Regexp) []RawFragment {
	var fragments []RawFragment
	var current *fragmentBuilder

	for _, page := range pages {
		for _, line := range page.lines {
			number := 0
			m := marker.FindStringSubmatchIndex(line)
			if m != nil {
				if n, err := strconv.Atoi(line[m[2]:m[3]]); err == nil && n > 0 {
					number = n
				}
			}

			if number == 0 {
				if current != nil {
					current.lines = append(current.lines, line)
					current.lastPage = page.number
				}
				continue
			}

			if current != nil {
				fragments = append(fragments, current.finish(sourceID))
			}

			current = &fragmentBuilder{
				number:    number,
				firstPage: page.number,
				lastPage:  page.number,
			}
			if rest := strings.TrimSpace(line[m[1]:]); rest != "" {
				current.lines = append(current.lines, rest)
			}
		}

		if current != nil && len(page.images) > 0 {
			current.images = append(current.images, page.images...)
			current.lastPage = page.number
		}
	}

	if current != nil {
		fragments = append(fragments, current.finish(sourceID))
	}

	return fragments
}
