package figures

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/provaschool/qbank/internal/scan"
)

func TestFigureFileName(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		number   int
		index    int
		fileType string
		want     string
	}{
		{
			name:   "first figure",
			origin: "OBFEP_2025", number: 3, index: 1, fileType: "png",
			want: "OBFEP_2025_q3_fig1.png",
		},
		{
			name:   "second figure jpeg",
			origin: "PROVA_2024", number: 12, index: 2, fileType: "jpg",
			want: "PROVA_2024_q12_fig2.jpg",
		},
		{
			name:   "missing file type defaults to png",
			origin: "PROVA_2024", number: 1, index: 1, fileType: "",
			want: "PROVA_2024_q1_fig1.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FigureFileName(tt.origin, tt.number, tt.index, tt.fileType)
			if got != tt.want {
				t.Errorf("FigureFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	e := NewExtractor(t.TempDir(), 100)

	tests := []struct {
		name  string
		path  string
		pages scan.PageRange
	}{
		{
			name:  "zero page range",
			path:  "prova.pdf",
			pages: scan.PageRange{},
		},
		{
			name:  "inverted page range",
			path:  "prova.pdf",
			pages: scan.PageRange{First: 3, Last: 1},
		},
		{
			name:  "nonexistent file",
			path:  filepath.Join(t.TempDir(), "missing.pdf"),
			pages: scan.PageRange{First: 1, Last: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.path, "PROVA", 1, tt.pages)
			if err == nil {
				t.Fatal("Extract() succeeded, want ExtractionError")
			}
			var extErr *ExtractionError
			if !errors.As(err, &extErr) {
				t.Errorf("error type = %T, want *ExtractionError", err)
			}
		})
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupta.pdf")
	if err := os.WriteFile(path, []byte("not a real pdf"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	e := NewExtractor(dir, 100)
	_, err := e.Extract(path, "PROVA", 1, scan.PageRange{First: 1, Last: 1})
	if err == nil {
		t.Fatal("Extract() succeeded on a corrupt PDF")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("error type = %T, want *ExtractionError", err)
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestUsableImage(t *testing.T) {
	e := NewExtractor(t.TempDir(), 100)

	if !e.usableImage(encodePNG(t, 200, 150)) {
		t.Error("usableImage() rejected an image above the threshold")
	}
	if e.usableImage(encodePNG(t, 200, 50)) {
		t.Error("usableImage() accepted an image below the threshold in one dimension")
	}
	if e.usableImage([]byte("not an image")) {
		t.Error("usableImage() accepted undecodable bytes")
	}
}
