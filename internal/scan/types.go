package scan

import "strings"

// PageRange is the inclusive range of pages a fragment spans
type PageRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// ImageRegion describes an embedded image detected while scanning.
// The image itself is not decoded here; materialization happens later.
type ImageRegion struct {
	Page   int    `json:"page"`
	Name   string `json:"name"` // XObject resource name
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// RawFragment is one physically detected question before the metadata join
type RawFragment struct {
	SourceID     string        `json:"source_id"` // raw PDF identifier, doubles as origin
	Number       int           `json:"number"`    // question number parsed from the marker
	Text         []string      `json:"text"`      // ordered, cleaned text blocks
	ImageRegions []ImageRegion `json:"image_regions,omitempty"`
	Pages        PageRange     `json:"pages"`
	AuditNotes   []string      `json:"audit_notes,omitempty"`
}

// PlainText returns the fragment text as a single string
func (f RawFragment) PlainText() string {
	return strings.Join(f.Text, "\n")
}
