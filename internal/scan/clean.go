package scan

import (
	"regexp"
	"strings"
)

// Replacement tables for PDF extraction artifacts. Superscript and
// subscript codepoints are normalized to caret/underscore notation so the
// stored text stays searchable with plain ASCII.
var superscriptReplacer = strings.NewReplacer(
	"¹", "^1",
	"²", "^2",
	"³", "^3",
	"⁴", "^4",
	"⁵", "^5",
	"⁶", "^6",
	"⁷", "^7",
	"⁸", "^8",
	"⁹", "^9",
	"⁰", "^0",
	"ⁿ", "^n",
	"ª", "a",
	"º", "o",
)

var subscriptReplacer = strings.NewReplacer(
	"₀", "_0",
	"₁", "_1",
	"₂", "_2",
	"₃", "_3",
	"₄", "_4",
	"₅", "_5",
	"₆", "_6",
	"₇", "_7",
	"₈", "_8",
	"₉", "_9",
)

// Ligature codepoints and typographic punctuation produced by PDF fonts
var symbolReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	" ", " ", // non-breaking space
	"", "*", // common bullet marker
	"–", "-",
	"—", "-",
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

var (
	unitExponentRe   = regexp.MustCompile(`\b(m|s|cm|km)\s*([23])\b`)
	brokenPowerTenRe = regexp.MustCompile(`10\s+(-?\d+)\b`)
	midSentenceLFRe  = regexp.MustCompile(`([^.!?\n])\n(.)`)
	altMarkerAfterLF = regexp.MustCompile(`\n([A-Ea-e][.)])`)
	hyphenationRe    = regexp.MustCompile(`(\p{L}+)-\s*\n\s*(\p{L}+)`)
	multiSpaceRe     = regexp.MustCompile(`[ \t]+`)
	dashVariantsRe   = regexp.MustCompile(`[–—−‐⁃]`)
	negativeExpRe    = regexp.MustCompile(`([a-zA-Z°%])-(\d+)`)
	negPowerTenRe    = regexp.MustCompile(`10\s*\^?\s*-\s*(\d+)`)
	spacedPowerTenRe = regexp.MustCompile(`10\s+(\d+)\b`)
)

// CleanText normalizes raw text extracted from an exam PDF for storage:
// unicode super/subscripts become caret/underscore notation, hyphenation
// and artificial line breaks are repaired, broken scientific notation is
// rejoined, and typographic punctuation is flattened to ASCII.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = superscriptReplacer.Replace(text)
	text = subscriptReplacer.Replace(text)

	// Floating digits after units are exponents: "m 2" -> "m^2"
	text = unitExponentRe.ReplaceAllString(text, "$1^$2")

	// Scientific notation split by the extractor: "10 5" -> "10^5"
	text = brokenPowerTenRe.ReplaceAllString(text, "10^$1")

	// Repair hyphenation first so the line-break pass sees whole words
	text = hyphenationRe.ReplaceAllString(text, "$1$2")

	// Join line breaks that fall mid-sentence while keeping breaks that
	// start a multiple-choice alternative. The pattern consumes the
	// character after the break, so consecutive short lines need repeated
	// passes until no break is left to join.
	text = altMarkerAfterLF.ReplaceAllString(text, "\x00$1")
	for {
		joined := midSentenceLFRe.ReplaceAllString(text, "$1 $2")
		if joined == text {
			break
		}
		text = joined
	}
	text = strings.ReplaceAll(text, "\x00", "\n")

	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = symbolReplacer.Replace(text)
	text = dashVariantsRe.ReplaceAllString(text, "-")

	// Negative exponents on letters or symbols, never on digits, so the
	// zero of "10" cannot trigger the rule
	text = negativeExpRe.ReplaceAllString(text, "$1^-$2")
	text = negPowerTenRe.ReplaceAllString(text, "10^-$1")
	text = spacedPowerTenRe.ReplaceAllString(text, "10^$1")

	return strings.TrimSpace(text)
}
