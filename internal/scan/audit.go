package scan

import (
	"regexp"
	"strings"
)

// Audit messages for extraction-integrity problems
const (
	AuditBadRoot           = "square root possibly malformed"
	AuditGhostChars        = "unconverted private-use characters detected"
	AuditFragmentedFormula = "possible fragmentation in powers/formulas"
	AuditIncompleteChoices = "multiple choice looks incomplete"
)

var (
	puaRe        = regexp.MustCompile(`[\x{F000}-\x{F0FF}]`)
	fragmentedRe = regexp.MustCompile(`\b([a-zA-Z])\s+\^?(\d)`)
)

// AuditText inspects cleaned question text for patterns that suggest the
// extraction went wrong: isolated root symbols, private-use ghost
// characters left by symbol fonts, exponents detached from their base,
// and multiple-choice blocks that lost alternatives. The warnings are
// advisory; the fragment is still usable.
func AuditText(text string) []string {
	var alerts []string

	if (strings.Contains(text, "√") || strings.Contains(text, `\sqrt`)) &&
		!strings.Contains(text, "{") {
		alerts = append(alerts, AuditBadRoot)
	}

	if puaRe.MatchString(text) {
		alerts = append(alerts, AuditGhostChars)
	}

	// Isolated letter followed by a digit hints at a broken power, but
	// "a", "e" and "o" are ordinary one-letter words in Portuguese
	for _, m := range fragmentedRe.FindAllStringSubmatch(text, -1) {
		letter := strings.ToLower(m[1])
		if letter != "a" && letter != "e" && letter != "o" {
			alerts = append(alerts, AuditFragmentedFormula)
			break
		}
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "a)") && !strings.Contains(lower, "d)") {
		alerts = append(alerts, AuditIncompleteChoices)
	}

	return alerts
}
