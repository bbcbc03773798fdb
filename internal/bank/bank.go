// Package bank holds the assembled, queryable question collection. A
// bank is rebuilt fresh on every run from the declared inputs; after
// Build it is a read-only index.
package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// QuestionRecord is the canonical joined question entity
type QuestionRecord struct {
	ID         string   `json:"id"`
	Origin     string   `json:"origin"`
	Number     int      `json:"number"`
	Grade      string   `json:"grade"`
	Difficulty int      `json:"difficulty"`
	Text       string   `json:"text"`
	FigurePath string   `json:"figure_path,omitempty"`
	Topics     []string `json:"topics,omitempty"`
}

// RecordID derives the immutable question identity from its origin exam
// and question number
func RecordID(origin string, number int) string {
	return fmt.Sprintf("%s#%d", origin, number)
}

// DuplicateQuestionError reports two questions resolving to the same
// identity. This signals a scanner defect and is always fatal: the bank
// must never silently merge or overwrite.
type DuplicateQuestionError struct {
	ID string
}

// Error implements the error interface
func (e *DuplicateQuestionError) Error() string {
	return fmt.Sprintf("duplicate question identity %q", e.ID)
}

// Filter selects questions from the bank. Zero values mean "no
// constraint"; set fields combine with logical AND.
type Filter struct {
	Grade         string
	Origin        string
	Topic         string
	MinDifficulty int
	MaxDifficulty int
}

// Bank is the read-mostly question index
type Bank struct {
	records []QuestionRecord
	byID    map[string]int
}

// Build creates a bank from assembled records, preserving their order.
// Identity uniqueness is re-checked at this merge point because records
// from several exams feed one bank.
func Build(records []QuestionRecord) (*Bank, error) {
	b := &Bank{
		records: make([]QuestionRecord, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}

	for _, rec := range records {
		if _, exists := b.byID[rec.ID]; exists {
			return nil, &DuplicateQuestionError{ID: rec.ID}
		}
		b.byID[rec.ID] = len(b.records)
		b.records = append(b.records, rec)
	}

	return b, nil
}

// Len returns the number of questions in the bank
func (b *Bank) Len() int {
	return len(b.records)
}

// Get returns the record with the given identity
func (b *Bank) Get(id string) (QuestionRecord, bool) {
	idx, ok := b.byID[id]
	if !ok {
		return QuestionRecord{}, false
	}
	return b.records[idx], true
}

// Query returns the records matching every set filter field, in stable
// insertion order
func (b *Bank) Query(f Filter) []QuestionRecord {
	var matched []QuestionRecord
	for _, rec := range b.records {
		if !matches(rec, f) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

func matches(rec QuestionRecord, f Filter) bool {
	if f.Grade != "" && rec.Grade != f.Grade {
		return false
	}
	if f.Origin != "" && rec.Origin != f.Origin {
		return false
	}
	if f.Topic != "" && !hasTopic(rec, f.Topic) {
		return false
	}
	if f.MinDifficulty > 0 && rec.Difficulty < f.MinDifficulty {
		return false
	}
	if f.MaxDifficulty > 0 && rec.Difficulty > f.MaxDifficulty {
		return false
	}
	return true
}

func hasTopic(rec QuestionRecord, topic string) bool {
	for _, t := range rec.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// AllTopics returns the distinct topic tags across the bank, sorted, for
// discovery by the list generator
func (b *Bank) AllTopics() []string {
	seen := make(map[string]bool)
	for _, rec := range b.records {
		for _, topic := range rec.Topics {
			seen[topic] = true
		}
	}
	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// AllOrigins returns the distinct source exams in the bank, sorted
func (b *Bank) AllOrigins() []string {
	seen := make(map[string]bool)
	for _, rec := range b.records {
		seen[rec.Origin] = true
	}
	origins := make([]string, 0, len(seen))
	for origin := range seen {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins
}

// document is the JSON shape of an exported bank or exercise list
type document struct {
	GeneratedAt string           `json:"generated_at"`
	Count       int              `json:"count"`
	Questions   []QuestionRecord `json:"questions"`
}

// WriteJSON exports the whole bank as a JSON document
func (b *Bank) WriteJSON(path string) error {
	return WriteRecordsJSON(path, b.records)
}

// WriteRecordsJSON exports a record sequence (typically a Query result)
// as a JSON document
func WriteRecordsJSON(path string, records []QuestionRecord) error {
	doc := document{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Count:       len(records),
		Questions:   records,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal question records: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	return nil
}
