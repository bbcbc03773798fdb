// Package metadata loads the externally maintained classification tables
// that describe each exam question (grade, origin, difficulty, figure
// reference, topic tags). Tables are hand-authored CSV files and can be
// incomplete; lookup misses are a normal condition the caller handles.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Required CSV header, in order
var requiredColumns = []string{
	"numero_questao", "serie", "origem", "dificuldade",
	"imagem", "tema1", "tema2", "tema3",
}

// MaxTopics is the maximum number of topic tags per question
const MaxTopics = 3

// Record is one row of question metadata
type Record struct {
	QuestionNumber int
	Grade          string
	Origin         string
	Difficulty     int
	FigureRef      string   // advisory relative path, may be empty
	Topics         []string // 0..MaxTopics entries, order preserved
}

// Options controls load-time validation
type Options struct {
	DifficultyMin int
	DifficultyMax int
	GradeLabels   []string // empty means any non-blank grade is accepted
}

// DefaultOptions matches the default 1..10 difficulty scale with an open
// grade vocabulary
func DefaultOptions() Options {
	return Options{DifficultyMin: 1, DifficultyMax: 10}
}

// LoadError reports a malformed or duplicated metadata row. Loading stops
// at the first offending row so data-quality problems surface instead of
// silently corrupting the bank.
type LoadError struct {
	File   string
	Row    int // 1-based data row within the file, 0 for file-level problems
	Reason string
	Err    error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("metadata %s row %d: %s", e.File, e.Row, e.Reason)
	}
	return fmt.Sprintf("metadata %s: %s", e.File, e.Reason)
}

// Unwrap returns the underlying cause, if any
func (e *LoadError) Unwrap() error {
	return e.Err
}

// key identifies a question within one table
type key struct {
	origin string
	number int
}

// Table is an in-memory mapping from (origin, question number) to a
// metadata record. Built once at load time, read-only afterwards.
type Table struct {
	records map[key]Record
}

// Load parses one CSV table file
func Load(path string, opts Options) (*Table, error) {
	t := &Table{records: make(map[key]Record)}
	if err := t.loadFile(path, opts); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadDir merges every *.csv file in dir into one table. Files are read
// in name order; a duplicate (origin, question number) key across files
// is a load error just like a duplicate within one file.
func LoadDir(dir string, opts Options) (*Table, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, &LoadError{File: dir, Reason: "cannot list metadata directory", Err: err}
	}
	if len(matches) == 0 {
		return nil, &LoadError{File: dir, Reason: "no metadata tables found"}
	}
	sort.Strings(matches)

	t := &Table{records: make(map[key]Record)}
	for _, path := range matches {
		if err := t.loadFile(path, opts); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) loadFile(path string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{File: path, Reason: "cannot open table", Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return &LoadError{File: path, Reason: "cannot read header", Err: err}
	}
	if err := validateHeader(header); err != nil {
		return &LoadError{File: path, Reason: err.Error()}
	}

	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return &LoadError{File: path, Row: row, Reason: "malformed CSV row", Err: err}
		}

		record, err := parseRow(fields, opts)
		if err != nil {
			return &LoadError{File: path, Row: row, Reason: err.Error()}
		}

		k := key{origin: record.Origin, number: record.QuestionNumber}
		if _, exists := t.records[k]; exists {
			return &LoadError{
				File:   path,
				Row:    row,
				Reason: fmt.Sprintf("duplicate key (%s, %d)", record.Origin, record.QuestionNumber),
			}
		}
		t.records[k] = record
	}

	return nil
}

// validateHeader checks the exact required column set and order
func validateHeader(header []string) error {
	if len(header) != len(requiredColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(requiredColumns), len(header))
	}
	for i, want := range requiredColumns {
		got := strings.TrimSpace(strings.ToLower(header[i]))
		// Strip a UTF-8 BOM some spreadsheet exports prepend
		got = strings.TrimPrefix(got, "\uFEFF")
		if got != want {
			return fmt.Errorf("column %d must be %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

// parseRow validates and converts one data row
func parseRow(fields []string, opts Options) (Record, error) {
	var rec Record

	if len(fields) != len(requiredColumns) {
		return rec, fmt.Errorf("expected %d fields, got %d", len(requiredColumns), len(fields))
	}

	number, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || number <= 0 {
		return rec, fmt.Errorf("numero_questao must be a positive integer, got %q", fields[0])
	}

	grade := strings.TrimSpace(fields[1])
	if grade == "" {
		return rec, fmt.Errorf("serie cannot be blank")
	}
	if len(opts.GradeLabels) > 0 && !containsLabel(opts.GradeLabels, grade) {
		return rec, fmt.Errorf("serie %q is not a configured grade label", grade)
	}

	origin := strings.TrimSpace(fields[2])
	if origin == "" {
		return rec, fmt.Errorf("origem cannot be blank")
	}

	difficulty, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return rec, fmt.Errorf("dificuldade must be an integer, got %q", fields[3])
	}
	if difficulty < opts.DifficultyMin || difficulty > opts.DifficultyMax {
		return rec, fmt.Errorf("dificuldade %d outside scale %d..%d",
			difficulty, opts.DifficultyMin, opts.DifficultyMax)
	}

	rec.QuestionNumber = number
	rec.Grade = grade
	rec.Origin = origin
	rec.Difficulty = difficulty
	rec.FigureRef = strings.TrimSpace(fields[4])

	for _, topic := range fields[5 : 5+MaxTopics] {
		topic = strings.TrimSpace(topic)
		if topic == "" || strings.EqualFold(topic, "none") {
			continue
		}
		rec.Topics = append(rec.Topics, topic)
	}

	return rec, nil
}

func containsLabel(labels []string, grade string) bool {
	for _, label := range labels {
		if label == grade {
			return true
		}
	}
	return false
}

// Lookup returns the record for (origin, question number). Absence is a
// normal, expected case: exams may contain questions not yet catalogued.
func (t *Table) Lookup(origin string, number int) (Record, bool) {
	rec, ok := t.records[key{origin: origin, number: number}]
	return rec, ok
}

// Len returns the number of loaded records
func (t *Table) Len() int {
	return len(t.records)
}

// Origins returns the distinct exam identifiers in the table, sorted
func (t *Table) Origins() []string {
	seen := make(map[string]bool)
	for k := range t.records {
		seen[k.origin] = true
	}
	origins := make([]string, 0, len(seen))
	for origin := range seen {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins
}
