package assemble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provaschool/qbank/internal/bank"
	"github.com/provaschool/qbank/internal/metadata"
	"github.com/provaschool/qbank/internal/scan"
)

// fakeStore satisfies FigureStore without touching any PDF
type fakeStore struct {
	paths []string
	err   error
	calls int
}

func (f *fakeStore) Extract(pdfPath, origin string, questionNumber int, pages scan.PageRange) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.paths, nil
}

func loadTable(t *testing.T, rows ...string) *metadata.Table {
	t.Helper()
	content := "numero_questao,serie,origem,dificuldade,imagem,tema1,tema2,tema3\n"
	for _, row := range rows {
		content += row + "\n"
	}
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := metadata.Load(path, metadata.DefaultOptions())
	require.NoError(t, err)
	return table
}

func textFragment(sourceID string, number int, text string) scan.RawFragment {
	return scan.RawFragment{
		SourceID: sourceID,
		Number:   number,
		Text:     []string{text},
		Pages:    scan.PageRange{First: 1, Last: 1},
	}
}

func TestAssemble(t *testing.T) {
	table := loadTable(t,
		"1,Primeiro Ano,OBFEP_2025,3,,Cinemática,MRU,none",
		"2,Segundo Ano,OBFEP_2025,7,figuras/OBFEP_2025_q2_fig1.png,Eletrostática,,",
	)

	frag2 := textFragment("OBFEP_2025", 2, "Observe a figura.")
	frag2.ImageRegions = []scan.ImageRegion{{Page: 1, Name: "Im1", Width: 300, Height: 200}}

	store := &fakeStore{paths: []string{"figuras/OBFEP_2025_q2_fig1.png"}}
	records, report, err := Assemble("prova.pdf",
		[]scan.RawFragment{
			textFragment("OBFEP_2025", 1, "Um carro percorre 100 m."),
			frag2,
		},
		table, store)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "OBFEP_2025#1", records[0].ID)
	assert.Equal(t, "OBFEP_2025", records[0].Origin)
	assert.Equal(t, "Primeiro Ano", records[0].Grade)
	assert.Equal(t, 3, records[0].Difficulty)
	assert.Equal(t, "Um carro percorre 100 m.", records[0].Text)
	assert.Equal(t, []string{"Cinemática", "MRU"}, records[0].Topics)
	assert.Empty(t, records[0].FigurePath)

	assert.Equal(t, "figuras/OBFEP_2025_q2_fig1.png", records[1].FigurePath)
	assert.Equal(t, 1, store.calls, "extraction runs only for fragments with image regions")

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "OBFEP_2025", report.SourceID)
	assert.Equal(t, 2, report.FragmentCount)
	assert.Equal(t, 2, report.Assembled)
	assert.Empty(t, report.Unmatched)
	assert.Empty(t, report.FigureMismatches)
}

func TestAssembleUnmatchedFragment(t *testing.T) {
	table := loadTable(t, "1,Primeiro Ano,OBFEP_2025,3,,,,")

	records, report, err := Assemble("prova.pdf",
		[]scan.RawFragment{
			textFragment("OBFEP_2025", 1, "Catalogada."),
			textFragment("OBFEP_2025", 9, "Sem metadados."),
		},
		table, &fakeStore{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "OBFEP_2025#1", records[0].ID)

	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, 9, report.Unmatched[0].Number)
	assert.Equal(t, 1, report.Assembled)
	assert.Equal(t, 2, report.FragmentCount)
}

func TestAssembleDuplicateIdentityFails(t *testing.T) {
	table := loadTable(t, "1,Primeiro Ano,OBFEP_2025,3,,,,")

	records, report, err := Assemble("prova.pdf",
		[]scan.RawFragment{
			textFragment("OBFEP_2025", 1, "Primeira ocorrência."),
			textFragment("OBFEP_2025", 1, "Segunda ocorrência."),
		},
		table, &fakeStore{})

	var dupErr *bank.DuplicateQuestionError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "OBFEP_2025#1", dupErr.ID)
	assert.Nil(t, records, "no partial result on duplicate identity")
	assert.Nil(t, report)
}

func TestAssembleFigureMismatches(t *testing.T) {
	regions := []scan.ImageRegion{{Page: 1, Name: "Im1", Width: 300, Height: 200}}

	tests := []struct {
		name       string
		figureRef  string
		regions    []scan.ImageRegion
		store      *fakeStore
		wantReason string
	}{
		{
			name:       "declared figure never extracted",
			figureRef:  "figuras/q1.png",
			regions:    nil,
			store:      &fakeStore{},
			wantReason: "none was extracted",
		},
		{
			name:       "extracted figure not declared",
			figureRef:  "",
			regions:    regions,
			store:      &fakeStore{paths: []string{"figuras/q1_fig1.png"}},
			wantReason: "metadata declares none",
		},
		{
			name:       "region and figure counts disagree",
			figureRef:  "figuras/q1.png",
			regions:    regions,
			store:      &fakeStore{paths: []string{"a.png", "b.png"}},
			wantReason: "disagree",
		},
		{
			name:       "extraction failure degrades to mismatch",
			figureRef:  "figuras/q1.png",
			regions:    regions,
			store:      &fakeStore{err: errors.New("corrupt stream")},
			wantReason: "figure extraction failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := loadTable(t, fmt.Sprintf("1,Primeiro Ano,OBFEP_2025,3,%s,,,", tt.figureRef))

			frag := textFragment("OBFEP_2025", 1, "Observe a figura.")
			frag.ImageRegions = tt.regions

			records, report, err := Assemble("prova.pdf", []scan.RawFragment{frag}, table, tt.store)
			require.NoError(t, err)

			require.Len(t, records, 1, "mismatches never drop the record")
			require.Len(t, report.FigureMismatches, 1)
			assert.Equal(t, "OBFEP_2025#1", report.FigureMismatches[0].ID)
			assert.Contains(t, report.FigureMismatches[0].Reason, tt.wantReason)
		})
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	table := loadTable(t,
		"1,Primeiro Ano,OBFEP_2025,3,,Cinemática,MRU,none",
		"2,Segundo Ano,OBFEP_2025,7,figuras/OBFEP_2025_q2_fig1.png,Eletrostática,,",
	)

	frag2 := textFragment("OBFEP_2025", 2, "Observe a figura.")
	frag2.ImageRegions = []scan.ImageRegion{{Page: 1, Name: "Im1", Width: 300, Height: 200}}
	fragments := []scan.RawFragment{
		textFragment("OBFEP_2025", 1, "Um carro percorre 100 m."),
		frag2,
		textFragment("OBFEP_2025", 9, "Sem metadados."),
	}

	store := &fakeStore{paths: []string{"figuras/OBFEP_2025_q2_fig1.png"}}
	firstRecords, firstReport, err := Assemble("prova.pdf", fragments, table, store)
	require.NoError(t, err)
	secondRecords, secondReport, err := Assemble("prova.pdf", fragments, table, store)
	require.NoError(t, err)

	assert.Equal(t, firstRecords, secondRecords)

	assert.NotEqual(t, firstReport.RunID, secondReport.RunID)
	firstReport.RunID = ""
	secondReport.RunID = ""
	assert.Equal(t, firstReport, secondReport)
}

func TestAssembleAuditWarnings(t *testing.T) {
	table := loadTable(t, "1,Primeiro Ano,OBFEP_2025,3,,,,")

	frag := textFragment("OBFEP_2025", 1, "O resultado é √ 25.")
	frag.AuditNotes = []string{scan.AuditBadRoot}

	_, report, err := Assemble("prova.pdf", []scan.RawFragment{frag}, table, &fakeStore{})
	require.NoError(t, err)

	require.Len(t, report.AuditWarnings, 1)
	assert.Equal(t, "OBFEP_2025#1", report.AuditWarnings[0].ID)
	assert.Equal(t, []string{scan.AuditBadRoot}, report.AuditWarnings[0].Notes)
}

func TestReportSummary(t *testing.T) {
	report := &Report{
		SourceID:      "OBFEP_2025",
		FragmentCount: 10,
		Assembled:     8,
		Unmatched:     []UnmatchedFragment{{Number: 3}, {Number: 7}},
		FigureMismatches: []FigureMismatch{
			{ID: "OBFEP_2025#5", Reason: "detected image regions and extracted figures disagree"},
		},
	}

	got := report.Summary()
	assert.Contains(t, got, "OBFEP_2025: 8/10 questions assembled")
	assert.Contains(t, got, "2 unmatched")
	assert.Contains(t, got, "1 figure mismatch(es)")
}
