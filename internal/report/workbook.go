package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/soochol/doctext/internal/doctext"
)

// maxCellRunes is the longest text a spreadsheet cell holds.
const maxCellRunes = 32767

const summarySheet = "Summary"

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

// WorkbookName returns the results workbook name, e.g. "DataPipelineResults_2019_04_30.xlsx".
func WorkbookName(runDate time.Time) string {
	return "DataPipelineResults_" + doctext.DateStamp(runDate) + ".xlsx"
}

// Workbook collects run results into a spreadsheet: a Summary sheet with one
// row per run and one sheet per format listing every file and its status.
type Workbook struct {
	f   *excelize.File
	row int
}

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"Format", "Run ID", "Run Date", "Input Dir", "Successes", "Failures"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	return &Workbook{f: f, row: 1}, nil
}

// AddRun appends rec to the summary and writes a sheet named after its
// format. Texts longer than a cell allows are truncated.
func (w *Workbook) AddRun(rec doctext.RunRecord, results map[string]string) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	summary := []any{string(rec.Format), rec.ID, doctext.DateStamp(rec.RunDate), rec.InputDir, rec.Successes, rec.Failures}
	if err := w.f.SetSheetRow(summarySheet, cell, &summary); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}

	sheet := rec.Format.Title()
	if idx, _ := w.f.GetSheetIndex(sheet); idx >= 0 {
		if err := w.f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("replace sheet %s: %w", sheet, err)
		}
	}
	if _, err := w.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	header := []any{"Filename", "Status", "Text"}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	failed := make(map[string]bool, len(rec.FailedFiles))
	for _, name := range rec.FailedFiles {
		failed[name] = true
	}
	names := make([]string, 0, len(results)+len(rec.FailedFiles))
	for name := range results {
		names = append(names, name)
	}
	for _, name := range rec.FailedFiles {
		if _, ok := results[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for i, name := range names {
		text, ok := results[name]
		status := StatusOK
		switch {
		case ok && failed[name]:
			status = StatusPartial
		case !ok:
			status = StatusFailed
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{name, status, truncateRunes(text, maxCellRunes)}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row: %w", sheet, err)
		}
	}
	return nil
}

func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
