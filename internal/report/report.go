// Package report writes the tabular artifacts of a run: the failed file list,
// merged mapping output and the results workbook.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/metadata"
)

// FailuresName returns the failed file report name, e.g. "ErrorFilePdf_2019_04_30.csv".
func FailuresName(f doctext.Format, runDate time.Time) string {
	return "ErrorFile" + f.Title() + "_" + doctext.DateStamp(runDate) + ".csv"
}

// FailuresColumn returns the report's filename column, e.g. "PdfErrorFiles".
func FailuresColumn(f doctext.Format) string {
	return f.Title() + "ErrorFiles"
}

// WriteFailures writes one row per failed filename, preceded by a
// zero-based row number column.
func WriteFailures(w io.Writer, f doctext.Format, failed []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", FailuresColumn(f)}); err != nil {
		return err
	}
	for i, name := range failed {
		if err := cw.Write([]string{strconv.Itoa(i), name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMerged writes the merged mapping table with its header.
func WriteMerged(w io.Writer, m *metadata.Merged) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(m.Records()); err != nil {
		return fmt.Errorf("write merged rows: %w", err)
	}
	return nil
}

// WriteFile creates dir/name and fills it with write.
func WriteFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}
