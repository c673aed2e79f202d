// Package metadata joins run results with a per-format mapping file that
// carries one attribute per source filename.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/soochol/doctext/internal/doctext"
)

// FilesColumn is the mapping file column holding source filenames.
const FilesColumn = "files"

// TextColumn names the text column of merged output.
const TextColumn = "raw_text"

// MappingName returns the mapping file name for f, e.g. "DocxMappingFile.csv".
func MappingName(f doctext.Format) string {
	return f.Title() + "MappingFile.csv"
}

// MergedName returns the merged output name, e.g. "Docx_MergedDataFrame_2019_04_30.csv".
func MergedName(f doctext.Format, runDate time.Time) string {
	return f.Title() + "_MergedDataFrame_" + doctext.DateStamp(runDate) + ".csv"
}

// Mapping is a two column table. One column is FilesColumn; the other is
// an arbitrary attribute.
type Mapping struct {
	Columns [2]string
	Rows    [][2]string
	keyCol  int
}

// Load reads a mapping file. The first record is the header. Values after
// the first comma of a record belong to the second column, so attributes may
// themselves contain commas.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a mapping from r. See Load.
func Parse(r io.Reader) (*Mapping, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("mapping file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("mapping header needs two columns, got %d", len(header))
	}

	m := &Mapping{Columns: [2]string{strings.TrimSpace(header[0]), strings.TrimSpace(header[1])}}
	switch {
	case strings.EqualFold(m.Columns[0], FilesColumn):
		m.keyCol = 0
	case strings.EqualFold(m.Columns[1], FilesColumn):
		m.keyCol = 1
	default:
		return nil, fmt.Errorf("mapping header %q has no %q column", header, FilesColumn)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read mapping: %w", err)
		}
		var row [2]string
		row[0] = rec[0]
		if len(rec) > 1 {
			row[1] = strings.Join(rec[1:], ",")
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// MergedRow is one mapping row matched to its extracted text.
type MergedRow struct {
	Filename  string
	Attribute string
	Text      string
}

// Merged is the inner join of a mapping with run results.
type Merged struct {
	// Columns is the output header: the mapping's columns then TextColumn.
	Columns [3]string
	Rows    []MergedRow
	keyCol  int
}

// Merge inner-joins m with results on filename. Rows keep mapping order;
// mapping rows without results and results without mapping rows are dropped.
func (m *Mapping) Merge(results map[string]string) *Merged {
	out := &Merged{
		Columns: [3]string{m.Columns[0], m.Columns[1], TextColumn},
		keyCol:  m.keyCol,
	}
	for _, row := range m.Rows {
		name := strings.TrimSpace(row[m.keyCol])
		text, ok := results[name]
		if !ok {
			continue
		}
		out.Rows = append(out.Rows, MergedRow{
			Filename:  name,
			Attribute: row[1-m.keyCol],
			Text:      text,
		})
	}
	return out
}

// Records returns the header and rows in column order.
func (m *Merged) Records() [][]string {
	records := make([][]string, 0, len(m.Rows)+1)
	records = append(records, m.Columns[:])
	for _, r := range m.Rows {
		rec := make([]string, 3)
		rec[m.keyCol] = r.Filename
		rec[1-m.keyCol] = r.Attribute
		rec[2] = r.Text
		records = append(records, rec)
	}
	return records
}
