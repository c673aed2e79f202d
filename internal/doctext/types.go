package doctext

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies one supported source document format by its extension.
type Format string

const (
	FormatEML  Format = "eml"
	FormatRTF  Format = "rtf"
	FormatDOC  Format = "doc"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
)

// Formats lists every format in dispatch order.
var Formats = []Format{FormatDOC, FormatDOCX, FormatEML, FormatPDF, FormatRTF, FormatTXT}

// ParseFormat accepts "pdf" or ".pdf". Matching is case-sensitive, like
// the directory enumerator.
func ParseFormat(ext string) (Format, error) {
	f := Format(strings.TrimPrefix(ext, "."))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", ext)
}

// Title returns the capitalised prefix used in artifact names ("Pdf", "Docx").
func (f Format) Title() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// Extraction is the decoded text of one source file.
type Extraction struct {
	Filename   string      `json:"filename"`
	Text       string      `json:"text"`
	Pages      []string    `json:"pages,omitempty"`
	PageErrors []PageError `json:"page_errors,omitempty"`
}

// Partial reports whether some pages of the document failed to decode.
func (e *Extraction) Partial() bool {
	return len(e.PageErrors) > 0
}

// PageError records a single page that could not be decoded.
type PageError struct {
	Page int   `json:"page"`
	Err  error `json:"-"`
}

// PageIndex holds the per-page text of one pdf. Pages has exactly one slot
// per page of the source document; failed pages are empty.
type PageIndex struct {
	File  string   `json:"filename"`
	Pages []string `json:"pages"`
}

// Keyed returns the index as "page N" -> text with zero-based N.
func (p PageIndex) Keyed() map[string]string {
	m := make(map[string]string, len(p.Pages))
	for i, text := range p.Pages {
		m[fmt.Sprintf("page %d", i)] = text
	}
	return m
}

// DateStamp formats a run date the way artifact names carry it: 2019_04_30.
func DateStamp(t time.Time) string {
	return t.Format("2006_01_02")
}

// ResultsKey names the persisted result mapping of a run, e.g. "Pdf_2019_04_30".
func ResultsKey(f Format, runDate time.Time) string {
	return f.Title() + "_" + DateStamp(runDate)
}

// PageIndexKey names the persisted pdf page index of a run, e.g. "Pdf_ByPage_2019_04_30".
func PageIndexKey(f Format, runDate time.Time) string {
	return f.Title() + "_ByPage_" + DateStamp(runDate)
}

// RunRecord summarizes one completed format run.
type RunRecord struct {
	ID          string     `json:"id"`
	Format      Format     `json:"format"`
	RunDate     time.Time  `json:"run_date"`
	InputDir    string     `json:"input_dir"`
	Successes   int        `json:"successes"`
	Failures    int        `json:"failures"`
	FailedFiles []string   `json:"failed_files"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
