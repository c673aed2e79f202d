package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/textnorm"
)

// pdfDocument is the subset of a parsed PDF the decoder needs. Pages are
// zero-based.
type pdfDocument interface {
	NumPage() int
	PageText(i int) (string, error)
	Close() error
}

// PDFDecoder extracts text page by page. A page that fails keeps its slot
// in Extraction.Pages with empty text and is reported in PageErrors; the
// remaining pages are still decoded.
type PDFDecoder struct {
	open func(path string) (pdfDocument, error)
}

func NewPDFDecoder() *PDFDecoder {
	return &PDFDecoder{open: openPDF}
}

func (d *PDFDecoder) Format() doctext.Format { return doctext.FormatPDF }

func (d *PDFDecoder) Decode(ctx context.Context, path string) (*doctext.Extraction, error) {
	doc, err := d.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	n := doc.NumPage()
	out := &doctext.Extraction{
		Filename: filepath.Base(path),
		Pages:    make([]string, n),
	}
	var kept []string
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := doc.PageText(i)
		if err != nil {
			out.PageErrors = append(out.PageErrors, doctext.PageError{Page: i, Err: err})
			continue
		}
		text := textnorm.Text(raw)
		out.Pages[i] = text
		if text != "" {
			kept = append(kept, text)
		}
	}
	out.Text = strings.Join(kept, " ")
	return out, nil
}

// ledongthucDoc adapts github.com/ledongthuc/pdf. The library panics on
// some malformed streams, so every call into it recovers.
type ledongthucDoc struct {
	f *os.File
	r *pdf.Reader
	n int
}

func openPDF(path string) (pdfDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	d := &ledongthucDoc{f: f}
	if err := d.load(info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *ledongthucDoc) load(size int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(d.f, size)
	if err != nil {
		return fmt.Errorf("parse pdf: %w", err)
	}
	d.r = r
	d.n = r.NumPage()
	return nil
}

func (d *ledongthucDoc) NumPage() int { return d.n }

func (d *ledongthucDoc) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", i, r)
		}
	}()
	p := d.r.Page(i + 1)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (d *ledongthucDoc) Close() error { return d.f.Close() }
