package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/textnorm"
)

const (
	docxBodyEntry    = "word/document.xml"
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// DOCXDecoder reads the main document part of a DOCX package (ZIP+XML).
type DOCXDecoder struct{}

func (DOCXDecoder) Format() doctext.Format { return doctext.FormatDOCX }

func (DOCXDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, doctext.ErrEmptyFile
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", docxBodyEntry, err)
		}
		defer rc.Close()

		text, err := parseDOCXXML(rc)
		if err != nil {
			return nil, err
		}
		return &doctext.Extraction{
			Filename: filepath.Base(path),
			Text:     textnorm.Text(text),
		}, nil
	}
	return nil, fmt.Errorf("%s: %w", docxBodyEntry, doctext.ErrMissingEntry)
}

// parseDOCXXML joins the text runs of each paragraph, then joins paragraphs
// with a space. Fallback renderings of alternate content are skipped so
// text boxes are not read twice.
func parseDOCXXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyEntry, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" {
				if err := decoder.Skip(); err != nil {
					return "", fmt.Errorf("parse %s: %w", docxBodyEntry, err)
				}
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab", "br", "cr":
				if len(open) > 0 {
					open[len(open)-1].WriteByte(' ')
				}
			}

		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(open) == 0 {
					continue
				}
				p := open[len(open)-1]
				open = open[:len(open)-1]
				if s := textnorm.CollapseSpace(p.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
			}

		case xml.CharData:
			if inText && len(open) > 0 {
				open[len(open)-1].Write(t)
			}
		}
	}
	return strings.Join(paragraphs, " "), nil
}
