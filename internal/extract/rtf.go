package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/rtf"
	"github.com/soochol/doctext/internal/textnorm"
)

// RTFDecoder extracts the visible text of an RTF document.
type RTFDecoder struct{}

func (RTFDecoder) Format() doctext.Format { return doctext.FormatRTF }

func (RTFDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := rtf.Text(data)
	if err != nil {
		return nil, fmt.Errorf("parse rtf: %w", err)
	}
	return &doctext.Extraction{
		Filename: filepath.Base(path),
		Text:     textnorm.Text(text),
	}, nil
}
