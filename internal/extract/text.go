package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/textnorm"
)

// TextDecoder reads plain text files and the text artifacts of converted
// .doc files. Invalid UTF-8 is replaced rather than rejected.
type TextDecoder struct {
	format     doctext.Format
	headerTrim int
}

// NewTextDecoder returns a decoder reporting format that drops the first
// headerTrim runes of each file after whitespace is collapsed.
func NewTextDecoder(format doctext.Format, headerTrim int) *TextDecoder {
	if headerTrim < 0 {
		headerTrim = 0
	}
	return &TextDecoder{format: format, headerTrim: headerTrim}
}

func (d *TextDecoder) Format() doctext.Format { return d.format }

func (d *TextDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = trimRunes(textnorm.CollapseSpace(text), d.headerTrim)
	return &doctext.Extraction{
		Filename: filepath.Base(path),
		Text:     textnorm.Text(text),
	}, nil
}

// trimRunes drops the first n runes of s.
func trimRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
