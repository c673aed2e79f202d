// Package extract decodes one source document into normalized text. There is
// one Decoder per supported format; all of them are safe for concurrent use.
package extract

import (
	"context"

	"github.com/soochol/doctext/internal/doctext"
)

// DefaultHeaderTrim is the number of leading runes dropped from converted
// .doc artifacts and plain text files.
const DefaultHeaderTrim = 6

// Decoder turns the file at path into an Extraction. Errors are classified
// with doctext.KindOf; every handle opened by Decode is closed before it
// returns.
type Decoder interface {
	Format() doctext.Format
	Decode(ctx context.Context, path string) (*doctext.Extraction, error)
}

// Options tunes the decoders returned by Decoders.
type Options struct {
	// HeaderTrim overrides DefaultHeaderTrim when positive.
	HeaderTrim int
}

// Decoders returns one decoder per format. The doc entry decodes the text
// artifacts written by the legacy converter, not .doc files themselves.
func Decoders(opts Options) map[doctext.Format]Decoder {
	trim := opts.HeaderTrim
	if trim <= 0 {
		trim = DefaultHeaderTrim
	}
	return map[doctext.Format]Decoder{
		doctext.FormatEML:  EMLDecoder{},
		doctext.FormatRTF:  RTFDecoder{},
		doctext.FormatDOC:  NewTextDecoder(doctext.FormatDOC, trim),
		doctext.FormatTXT:  NewTextDecoder(doctext.FormatTXT, trim),
		doctext.FormatDOCX: DOCXDecoder{},
		doctext.FormatPDF:  NewPDFDecoder(),
	}
}
