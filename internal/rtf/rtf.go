// Package rtf converts Rich Text Format documents into their visible plain
// text. Markup, font and style tables, pictures, fields and other
// non-rendering destinations are discarded.
package rtf

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// groupState is saved on group open and restored on group close.
type groupState struct {
	ucskip    int
	ignorable bool
}

type parser struct {
	stack    []groupState
	cur      groupState
	skip     int // fallback units still to discard after a \u escape
	codePage *charmap.Charmap
	high     rune // pending UTF-16 high surrogate from \u
	out      strings.Builder
}

// Text returns the visible text of an RTF document. The result keeps the
// document's line breaks, tabs and punctuation; callers normalize it.
//
// Source bytes that are not valid UTF-8 are read as Windows-1252. Stack
// underflow and groups left open return ErrUnbalanced; truncated or invalid
// escapes return ErrMalformed.
func Text(src []byte) (string, error) {
	var s string
	if utf8.Valid(src) {
		s = string(src)
	} else {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(src)
		if err != nil {
			return "", fmt.Errorf("decode rtf source: %w", err)
		}
		s = string(decoded)
	}

	p := &parser{
		cur:      groupState{ucskip: 1},
		codePage: charmap.Windows1252,
	}
	lex := NewLexer(s)
	for {
		tok, err := lex.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if err := p.handle(tok); err != nil {
			return "", err
		}
	}
	if len(p.stack) != 0 {
		return "", fmt.Errorf("%w: %d group(s) left open", ErrUnbalanced, len(p.stack))
	}
	p.flushSurrogate()
	return p.out.String(), nil
}

func (p *parser) handle(tok Token) error {
	switch tok.Kind {
	case KindGroupOpen:
		p.skip = 0
		p.stack = append(p.stack, p.cur)

	case KindGroupClose:
		p.skip = 0
		if len(p.stack) == 0 {
			return fmt.Errorf("%w: unexpected '}' at offset %d", ErrUnbalanced, tok.Offset)
		}
		p.cur = p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]

	case KindSymbol:
		p.skip = 0
		switch tok.Char {
		case '~':
			p.emitString("\u00a0")
		case '{', '}', '\\':
			p.emit(tok.Char)
		case '*':
			p.cur.ignorable = true
		case '\n', '\r':
			p.emitString("\n")
		}

	case KindControlWord:
		return p.controlWord(tok)

	case KindHex:
		if p.skip > 0 {
			p.skip--
			return nil
		}
		p.emit(p.codePage.DecodeByte(tok.Byte))

	case KindText:
		if p.skip > 0 {
			p.skip--
			return nil
		}
		p.emit(tok.Char)
	}
	return nil
}

func (p *parser) controlWord(tok Token) error {
	p.skip = 0
	switch {
	case destinations[tok.Word]:
		p.cur.ignorable = true

	case tok.Word == "uc":
		if !tok.HasArg || tok.Arg < 0 {
			return fmt.Errorf("%w: \\uc without a valid count at offset %d", ErrMalformed, tok.Offset)
		}
		p.cur.ucskip = tok.Arg

	case tok.Word == "u":
		if !tok.HasArg {
			return fmt.Errorf("%w: \\u without a code point at offset %d", ErrMalformed, tok.Offset)
		}
		n := tok.Arg
		if n < 0 {
			n += 0x10000
		}
		if n < 0 || n > 0xFFFF {
			return fmt.Errorf("%w: \\u%d out of range at offset %d", ErrMalformed, tok.Arg, tok.Offset)
		}
		p.emitUnit(rune(n))
		p.skip = p.cur.ucskip

	case tok.Word == "ansicpg":
		if cp, ok := codePages[tok.Arg]; ok && tok.HasArg {
			p.codePage = cp
		}

	default:
		if text, ok := specialChars[tok.Word]; ok {
			p.emitString(text)
		} else if cp, ok := charsetWords[tok.Word]; ok {
			p.codePage = cp
		}
	}
	return nil
}

// emitUnit writes one UTF-16 code unit from a \u escape, pairing surrogates.
func (p *parser) emitUnit(r rune) {
	if p.cur.ignorable {
		return
	}
	switch {
	case r >= 0xD800 && r < 0xDC00:
		p.flushSurrogate()
		p.high = r
	case r >= 0xDC00 && r < 0xE000:
		if p.high != 0 {
			p.out.WriteRune(utf16.DecodeRune(p.high, r))
			p.high = 0
			return
		}
		p.out.WriteRune(utf8.RuneError)
	default:
		p.emit(r)
	}
}

func (p *parser) emit(r rune) {
	if p.cur.ignorable {
		return
	}
	p.flushSurrogate()
	p.out.WriteRune(r)
}

func (p *parser) emitString(s string) {
	if p.cur.ignorable {
		return
	}
	p.flushSurrogate()
	p.out.WriteString(s)
}

// flushSurrogate replaces an unpaired high surrogate with U+FFFD.
func (p *parser) flushSurrogate() {
	if p.high != 0 {
		p.out.WriteRune(utf8.RuneError)
		p.high = 0
	}
}
