package rtf

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrMalformed reports a truncated escape, an invalid hex escape or a
	// truncated \bin payload.
	ErrMalformed = errors.New("rtf: malformed input")
	// ErrUnbalanced reports a group close without a matching open, or groups
	// left open at end of input.
	ErrUnbalanced = errors.New("rtf: unbalanced groups")
)

const (
	maxWordLen = 32
	maxArgLen  = 10
)

// Kind classifies a Token.
type Kind int

const (
	KindText Kind = iota
	KindGroupOpen
	KindGroupClose
	// KindSymbol is a backslash followed by one non-letter, e.g. \~ \{ \* or \'
	// when not followed by hex.
	KindSymbol
	KindControlWord
	// KindHex is an escaped byte \'xx.
	KindHex
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindGroupOpen:
		return "group-open"
	case KindGroupClose:
		return "group-close"
	case KindSymbol:
		return "symbol"
	case KindControlWord:
		return "control-word"
	case KindHex:
		return "hex"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one lexical element of an RTF stream.
type Token struct {
	Kind   Kind
	Offset int
	// Word and Arg are set for KindControlWord. HasArg is false when the word
	// carried no numeric parameter.
	Word   string
	Arg    int
	HasArg bool
	// Char is the rune for KindText and KindSymbol tokens.
	Char rune
	// Byte is the decoded value of a KindHex token.
	Byte byte
}

// Lexer splits RTF source into tokens in a single left-to-right pass.
type Lexer struct {
	src string
	pos int
}

// NewLexer returns a Lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Next returns the next token, or io.EOF once the input is exhausted.
// Raw CR and LF characters carry no content in RTF and are skipped.
func (l *Lexer) Next() (Token, error) {
	for l.pos < len(l.src) {
		start := l.pos
		c := l.src[l.pos]
		switch c {
		case '\r', '\n':
			l.pos++
			continue
		case '{':
			l.pos++
			return Token{Kind: KindGroupOpen, Offset: start}, nil
		case '}':
			l.pos++
			return Token{Kind: KindGroupClose, Offset: start}, nil
		case '\\':
			return l.escape()
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
		return Token{Kind: KindText, Offset: start, Char: r}, nil
	}
	return Token{}, io.EOF
}

func (l *Lexer) escape() (Token, error) {
	start := l.pos
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return Token{}, fmt.Errorf("%w: truncated escape at offset %d", ErrMalformed, start)
	}

	c := l.src[l.pos]
	switch {
	case isLetter(c):
		return l.controlWord(start)
	case c == '\'':
		if l.pos+2 >= len(l.src) {
			return Token{}, fmt.Errorf("%w: truncated hex escape at offset %d", ErrMalformed, start)
		}
		hi, ok1 := hexValue(l.src[l.pos+1])
		lo, ok2 := hexValue(l.src[l.pos+2])
		if !ok1 || !ok2 {
			return Token{}, fmt.Errorf("%w: invalid hex escape %q at offset %d", ErrMalformed, l.src[l.pos-1:l.pos+3], start)
		}
		l.pos += 3
		return Token{Kind: KindHex, Offset: start, Byte: hi<<4 | lo}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return Token{Kind: KindSymbol, Offset: start, Char: r}, nil
}

func (l *Lexer) controlWord(start int) (Token, error) {
	wordStart := l.pos
	for l.pos < len(l.src) && isLetter(l.src[l.pos]) && l.pos-wordStart < maxWordLen {
		l.pos++
	}
	tok := Token{Kind: KindControlWord, Offset: start, Word: l.src[wordStart:l.pos]}

	argStart := l.pos
	neg := false
	if l.pos+1 < len(l.src) && l.src[l.pos] == '-' && isDigit(l.src[l.pos+1]) {
		neg = true
		l.pos++
	}
	digitsStart := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) && l.pos-digitsStart < maxArgLen {
		tok.Arg = tok.Arg*10 + int(l.src[l.pos]-'0')
		l.pos++
	}
	if l.pos > digitsStart {
		tok.HasArg = true
		if neg {
			tok.Arg = -tok.Arg
		}
	} else {
		l.pos = argStart
	}

	if l.pos < len(l.src) && l.src[l.pos] == ' ' {
		l.pos++
	}

	if tok.Word == "bin" && tok.HasArg && tok.Arg > 0 {
		if l.pos+tok.Arg > len(l.src) {
			return Token{}, fmt.Errorf("%w: truncated \\bin payload at offset %d", ErrMalformed, start)
		}
		l.pos += tok.Arg
	}
	return tok, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
