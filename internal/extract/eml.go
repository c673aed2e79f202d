package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"golang.org/x/net/html"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/textnorm"
)

// EMLDecoder extracts the first text/html part of a MIME message. Messages
// without one fail with doctext.ErrNoHTMLPart.
type EMLDecoder struct{}

func (EMLDecoder) Format() doctext.Format { return doctext.FormatEML }

func (EMLDecoder) Decode(_ context.Context, path string) (*doctext.Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	body, ok := firstHTMLPart(env)
	if !ok {
		return nil, doctext.ErrNoHTMLPart
	}
	text, err := htmlText(body)
	if err != nil {
		return nil, err
	}
	return &doctext.Extraction{
		Filename: filepath.Base(path),
		Text:     textnorm.Text(text),
	}, nil
}

func firstHTMLPart(env *enmime.Envelope) (string, bool) {
	if env.Root != nil {
		part := env.Root.DepthMatchFirst(func(p *enmime.Part) bool {
			return p.ContentType == "text/html"
		})
		if part != nil {
			return string(part.Content), true
		}
	}
	if env.HTML != "" {
		return env.HTML, true
	}
	return "", false
}

// htmlText returns the text nodes of an HTML document joined by spaces.
// Content of non-rendering elements is dropped.
func htmlText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html part: %w", err)
	}
	doc.Find("head, script, style, noscript").Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " "), nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
