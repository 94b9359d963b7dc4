// Package knowledge builds agent knowledge-base documents and extracts plain
// text from ingested sources (raw text, web pages, PDFs).
package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/talkwith/talkwith/internal/storage"
)

// BuildDocument renders a figure's answers, followed by any ingested
// documents, into the markdown document uploaded as the agent's knowledge
// base. Question order controls section order.
func BuildDocument(qs []string, answers map[string]string, docs []storage.KnowledgeDoc) string {
	var b strings.Builder
	b.WriteString("# Historical Figure Profile\n\n")
	b.WriteString("This document contains comprehensive information about this historical figure.\n\n")
	for _, q := range qs {
		a := strings.TrimSpace(answers[q])
		if a == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", q, a)
	}
	for _, d := range docs {
		title := d.Title
		if title == "" {
			title = "Additional material"
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", title, strings.TrimSpace(d.Content))
	}
	return strings.TrimSpace(b.String())
}

// FromPDF extracts the plain text of every page in a PDF. The pdf library
// panics on some malformed inputs, so those are converted to errors here.
func FromPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parsing pdf: %v", r)
		}
	}()
	return fromPDF(data)
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return out, nil
}

// FromHTML extracts the visible text of an HTML document, skipping script
// and style content.
func FromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " "), nil
}

// FetchURL downloads a page and returns its visible text.
func FetchURL(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	text, err := FromHTML(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("page %s contains no extractable text", url)
	}
	return text, nil
}
