package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// ParseFile extracts a title and plain-text body from a local news/filing
// file. Supported: .pdf, .docx, .md, .txt.
func ParseFile(filePath string) (title, body string, err error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		body, err = parsePDF(filePath)
	case ".docx":
		body, err = parseDOCX(filePath)
	case ".md":
		body, err = parseMarkdown(filePath)
	case ".txt":
		body, err = parseText(filePath)
	default:
		return "", "", fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return "", "", err
	}
	return titleFromContent(filePath, body), body, nil
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return strings.TrimSpace(r.Editable().GetContent()), nil
}

// parseMarkdown renders the markdown and strips the markup so headings and
// emphasis do not pollute embeddings.
func parseMarkdown(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	text := htmlTagRe.ReplaceAllString(buf.String(), "")
	return strings.TrimSpace(text), nil
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// titleFromContent uses the first non-empty line, falling back to the file
// name.
func titleFromContent(filePath, body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			// Truncate on a rune boundary so multi-byte titles stay valid.
			if runes := []rune(line); len(runes) > 120 {
				line = string(runes[:120])
			}
			return line
		}
	}
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
