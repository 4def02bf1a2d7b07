// Package extract turns uploaded files into per-page plain text. Each format
// gets its own Extractor; the Registry picks one by file extension.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedType is returned for file extensions no extractor handles.
var ErrUnsupportedType = errors.New("unsupported file type")

// pageRunes is the synthetic page length for formats without physical pages.
// Form feeds take precedence; this only splits oversized form-feed sections
// so page locators stay useful on long plain-text files.
const pageRunes = 2800

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor extracts the text of one file format.
type Extractor interface {
	// Exts returns the lowercased file extensions this extractor handles.
	Exts() []string

	// Extract reads the whole document and returns its pages in order.
	Extract(ctx context.Context, r io.ReadSeeker) ([]Page, error)
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with all built-in extractors registered:
// PDF, DOCX/DOC, Markdown, and plain text.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.register(&pdfExtractor{})
	r.register(newOfficeExtractor("application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"))
	r.register(newOfficeExtractor("application/msword", ".doc"))
	r.register(&markdownExtractor{})
	r.register(&textExtractor{})
	return r
}

func (r *Registry) register(e Extractor) {
	for _, ext := range e.Exts() {
		r.byExt[ext] = e
	}
}

// ForFilename returns the extractor for the file's extension, or
// ErrUnsupportedType.
func (r *Registry) ForFilename(name string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(name))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return e, nil
}

// Supported returns the sorted list of supported extensions, for error
// messages and the health endpoint.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// textExtractor handles plain text files.
type textExtractor struct{}

func (e *textExtractor) Exts() []string { return []string{".txt", ".text"} }

func (e *textExtractor) Extract(ctx context.Context, r io.ReadSeeker) ([]Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return paginate(strings.ToValidUTF8(string(raw), ""), true), nil
}

// paginate splits text into pages. Form feeds always delimit pages; when
// synthetic is true, sections longer than pageRunes are further split on line
// boundaries. Empty sections are kept so page numbering stays stable.
func paginate(text string, synthetic bool) []Page {
	sections := strings.Split(text, "\f")

	var parts []string
	for _, section := range sections {
		if synthetic {
			parts = append(parts, splitLong(section)...)
		} else {
			parts = append(parts, section)
		}
	}

	pages := make([]Page, len(parts))
	for i, part := range parts {
		pages[i] = Page{Number: i + 1, Text: part}
	}
	return pages
}

// splitLong splits a section into pieces of at most pageRunes runes, breaking
// on line boundaries where possible.
func splitLong(section string) []string {
	if utf8.RuneCountInString(section) <= pageRunes {
		return []string{section}
	}

	lines := strings.SplitAfter(section, "\n")
	var out []string
	var cur strings.Builder
	curRunes := 0

	flush := func() {
		if curRunes > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curRunes = 0
		}
	}

	for _, line := range lines {
		lineRunes := utf8.RuneCountInString(line)
		if lineRunes > pageRunes {
			// A single line longer than a page: hard-split at the rune limit.
			flush()
			runes := []rune(line)
			for len(runes) > pageRunes {
				out = append(out, string(runes[:pageRunes]))
				runes = runes[pageRunes:]
			}
			if len(runes) > 0 {
				cur.WriteString(string(runes))
				curRunes = len(runes)
			}
			continue
		}
		if curRunes+lineRunes > pageRunes {
			flush()
		}
		cur.WriteString(line)
		curRunes += lineRunes
	}
	flush()

	if len(out) == 0 {
		return []string{section}
	}
	return out
}
