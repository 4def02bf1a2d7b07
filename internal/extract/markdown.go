package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// markdownExtractor flattens Markdown to plain text before pagination so
// formatting markers never end up inside chunks or citations.
type markdownExtractor struct{}

func (e *markdownExtractor) Exts() []string { return []string{".md", ".markdown"} }

func (e *markdownExtractor) Extract(ctx context.Context, r io.ReadSeeker) ([]Page, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown file: %w", err)
	}
	return paginate(markdownToText(src), true), nil
}

// markdownToText walks the goldmark AST collecting text content. Headings,
// paragraphs, and list items become newline-separated lines; code blocks keep
// their literal lines; emphasis and link markers are dropped.
func markdownToText(src []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			writeCodeLines(&b, t.Lines(), src)
		case *ast.CodeBlock:
			writeCodeLines(&b, t.Lines(), src)
		case *ast.AutoLink:
			b.Write(t.URL(src))
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

func writeCodeLines(b *strings.Builder, lines *gmtext.Segments, src []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}
