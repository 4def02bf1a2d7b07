package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"docassist/internal/extract"
)

func TestNewChunker(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{
			name:    "valid",
			size:    1000,
			overlap: 200,
			wantErr: false,
		},
		{
			name:    "zero overlap",
			size:    100,
			overlap: 0,
			wantErr: false,
		},
		{
			name:    "zero size",
			size:    0,
			overlap: 0,
			wantErr: true,
		},
		{
			name:    "negative size",
			size:    -5,
			overlap: 0,
			wantErr: true,
		},
		{
			name:    "negative overlap",
			size:    100,
			overlap: -1,
			wantErr: true,
		},
		{
			name:    "overlap equals size",
			size:    100,
			overlap: 100,
			wantErr: true,
		},
		{
			name:    "overlap exceeds size",
			size:    100,
			overlap: 150,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)

			if tt.wantErr {
				if err == nil {
					t.Errorf("NewChunker() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("NewChunker() unexpected error: %v", err)
				return
			}
			if chunker == nil {
				t.Fatal("NewChunker() returned nil")
			}
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		pages   []extract.Page
		check   func([]Chunk) bool
	}{
		{
			name:    "no pages",
			size:    100,
			overlap: 10,
			pages:   nil,
			check: func(chunks []Chunk) bool {
				return len(chunks) == 0
			},
		},
		{
			name:    "whitespace only page",
			size:    100,
			overlap: 10,
			pages:   []extract.Page{{Number: 1, Text: "  \n\t  "}},
			check: func(chunks []Chunk) bool {
				return len(chunks) == 0
			},
		},
		{
			name:    "single page fits one chunk",
			size:    100,
			overlap: 10,
			pages:   []extract.Page{{Number: 1, Text: "  hello world  \n"}},
			check: func(chunks []Chunk) bool {
				return len(chunks) == 1 &&
					chunks[0].Index == 0 &&
					chunks[0].Page == 1 &&
					chunks[0].Text == "hello world"
			},
		},
		{
			name:    "window breaks at word boundary",
			size:    20,
			overlap: 10,
			pages:   []extract.Page{{Number: 1, Text: "alpha beta gamma delta epsilon zeta"}},
			check: func(chunks []Chunk) bool {
				if len(chunks) != 3 {
					return false
				}
				return chunks[0].Text == "alpha beta gamma" &&
					chunks[1].Text == "gamma delta epsilon" &&
					chunks[2].Text == "epsilon zeta"
			},
		},
		{
			name:    "windows never cross pages",
			size:    100,
			overlap: 10,
			pages: []extract.Page{
				{Number: 1, Text: "alpha beta"},
				{Number: 3, Text: "gamma delta"},
			},
			check: func(chunks []Chunk) bool {
				if len(chunks) != 2 {
					return false
				}
				return chunks[0].Page == 1 && chunks[0].Text == "alpha beta" &&
					chunks[1].Page == 3 && chunks[1].Text == "gamma delta"
			},
		},
		{
			name:    "indexes stay dense across skipped pages",
			size:    100,
			overlap: 10,
			pages: []extract.Page{
				{Number: 1, Text: "first"},
				{Number: 2, Text: "   "},
				{Number: 3, Text: "third"},
			},
			check: func(chunks []Chunk) bool {
				if len(chunks) != 2 {
					return false
				}
				return chunks[0].Index == 0 && chunks[0].Page == 1 &&
					chunks[1].Index == 1 && chunks[1].Page == 3
			},
		},
		{
			name:    "unbroken run splits hard at the size limit",
			size:    10,
			overlap: 3,
			pages:   []extract.Page{{Number: 1, Text: strings.Repeat("x", 25)}},
			check: func(chunks []Chunk) bool {
				if len(chunks) != 3 {
					return false
				}
				return chunks[0].Text == strings.Repeat("x", 10) &&
					chunks[1].Text == strings.Repeat("x", 10) &&
					chunks[2].Text == strings.Repeat("x", 5)
			},
		},
		{
			name:    "windows count runes not bytes",
			size:    5,
			overlap: 0,
			pages:   []extract.Page{{Number: 1, Text: "日本 語の テキ スト"}},
			check: func(chunks []Chunk) bool {
				if len(chunks) != 3 {
					return false
				}
				return chunks[0].Text == "日本" &&
					chunks[1].Text == "語の" &&
					chunks[2].Text == "テキ スト"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("NewChunker() error = %v", err)
			}

			chunks := chunker.Chunk(tt.pages)

			if tt.check != nil && !tt.check(chunks) {
				t.Errorf("Chunk() result validation failed, got %+v", chunks)
			}
		})
	}
}

func TestChunker_Chunk_SizeConstraints(t *testing.T) {
	const size = 120
	chunker, err := NewChunker(size, 30)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	// Repeated prose produces many windows with plenty of word boundaries.
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 80)
	chunks := chunker.Chunk([]extract.Page{{Number: 1, Text: text}})

	if len(chunks) < 10 {
		t.Fatalf("Chunk() produced %d chunks, want at least 10", len(chunks))
	}

	for i, chunk := range chunks {
		chunkRunes := utf8.RuneCountInString(chunk.Text)
		if chunkRunes > size {
			t.Errorf("Chunk() chunk[%d] size = %d runes, exceeds max %d", i, chunkRunes, size)
		}
		if chunk.Index != i {
			t.Errorf("Chunk() chunk[%d] index = %d, want %d", i, chunk.Index, i)
		}
		if chunk.Text != strings.TrimSpace(chunk.Text) {
			t.Errorf("Chunk() chunk[%d] text not trimmed: %q", i, chunk.Text)
		}
	}
}

func TestChunker_Chunk_NoWordSplit(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	text := strings.Repeat("combinations of reasonably sized words here ", 20)
	chunks := chunker.Chunk([]extract.Page{{Number: 1, Text: text}})

	words := map[string]bool{
		"combinations": true,
		"of":           true,
		"reasonably":   true,
		"sized":        true,
		"words":        true,
		"here":         true,
	}
	for i, chunk := range chunks {
		for _, w := range strings.Fields(chunk.Text) {
			if !words[w] {
				t.Errorf("Chunk() chunk[%d] contains split word %q", i, w)
			}
		}
	}
}

func TestChunker_Chunk_CoversAllText(t *testing.T) {
	chunker, err := NewChunker(40, 0)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
	chunks := chunker.Chunk([]extract.Page{{Number: 1, Text: text}})

	var joined []string
	for _, chunk := range chunks {
		joined = append(joined, chunk.Text)
	}
	if got := strings.Join(joined, " "); got != text {
		t.Errorf("Chunk() with zero overlap rejoined = %q, want %q", got, text)
	}
}
