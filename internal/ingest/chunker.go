package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"docassist/internal/extract"
)

// Chunker splits extracted pages into overlapping rune windows. Windows never
// cross page boundaries and never split a word: a window end snaps back to
// the previous whitespace unless the window contains none, in which case it
// splits hard at the size limit.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. size is the window length in runes and
// overlap is how many runes consecutive windows share; overlap must be
// smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits pages into chunks with dense indexes spanning the whole
// document. Whitespace-only pages yield no chunks.
func (c *Chunker) Chunk(pages []extract.Page) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		chunks = append(chunks, c.chunkPage(page, len(chunks))...)
	}
	return chunks
}

func (c *Chunker) chunkPage(page extract.Page, nextIndex int) []Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	runes := []rune(page.Text)
	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Snap the end back to a word boundary.
			snapped := end
			for snapped > start && !unicode.IsSpace(runes[snapped-1]) {
				snapped--
			}
			if snapped > start {
				end = snapped
			}
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			chunks = append(chunks, Chunk{
				Index: nextIndex,
				Page:  page.Number,
				Text:  text,
			})
			nextIndex++
		}

		if end == len(runes) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		// Move the overlapped start forward to a word boundary too.
		for next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}
	return chunks
}
