package chunk

import (
	"strings"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200

	sourcePageContent = "page_content"
)

var (
	paragraphBreak = []rune("\n\n")
	sentenceBreaks = [][]rune{[]rune(". "), []rune("! "), []rune("? ")}
)

// Chunker splits text into overlapping windows, preferring paragraph and
// sentence boundaries in the back half of each window.
type Chunker struct {
	Size    int
	Overlap int
}

// New returns a Chunker, falling back to defaults for invalid settings.
func New(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return Chunker{Size: size, Overlap: overlap}
}

// ChunkText cuts text into chunks numbered from 0. Sizes and offsets count
// runes, so a cut never splits a multi-byte character.
func (c Chunker) ChunkText(text string, metadata map[string]any) []entity.Chunk {
	c = New(c.Size, c.Overlap)
	runes := []rune(text)
	var chunks []entity.Chunk
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		if body := strings.TrimSpace(string(runes[start:end])); body != "" {
			chunks = append(chunks, entity.Chunk{
				ChunkID:   len(chunks),
				Text:      body,
				StartChar: start,
				EndChar:   end,
				Metadata:  copyMeta(metadata),
			})
		}

		if end >= len(runes) {
			break
		}
		next := end - c.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint moves end back to a paragraph or sentence boundary when one lies
// past the middle of the window.
func (c Chunker) breakPoint(runes []rune, start, end int) int {
	window := runes[start:end]
	min := c.Size / 2

	if i := lastIndex(window, paragraphBreak); i > min {
		return start + i + len(paragraphBreak)
	}
	best := -1
	for _, sep := range sentenceBreaks {
		if i := lastIndex(window, sep); i > best {
			best = i
		}
	}
	if best > min {
		return start + best + 2
	}
	return end
}

// lastIndex is strings.LastIndex over runes; the result is a rune index.
func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ChunkPages chunks every page, tags each chunk with its page number and
// renumbers ids across the whole document.
func (c Chunker) ChunkPages(pages []entity.Page) []entity.Chunk {
	var all []entity.Chunk
	for _, p := range pages {
		meta := map[string]any{"page_number": p.PageNumber, "source": sourcePageContent}
		all = append(all, c.ChunkText(p.Text, meta)...)
	}
	for i := range all {
		all[i].ChunkID = i
	}
	return all
}

func copyMeta(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
