package retrieval

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

const (
	DefaultTopK             = 3
	DefaultContextPrefixLen = 5000

	contextSeparator = "\n\n---\n\n"
)

// Retriever ranks chunks by word overlap with a query.
// It holds per-document state and is not meant to be shared between goroutines.
type Retriever struct {
	chunks []entity.Chunk
	words  []map[string]struct{}
}

func New() *Retriever {
	return &Retriever{}
}

// Index replaces the indexed chunks.
func (r *Retriever) Index(chunks []entity.Chunk) {
	r.chunks = chunks
	r.words = make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		r.words[i] = wordSet(c.Text)
	}
}

// Len returns the number of indexed chunks.
func (r *Retriever) Len() int { return len(r.chunks) }

type scored struct {
	idx   int
	score float64
}

// Retrieve returns at most topK chunks sharing at least one word with query,
// best first. Ties keep index order.
func (r *Retriever) Retrieve(query string, topK int) []entity.Chunk {
	q := wordSet(query)
	if len(q) == 0 || topK <= 0 {
		return nil
	}

	var hits []scored
	for i, ws := range r.words {
		overlap := 0
		for w := range q {
			if _, ok := ws[w]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		hits = append(hits, scored{idx: i, score: float64(overlap) / float64(len(q))})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]entity.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, r.chunks[h.idx])
	}
	return out
}

// FieldQuery is the search string used for one template field.
func FieldQuery(field string, descriptions map[string]string) string {
	q := strings.ReplaceAll(field, "_", " ")
	if d, ok := descriptions[field]; ok && d != "" {
		q += " " + d
	}
	return q
}

// RetrieveForFields runs one query per field.
func (r *Retriever) RetrieveForFields(fields []string, descriptions map[string]string, topK int) map[string][]entity.Chunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	out := make(map[string][]entity.Chunk, len(fields))
	for _, f := range fields {
		out[f] = r.Retrieve(FieldQuery(f, descriptions), topK)
	}
	return out
}

// BuildContext assembles the model context: the head of the raw text followed by
// every retrieved chunk once, in field order.
func BuildContext(rawText string, perField map[string][]entity.Chunk, fields []string, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultContextPrefixLen
	}
	parts := []string{truncateRunes(rawText, prefixLen)}

	seen := map[int]struct{}{}
	for _, f := range fields {
		for _, c := range perField[f] {
			if _, dup := seen[c.ChunkID]; dup {
				continue
			}
			seen[c.ChunkID] = struct{}{}
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, contextSeparator)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
