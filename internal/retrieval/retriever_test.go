package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

func chunks(texts ...string) []entity.Chunk {
	out := make([]entity.Chunk, len(texts))
	for i, t := range texts {
		out[i] = entity.Chunk{ChunkID: i, Text: t}
	}
	return out
}

func TestRetrieve_RanksByOverlap(t *testing.T) {
	r := New()
	r.Index(chunks(
		"Member ID: 12345",
		"Patient name Jane Doe, date of birth 01/02/1980",
		"unrelated text",
		"patient seen in clinic",
	))

	got := r.Retrieve("patient name", 3)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ChunkID)
	assert.Equal(t, 3, got[1].ChunkID)
}

func TestRetrieve_TiesKeepIndexOrder(t *testing.T) {
	r := New()
	r.Index(chunks("npi one", "other", "NPI two", "npi three"))

	got := r.Retrieve("npi", 2)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ChunkID)
	assert.Equal(t, 2, got[1].ChunkID)
}

func TestRetrieve_EdgeCases(t *testing.T) {
	r := New()
	assert.Empty(t, r.Retrieve("anything", 3))

	r.Index(chunks("alpha beta"))
	assert.Empty(t, r.Retrieve("", 3))
	assert.Empty(t, r.Retrieve("gamma", 3))
	assert.Empty(t, r.Retrieve("alpha", 0))
	assert.Equal(t, 1, r.Len())
}

func TestFieldQuery(t *testing.T) {
	desc := map[string]string{"patient_dob": "Patient's date of birth"}
	assert.Equal(t, "patient dob Patient's date of birth", FieldQuery("patient_dob", desc))
	assert.Equal(t, "icd 10 codes", FieldQuery("icd_10_codes", desc))
}

func TestRetrieveForFields_DefaultTopK(t *testing.T) {
	r := New()
	r.Index(chunks("member a", "member b", "member c", "member d"))

	got := r.RetrieveForFields([]string{"member_id", "cpt_codes"}, nil, 0)
	assert.Len(t, got["member_id"], DefaultTopK)
	assert.Empty(t, got["cpt_codes"])
}

func TestBuildContext_DeduplicatesInFieldOrder(t *testing.T) {
	c := chunks("first", "second", "third")
	perField := map[string][]entity.Chunk{
		"a": {c[1], c[0]},
		"b": {c[0], c[2]},
	}

	got := BuildContext("RAW", perField, []string{"a", "b"}, 10)
	assert.Equal(t, "RAW\n\n---\n\nsecond\n\n---\n\nfirst\n\n---\n\nthird", got)
}

func TestBuildContext_TruncatesPrefix(t *testing.T) {
	raw := strings.Repeat("é", 20)
	got := BuildContext(raw, nil, nil, 5)
	assert.Equal(t, strings.Repeat("é", 5), got)

	got = BuildContext(strings.Repeat("x", 6000), nil, nil, 0)
	assert.Len(t, got, DefaultContextPrefixLen)
}
