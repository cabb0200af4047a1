package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/llm"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "}, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)
}

func TestCompleteImages_RequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"extracted_fields\":[]}"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "ak-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", c.Model())
	assert.Equal(t, "anthropic", c.Name())

	out, err := c.CompleteImages(context.Background(), llm.ImageRequest{System: "sys", Prompt: "extract", Images: []string{"AAAA"}})
	require.NoError(t, err)
	assert.Equal(t, `{"extracted_fields":[]}`, out)

	assert.Equal(t, "sys", got["system"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	blocks := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)

	first := blocks[0].(map[string]any)
	assert.Equal(t, "image", first["type"])
	src := first["source"].(map[string]any)
	assert.Equal(t, "base64", src["type"])
	assert.Equal(t, "image/png", src["media_type"])
	assert.Equal(t, "AAAA", src["data"])

	last := blocks[1].(map[string]any)
	assert.Equal(t, "text", last["type"])
	assert.Equal(t, "extract", last["text"])
}

func TestCompleteText_NoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = c.CompleteText(context.Background(), llm.TextRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "no text content")
}
