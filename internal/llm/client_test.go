package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
)

type fakeProvider struct {
	reply     string
	err       error
	textReqs  []TextRequest
	imageReqs []ImageRequest
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) CompleteText(_ context.Context, req TextRequest) (string, error) {
	f.textReqs = append(f.textReqs, req)
	return f.reply, f.err
}

func (f *fakeProvider) CompleteImages(_ context.Context, req ImageRequest) (string, error) {
	f.imageReqs = append(f.imageReqs, req)
	return f.reply, f.err
}

func TestNewClient_RequiresProvider(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)
}

func TestExtractFromText(t *testing.T) {
	p := &fakeProvider{reply: `{"extracted_fields":[{"name":"patient_name","value":"Jane Doe","confidence":0.9}]}`}
	c, err := NewClient(p, nil)
	require.NoError(t, err)

	out, err := c.ExtractFromText(context.Background(), "Patient: Jane Doe", []string{"patient_name"}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Jane Doe", out[0].ValueOr(""))

	require.Len(t, p.textReqs, 1)
	assert.Equal(t, TextSystemPrompt, p.textReqs[0].System)
	assert.Contains(t, p.textReqs[0].Prompt, "Patient: Jane Doe")
}

func TestExtractFromText_ProviderErrorIsReturned(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	c, err := NewClient(p, nil)
	require.NoError(t, err)

	_, err = c.ExtractFromText(context.Background(), "ctx", []string{"a"}, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestExtractFromText_GarbageReplyIsNotAnError(t *testing.T) {
	c, err := NewClient(&fakeProvider{reply: "sorry"}, nil)
	require.NoError(t, err)

	out, err := c.ExtractFromText(context.Background(), "ctx", []string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExtractFromImages_CapsImagesAndDefaultsContext(t *testing.T) {
	p := &fakeProvider{reply: `{"extracted_fields":[]}`}
	c, err := NewClient(p, nil)
	require.NoError(t, err)

	images := make([]string, 14)
	for i := range images {
		images[i] = fmt.Sprintf("img%d", i)
	}
	_, err = c.ExtractFromImages(context.Background(), images, []string{"a"}, nil, "")
	require.NoError(t, err)

	require.Len(t, p.imageReqs, 1)
	req := p.imageReqs[0]
	assert.Len(t, req.Images, DefaultMaxImages)
	assert.Equal(t, "img9", req.Images[9])
	assert.Equal(t, VisionSystemPrompt, req.System)
	assert.Equal(t, "high", req.Detail)
	assert.Contains(t, req.Prompt, DefaultImageContext)
}

func TestWithMaxImages(t *testing.T) {
	p := &fakeProvider{reply: `{"extracted_fields":[]}`}
	c, err := NewClient(p, nil, WithMaxImages(2))
	require.NoError(t, err)

	_, err = c.ExtractFromImages(context.Background(), []string{"a", "b", "c"}, nil, nil, "page scans")
	require.NoError(t, err)
	assert.Len(t, p.imageReqs[0].Images, 2)
	assert.Contains(t, p.imageReqs[0].Prompt, "page scans")
}
