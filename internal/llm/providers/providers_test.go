package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
)

func TestNew(t *testing.T) {
	p, err := New(common.AIConfig{Provider: constants.ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt-4o"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o", p.Model())

	p, err = New(common.AIConfig{Provider: constants.ProviderAnthropic, AnthropicAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(common.AIConfig{Provider: constants.ProviderOpenAI}, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)

	_, err = New(common.AIConfig{Provider: constants.ProviderAnthropic}, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)

	_, err = New(common.AIConfig{Provider: "gemini"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
