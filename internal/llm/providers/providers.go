// Package providers builds the configured llm.Provider.
package providers

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/llm"
	"github.com/joseph-ayodele/pa-autofill/internal/llm/anthropic"
	"github.com/joseph-ayodele/pa-autofill/internal/llm/openai"
)

// New returns the adapter named by cfg.Provider.
func New(cfg common.AIConfig, logger *slog.Logger) (llm.Provider, error) {
	switch cfg.Provider {
	case constants.ProviderOpenAI:
		c, err := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case constants.ProviderAnthropic:
		c, err := anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			BaseURL:     cfg.AnthropicBaseURL,
			Model:       cfg.AnthropicModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown AI provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
