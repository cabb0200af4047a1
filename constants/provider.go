package constants

import (
	"strings"
)

// Provider names a generative model backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

var allProviders = []Provider{
	ProviderOpenAI,
	ProviderAnthropic,
}

func ProvidersAsStrings() []string {
	result := make([]string, len(allProviders))
	for i, p := range allProviders {
		result[i] = string(p)
	}
	return result
}

// CanonicalizeProvider maps user input (flags, env, API bodies) onto a known provider.
func CanonicalizeProvider(input string) (Provider, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ProviderOpenAI, false
	}

	synonyms := map[string]Provider{
		"gpt":    ProviderOpenAI,
		"claude": ProviderAnthropic,
	}
	if p, ok := synonyms[normalized]; ok {
		return p, true
	}

	for _, p := range allProviders {
		if normalized == string(p) {
			return p, true
		}
	}
	return ProviderOpenAI, false
}
