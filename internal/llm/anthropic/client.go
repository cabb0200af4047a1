package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/llm"
)

const apiVersion = "2023-06-01"

// Config for the Anthropic messages adapter.
type Config struct {
	APIKey      string
	BaseURL     string // default https://api.anthropic.com
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

var _ llm.Provider = (*Client)(nil)

// NewClient fails with common.ErrCapabilityUnavailable when no API key is configured.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.CapabilityError("anthropic provider", "ANTHROPIC_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: logger}, nil
}

func (c *Client) Name() string  { return string(constants.ProviderAnthropic) }
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) CompleteText(ctx context.Context, req llm.TextRequest) (string, error) {
	return c.complete(ctx, req.System, []map[string]any{textBlock(req.Prompt)})
}

// CompleteImages puts the page images ahead of the prompt.
func (c *Client) CompleteImages(ctx context.Context, req llm.ImageRequest) (string, error) {
	blocks := make([]map[string]any, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": "image/png",
				"data":       img,
			},
		})
	}
	blocks = append(blocks, textBlock(req.Prompt))
	return c.complete(ctx, req.System, blocks)
}

func textBlock(s string) map[string]any {
	return map[string]any{"type": "text", "text": s}
}

func (c *Client) complete(ctx context.Context, system string, content []map[string]any) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"system":      system,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Error("llm.anthropic.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	c.log.Error("llm.anthropic.no_text", "raw_bytes", len(raw))
	return "", fmt.Errorf("no text content in anthropic response")
}
