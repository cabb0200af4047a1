package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

func (c *Client) Name() string  { return string(constants.ProviderOpenAI) }
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) CompleteText(ctx context.Context, req llm.TextRequest) (string, error) {
	return c.complete(ctx, req.System, req.Prompt)
}

// CompleteImages sends the prompt first and each page as a high-detail image part.
func (c *Client) CompleteImages(ctx context.Context, req llm.ImageRequest) (string, error) {
	detail := req.Detail
	if detail == "" {
		detail = "high"
	}
	parts := []map[string]any{{"type": "text", "text": req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url":    llm.PNGDataURL(img),
				"detail": detail,
			},
		})
	}
	return c.complete(ctx, req.System, parts)
}

func (c *Client) complete(ctx context.Context, system string, userContent any) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		// the prompt asks for JSON, which json_object mode requires
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": userContent},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.openai.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.openai.no_choices", "raw_bytes", len(raw))
		return "", fmt.Errorf("no choices in openai response")
	}
	return cc.Choices[0].Message.Content, nil
}
