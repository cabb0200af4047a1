package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// DefaultMaxImages caps the page images sent in one vision request.
const DefaultMaxImages = 10

// Client runs field extraction against a Provider.
type Client struct {
	provider  Provider
	maxImages int
	log       *slog.Logger
}

type ClientOption func(*Client)

func WithMaxImages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxImages = n
		}
	}
}

// NewClient fails with common.ErrCapabilityUnavailable when provider is nil.
func NewClient(provider Provider, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	if provider == nil {
		return nil, common.CapabilityError("extraction client", "model provider")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{provider: provider, maxImages: DefaultMaxImages, log: logger}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Provider returns the provider backing the client.
func (c *Client) Provider() Provider { return c.provider }

// ExtractFromText asks the model for fields using document text as context.
func (c *Client) ExtractFromText(ctx context.Context, docContext string, fields []string, descriptions map[string]string) ([]entity.FormField, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"mode", "text",
		"provider", c.provider.Name(),
		"model", c.provider.Model(),
		"context_len", len(docContext),
		"fields", len(fields),
	)

	reply, err := c.provider.CompleteText(ctx, TextRequest{
		System: TextSystemPrompt,
		Prompt: BuildExtractionPrompt(docContext, fields, descriptions),
	})
	if err != nil {
		c.log.Error("llm.extract.provider_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s text completion: %w", c.provider.Name(), err)
	}
	return c.parse(rid, start, reply, fields), nil
}

// ExtractFromImages asks the model for fields from page images. Only the first
// maxImages images are sent. An empty extraContext uses DefaultImageContext.
func (c *Client) ExtractFromImages(ctx context.Context, images []string, fields []string, descriptions map[string]string, extraContext string) ([]entity.FormField, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(images) > c.maxImages {
		c.log.Warn("llm.extract.images_truncated", "req_id", rid, "images", len(images), "max", c.maxImages)
		images = images[:c.maxImages]
	}
	if extraContext == "" {
		extraContext = DefaultImageContext
	}
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"mode", "vision",
		"provider", c.provider.Name(),
		"model", c.provider.Model(),
		"images", len(images),
		"fields", len(fields),
	)

	reply, err := c.provider.CompleteImages(ctx, ImageRequest{
		System: VisionSystemPrompt,
		Prompt: BuildExtractionPrompt(extraContext, fields, descriptions),
		Images: images,
		Detail: "high",
	})
	if err != nil {
		c.log.Error("llm.extract.provider_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s vision completion: %w", c.provider.Name(), err)
	}
	return c.parse(rid, start, reply, fields), nil
}

func (c *Client) parse(rid string, start time.Time, reply string, fields []string) []entity.FormField {
	out, err := ParseExtraction(reply, fields, c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid,
			"error", err,
			"reply", preview(reply, 400),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out
	}

	found := 0
	for _, f := range out {
		if f.Value != nil {
			found++
		}
	}
	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"fields", len(out),
		"with_value", found,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
