package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-tabletop/internal/httpc"
)

const providerOpenAI = "openai"

// Client is the OpenAI-backed inference provider.
// Works with any OpenAI-compatible API that accepts image_url content parts.
type Client struct {
	api    *openai.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a new inference client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		config: cfg,
		logger: cfg.Logger.With("component", "inference.client"),
	}, nil
}

// Transcribe sends every image in a single vision request and returns the
// extracted text. The request is attempted once.
func (c *Client) Transcribe(ctx context.Context, req *TranscribeRequest) (*TextResponse, error) {
	if req == nil {
		return nil, ErrNoImages
	}
	if err := ValidateImages(req.Images); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.config.OCRModel
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = c.config.OCRPrompt
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURL(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	return c.complete(ctx, "transcribe", openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
}

// Translate sends text with the system instructions and returns the
// model's translation. The request is attempted once.
func (c *Client) Translate(ctx context.Context, req *TranslateRequest) (*TextResponse, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	model := req.Model
	if model == "" {
		model = c.config.TranslateModel
	}
	instructions := req.Instructions
	if instructions == "" {
		instructions = c.config.TranslateInstructions
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: instructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})

	return c.complete(ctx, "translate", openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: c.config.MaxTokens,
		Messages:  messages,
	})
}

func (c *Client) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (*TextResponse, error) {
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion failed", "op", op, "model", req.Model, "error", err)
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyResponse)
	}

	latency := time.Since(start).Milliseconds()
	c.logger.Debug("completion done",
		"op", op,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", latency,
	)

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &TextResponse{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity by listing models.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// Close releases resources. The underlying HTTP client needs no cleanup.
func (c *Client) Close() error {
	return nil
}

// wrapError converts go-openai errors into APIError.
func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerOpenAI,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		if len(reqErr.Body) > 0 {
			msg = string(reqErr.Body)
		}
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Provider:   providerOpenAI,
		}
	}

	return WrapError(providerOpenAI, err)
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
