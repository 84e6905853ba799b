// Package inference provides text extraction and translation on top of an
// OpenAI-compatible chat/vision completion API.
//
// Callers depend on the Provider interface so handlers can be tested with
// Mock instead of reaching the network.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	defer client.Close()
//
//	resp, _ := client.Transcribe(ctx, &inference.TranscribeRequest{
//	    Images: []inference.Image{{Data: jpeg, MIMEType: "image/jpeg"}},
//	})
package inference

import "context"

// Provider is the capability the HTTP layer needs from a completion API.
type Provider interface {
	// Transcribe extracts the text visible in one or more images.
	Transcribe(ctx context.Context, req *TranscribeRequest) (*TextResponse, error)

	// Translate rewrites text according to the translation instructions.
	Translate(ctx context.Context, req *TranslateRequest) (*TextResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// TranscribeRequest asks for the text contained in images.
type TranscribeRequest struct {
	// Images to read. At least one, at most MaxImages.
	Images []Image

	// Prompt overrides the default OCR instruction.
	Prompt string

	// Model overrides the configured OCR model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int
}

// TranslateRequest asks for a translation of text.
type TranslateRequest struct {
	// Text to translate.
	Text string

	// Instructions override the configured system instructions.
	Instructions string

	// Model overrides the configured translation model.
	Model string
}

// TextResponse is the text produced by a completion call.
type TextResponse struct {
	// Text is the model output.
	Text string

	// Model used for generation.
	Model string

	// Usage tracks token consumption.
	Usage Usage

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// TranscribeAndTranslate extracts text from images and feeds it into a
// translation call. The returned response carries the translated text and
// the combined usage of both calls.
func TranscribeAndTranslate(ctx context.Context, p Provider, req *TranscribeRequest) (*TextResponse, error) {
	extracted, err := p.Transcribe(ctx, req)
	if err != nil {
		return nil, err
	}

	translated, err := p.Translate(ctx, &TranslateRequest{Text: extracted.Text})
	if err != nil {
		return nil, err
	}

	return &TextResponse{
		Text:      translated.Text,
		Model:     translated.Model,
		Usage:     extracted.Usage.Add(translated.Usage),
		LatencyMs: extracted.LatencyMs + translated.LatencyMs,
	}, nil
}
