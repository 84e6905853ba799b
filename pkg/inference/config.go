package inference

import (
	"log/slog"
	"time"
)

// DefaultOCRPrompt is sent alongside the images when a request has no prompt.
const DefaultOCRPrompt = "Transcribe all text visible in the image(s) exactly as written. " +
	"Preserve line breaks and reading order. Reply with the transcription only."

// Config holds provider configuration.
type Config struct {
	// Connection
	BaseURL string // API base URL, empty for the OpenAI default
	APIKey  string

	// Models
	OCRModel       string
	TranslateModel string

	// Prompts
	OCRPrompt             string
	TranslateInstructions string

	// Request defaults
	MaxTokens int

	// Timeouts
	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
// Examples: "https://api.openai.com/v1", "http://localhost:11434/v1"
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithOCRModel sets the model used for image transcription.
func WithOCRModel(model string) Option {
	return func(c *Config) { c.OCRModel = model }
}

// WithTranslateModel sets the model used for translation.
func WithTranslateModel(model string) Option {
	return func(c *Config) { c.TranslateModel = model }
}

// WithOCRPrompt sets the default OCR instruction.
func WithOCRPrompt(prompt string) Option {
	return func(c *Config) { c.OCRPrompt = prompt }
}

// WithTranslateInstructions sets the system instructions for translation.
func WithTranslateInstructions(instructions string) Option {
	return func(c *Config) { c.TranslateInstructions = instructions }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for OpenAI.
func DefaultConfig() *Config {
	return &Config{
		OCRModel:              "gpt-4.1-mini",
		TranslateModel:        "gpt-4.1",
		OCRPrompt:             DefaultOCRPrompt,
		TranslateInstructions: DefaultTranslateInstructions,
		MaxTokens:             2048,
		Timeout:               60 * time.Second,
		Logger:                slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.OCRModel == "" || c.TranslateModel == "" {
		return ErrNoModel
	}
	return nil
}
