package tabletop

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-tabletop/internal/config"
	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tts"
)

// NewInferenceClient builds the OCR and translation client, loading the
// translation instructions file when one is configured.
func NewInferenceClient(cfg config.Config, logger *slog.Logger) (*inference.Client, error) {
	instructions := inference.DefaultTranslateInstructions
	if path := cfg.TranslateInstructionsFile; path != "" {
		text, err := inference.LoadInstructions(path)
		if err != nil {
			return nil, err
		}
		instructions = text
	}

	client, err := inference.NewClient(
		inference.WithAPIKey(cfg.OpenAIKey),
		inference.WithBaseURL(cfg.OpenAIBaseURL),
		inference.WithOCRModel(cfg.OCRModel),
		inference.WithTranslateModel(cfg.TranslateModel),
		inference.WithTranslateInstructions(instructions),
		inference.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	return client, nil
}

// NewSpeechClient builds the ElevenLabs client.
func NewSpeechClient(cfg config.Config, logger *slog.Logger) (*tts.ElevenLabs, error) {
	opts := []tts.Option{
		tts.WithAPIKey(cfg.ElevenLabsKey),
		tts.WithModel(cfg.TTSModel),
		tts.WithLogger(logger),
	}
	if cfg.ElevenLabsBaseURL != "" {
		opts = append(opts, tts.WithBaseURL(cfg.ElevenLabsBaseURL))
	}

	client, err := tts.NewElevenLabs(opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	return client, nil
}
