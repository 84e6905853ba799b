package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-tabletop/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"

	// ModelFlashV2_5 is the fastest multilingual model.
	ModelFlashV2_5 = "eleven_flash_v2_5"

	// ModelTurboV2_5 trades some quality for latency.
	ModelTurboV2_5 = "eleven_turbo_v2_5"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
// Requests are attempted once; failures surface to the caller.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	stream  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		stream:  httpc.NewClient(0),
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}, nil
}

// Stream starts a streaming synthesis request. The voice is validated
// before any request is made.
func (e *ElevenLabs) Stream(ctx context.Context, req *Request) (AudioStream, error) {
	voiceID, body, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?%s",
		e.baseURL, url.PathEscape(voiceID),
		url.Values{"output_format": {string(e.config.OutputFormat)}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}
	e.setHeaders(httpReq)

	start := time.Now()
	resp, err := e.stream.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("stream request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, e.parseError(resp)
	}

	e.logger.Debug("stream started",
		"voice", voiceID,
		"chars", len(req.Text),
		"ttfb_ms", time.Since(start).Milliseconds(),
	)

	return &httpStream{
		ReadCloser: resp.Body,
		format:     e.outputFormat(),
	}, nil
}

// Synthesize streams the audio and buffers it fully.
func (e *ElevenLabs) Synthesize(ctx context.Context, req *Request) (*AudioResult, error) {
	start := time.Now()
	stream, err := e.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := readAll(stream, len(req.Text), start)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read response: %w", err))
	}
	return result, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	e.stream.CloseIdleConnections()
	return nil
}

// ModelID returns the configured model ID.
func (e *ElevenLabs) ModelID() string {
	return e.config.ModelID
}

type synthesisPayload struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// prepare validates the request and builds the JSON body.
func (e *ElevenLabs) prepare(req *Request) (string, []byte, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return "", nil, ErrEmptyText
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = e.config.VoiceID
	}
	voiceID, err := ValidateVoice(voiceID)
	if err != nil {
		return "", nil, err
	}

	payload := synthesisPayload{
		Text:          req.Text,
		ModelID:       e.config.ModelID,
		VoiceSettings: e.config.VoiceSettings,
	}
	if req.ModelID != "" {
		payload.ModelID = req.ModelID
	}
	if req.Settings != nil {
		payload.VoiceSettings = *req.Settings
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}
	return voiceID, body, nil
}

// setHeaders sets required HTTP headers.
func (e *ElevenLabs) setHeaders(req *http.Request) {
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", e.config.OutputFormat.MIME())
}

// parseError reads and parses an error response.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
		code = errResp.Detail.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerElevenLabs,
	}
}

func (e *ElevenLabs) outputFormat() AudioFormat {
	return AudioFormat{
		Encoding:   e.config.OutputFormat,
		SampleRate: e.config.OutputFormat.SampleRate(),
		Channels:   1,
	}
}

// httpStream wraps an HTTP response body as AudioStream.
type httpStream struct {
	io.ReadCloser
	format AudioFormat
}

// Format returns the audio format.
func (s *httpStream) Format() AudioFormat {
	return s.format
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
