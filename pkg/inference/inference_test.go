package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMock()

	resp, err := mock.Transcribe(ctx, &TranscribeRequest{
		Images: []Image{{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if resp.Text == "" {
		t.Error("Expected text in transcription")
	}

	tr, err := mock.Translate(ctx, &TranslateRequest{Text: "Hello"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !strings.Contains(tr.Text, "Hello") {
		t.Errorf("Expected translation to echo input, got %q", tr.Text)
	}

	if mock.CallCount("Transcribe") != 1 {
		t.Errorf("Expected 1 Transcribe call, got %d", mock.CallCount("Transcribe"))
	}
	if mock.CallCount("Translate") != 1 {
		t.Errorf("Expected 1 Translate call, got %d", mock.CallCount("Translate"))
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(mock.Calls()))
	}

	mock.Reset()
	if len(mock.Calls()) != 0 {
		t.Error("Expected 0 calls after reset")
	}
}

func TestMockWithError(t *testing.T) {
	ctx := context.Background()
	testErr := errors.New("test error")
	mock := WithError(testErr)

	if _, err := mock.Transcribe(ctx, &TranscribeRequest{}); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got %v", err)
	}
	if _, err := mock.Translate(ctx, &TranslateRequest{}); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got %v", err)
	}
	if err := mock.Health(ctx); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got %v", err)
	}
}

func TestTranscribeAndTranslate(t *testing.T) {
	ctx := context.Background()
	mock := NewMock()
	mock.TranscribeFunc = func(ctx context.Context, req *TranscribeRequest) (*TextResponse, error) {
		return &TextResponse{Text: "Roll for initiative", Usage: Usage{TotalTokens: 10}, LatencyMs: 5}, nil
	}
	var gotText string
	mock.TranslateFunc = func(ctx context.Context, req *TranslateRequest) (*TextResponse, error) {
		gotText = req.Text
		return &TextResponse{Text: "Rzut na inicjatywę", Model: "gpt-4.1", Usage: Usage{TotalTokens: 7}, LatencyMs: 3}, nil
	}

	resp, err := TranscribeAndTranslate(ctx, mock, &TranscribeRequest{})
	if err != nil {
		t.Fatalf("TranscribeAndTranslate failed: %v", err)
	}
	if gotText != "Roll for initiative" {
		t.Errorf("Expected OCR text to be translated, got %q", gotText)
	}
	if resp.Text != "Rzut na inicjatywę" {
		t.Errorf("Unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 17 {
		t.Errorf("Expected combined usage 17, got %d", resp.Usage.TotalTokens)
	}
	if resp.LatencyMs != 8 {
		t.Errorf("Expected combined latency 8, got %d", resp.LatencyMs)
	}
}

func TestTranscribeAndTranslateStopsOnOCRError(t *testing.T) {
	mock := NewMock()
	mock.TranscribeFunc = func(ctx context.Context, req *TranscribeRequest) (*TextResponse, error) {
		return nil, &APIError{StatusCode: 500, Message: "boom", Provider: "openai"}
	}

	_, err := TranscribeAndTranslate(context.Background(), mock, &TranscribeRequest{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if mock.CallCount("Translate") != 0 {
		t.Error("Translate should not run after OCR failure")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}

	cfg.Apply(WithAPIKey("k"), WithOCRModel(""))
	if err := cfg.Validate(); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}

	cfg.Apply(WithOCRModel("gpt-4.1-mini"))
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	tests := []struct {
		status      int
		rateLimited bool
		unauth      bool
		server      bool
	}{
		{429, true, false, false},
		{401, false, true, false},
		{503, false, false, true},
		{400, false, false, false},
	}

	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status, Provider: "openai"}
		if e.IsRateLimited() != tt.rateLimited {
			t.Errorf("%d: IsRateLimited = %v", tt.status, e.IsRateLimited())
		}
		if e.IsUnauthorized() != tt.unauth {
			t.Errorf("%d: IsUnauthorized = %v", tt.status, e.IsUnauthorized())
		}
		if e.IsServerError() != tt.server {
			t.Errorf("%d: IsServerError = %v", tt.status, e.IsServerError())
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsUpstream(&APIError{StatusCode: 500}) {
		t.Error("APIError should be upstream")
	}
	if !IsUpstream(WrapError("openai", errors.New("dial tcp"))) {
		t.Error("ProviderError should be upstream")
	}
	if IsUpstream(ErrNoImages) {
		t.Error("ErrNoImages should not be upstream")
	}
	if !IsValidation(ErrTooManyImages) {
		t.Error("ErrTooManyImages should be validation")
	}
	if WrapError("openai", nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&APIError{StatusCode: 429}, "rate_limited"},
		{&APIError{StatusCode: 401}, "unauthorized"},
		{&APIError{StatusCode: 502}, "server"},
		{&APIError{StatusCode: 400}, "rejected"},
		{WrapError("openai", errors.New("dial tcp")), "transport"},
		{ErrNoImages, "request"},
	}

	for _, tt := range tests {
		if got := ErrorClass(tt.err); got != tt.want {
			t.Errorf("ErrorClass(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLoadInstructions(t *testing.T) {
	if strings.TrimSpace(DefaultTranslateInstructions) == "" {
		t.Fatal("embedded instructions are empty")
	}

	dir := t.TempDir()
	path := dir + "/instructions.txt"
	if err := writeFile(path, "  Translate to German.\n"); err != nil {
		t.Fatal(err)
	}
	got, err := LoadInstructions(path)
	if err != nil {
		t.Fatalf("LoadInstructions failed: %v", err)
	}
	if got != "Translate to German." {
		t.Errorf("Expected trimmed instructions, got %q", got)
	}

	empty := dir + "/empty.txt"
	if err := writeFile(empty, "\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadInstructions(empty); err == nil {
		t.Error("Expected error for empty instructions file")
	}

	if _, err := LoadInstructions(dir + "/missing.txt"); err == nil {
		t.Error("Expected error for missing file")
	}
}
