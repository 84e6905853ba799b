// Package tts provides streaming text-to-speech on top of ElevenLabs.
//
// The HTTP layer depends on the Provider interface so playback handlers can
// be tested with Mock. Voices are restricted to SupportedVoices; anything else
// is rejected with ErrUnsupportedVoice before a request is made.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	defer provider.Close()
//
//	stream, _ := provider.Stream(ctx, &tts.Request{Text: "Witajcie, wędrowcy"})
//	defer stream.Close()
//	// stream yields MP3 bytes as they arrive
package tts

import (
	"context"
	"io"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Stream converts text to audio and returns the body as it arrives.
	Stream(ctx context.Context, req *Request) (AudioStream, error)

	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, req *Request) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request describes one synthesis call.
type Request struct {
	// Text to speak.
	Text string

	// VoiceID must be one of SupportedVoices. Empty selects DefaultVoice.
	VoiceID string

	// ModelID overrides the configured model.
	ModelID string

	// Settings overrides the configured voice settings.
	Settings *VoiceSettings
}

// AudioStream is a streaming audio response. Read it like any io.Reader and
// Close it when done.
type AudioStream interface {
	io.ReadCloser

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio bytes.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the total request time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the output format (e.g., mp3_44100_128).
	Encoding Encoding

	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents ElevenLabs output format options.
type Encoding string

const (
	EncodingMP3    Encoding = "mp3_44100_128"  // MP3 128kbps
	EncodingMP3Low Encoding = "mp3_22050_32"   // MP3 32kbps
	EncodingPCM24  Encoding = "pcm_24000"      // 24kHz mono PCM16
	EncodingPCM44  Encoding = "pcm_44100"      // 44.1kHz mono PCM16
	EncodingOpus48 Encoding = "opus_48000_128" // Opus 48kHz
	EncodingULaw8k Encoding = "ulaw_8000"      // telephony
)

// MIME returns the Accept header value for the encoding.
func (e Encoding) MIME() string {
	switch e {
	case EncodingPCM24, EncodingPCM44:
		return "audio/pcm"
	case EncodingOpus48:
		return "audio/opus"
	case EncodingULaw8k:
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// SampleRate extracts the sample rate from an encoding.
func (e Encoding) SampleRate() int {
	switch e {
	case EncodingMP3Low:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingOpus48:
		return 48000
	case EncodingULaw8k:
		return 8000
	default:
		return 44100
	}
}

// VoiceSettings controls voice characteristics.
type VoiceSettings struct {
	// Speed multiplies the speaking rate (1.0 = normal).
	Speed float64 `json:"speed"`

	// Stability controls voice consistency (0.0-1.0).
	// Lower values = more expressive, higher = more consistent.
	Stability float64 `json:"stability"`

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64 `json:"similarity_boost"`

	// Style controls style exaggeration (0.0-1.0).
	Style float64 `json:"style"`

	// SpeakerBoost enhances speaker clarity.
	SpeakerBoost bool `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns the defaults used when a request leaves a
// setting unset.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Speed:           1.0,
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}

// VoiceSettingsOverride carries optional per-request settings. Nil fields
// keep the base value.
type VoiceSettingsOverride struct {
	Speed           *float64 `json:"speed,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarityBoost,omitempty"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool    `json:"useSpeakerBoost,omitempty"`
}

// Apply returns base with every non-nil override applied.
func (o *VoiceSettingsOverride) Apply(base VoiceSettings) VoiceSettings {
	if o == nil {
		return base
	}
	if o.Speed != nil {
		base.Speed = *o.Speed
	}
	if o.Stability != nil {
		base.Stability = *o.Stability
	}
	if o.SimilarityBoost != nil {
		base.SimilarityBoost = *o.SimilarityBoost
	}
	if o.Style != nil {
		base.Style = *o.Style
	}
	if o.UseSpeakerBoost != nil {
		base.SpeakerBoost = *o.UseSpeakerBoost
	}
	return base
}

// readAll drains a stream into an AudioResult.
func readAll(stream AudioStream, chars int, start time.Time) (*AudioResult, error) {
	defer stream.Close()
	audio, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return &AudioResult{
		Audio:     audio,
		Format:    stream.Format(),
		CharCount: chars,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
