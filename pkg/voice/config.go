package voice

import (
	"errors"
	"log/slog"
	"time"
)

// Frame timing for 48kHz stereo Opus.
const (
	SampleRate    = 48000
	Channels      = 2
	FrameDuration = 20 * time.Millisecond
	FrameSamples  = SampleRate / 1000 * 20 // per channel
)

// ErrNoChannel is returned when no voice channel is configured.
var ErrNoChannel = errors.New("voice: channel ID required")

// Config holds tunable parameters for the session and player.
type Config struct {
	// ChannelID is the voice channel the session joins.
	ChannelID string

	// Grace is how long Play waits after an on-demand connect before
	// starting playback. It is not cancellable.
	Grace time.Duration

	// FrameDuration paces frames that are dropped while no connection is
	// subscribed.
	FrameDuration time.Duration

	// MaxMissedFrames ends a playback after this many consecutive frames
	// could not be delivered. Zero means never.
	MaxMissedFrames int

	// SendTimeout bounds a single frame hand-off to the connection.
	SendTimeout time.Duration

	// Logger for session and player events.
	Logger *slog.Logger
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithChannel sets the voice channel ID.
func WithChannel(id string) Option {
	return func(c *Config) { c.ChannelID = id }
}

// WithGrace sets the post-connect grace delay.
func WithGrace(d time.Duration) Option {
	return func(c *Config) { c.Grace = d }
}

// WithFrameDuration sets the pacing interval for undeliverable frames.
func WithFrameDuration(d time.Duration) Option {
	return func(c *Config) { c.FrameDuration = d }
}

// WithMaxMissedFrames sets how many consecutive undeliverable frames end a
// playback.
func WithMaxMissedFrames(n int) Option {
	return func(c *Config) { c.MaxMissedFrames = n }
}

// WithSendTimeout sets the per-frame send timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Config) { c.SendTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults. 3000 missed frames is one minute of
// audio at 20ms per frame.
func DefaultConfig() *Config {
	return &Config{
		Grace:           500 * time.Millisecond,
		FrameDuration:   FrameDuration,
		MaxMissedFrames: 3000,
		SendTimeout:     time.Second,
		Logger:          slog.Default(),
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
	if c.ChannelID == "" {
		return ErrNoChannel
	}
	return nil
}
