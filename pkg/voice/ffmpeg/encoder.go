// Package ffmpeg decodes arbitrary audio with an ffmpeg subprocess and
// encodes it to 20ms Opus frames for voice.Player.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-tabletop/pkg/voice"
)

// DefaultBitrate matches Discord's default voice bitrate.
const DefaultBitrate = 64000

// maxOpusFrame is the largest packet libopus can produce for one frame.
const maxOpusFrame = 4000

// Encoder implements voice.Encoder.
type Encoder struct {
	path    string
	bitrate int
	logger  *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithPath sets the ffmpeg binary. Empty means "ffmpeg" on PATH.
func WithPath(path string) Option {
	return func(e *Encoder) {
		if path != "" {
			e.path = path
		}
	}
}

// WithBitrate sets the Opus bitrate in bits per second.
func WithBitrate(bps int) Option {
	return func(e *Encoder) { e.bitrate = bps }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// NewEncoder creates an encoder.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		path:    "ffmpeg",
		bitrate: DefaultBitrate,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "voice.ffmpeg")
	return e
}

// Check verifies the ffmpeg binary can be found.
func (e *Encoder) Check() error {
	if _, err := exec.LookPath(e.path); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// Encode pipes r through ffmpeg into 48kHz stereo PCM and emits Opus frames.
func (e *Encoder) Encode(ctx context.Context, r io.Reader, emit func([]byte) error) error {
	cmd := exec.CommandContext(ctx, e.path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(voice.SampleRate),
		"-ac", fmt.Sprint(voice.Channels),
		"pipe:1",
	)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: start: %w", err)
	}

	encErr := EncodePCM(stdout, e.bitrate, emit)
	if encErr != nil {
		cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if encErr != nil {
		return encErr
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		e.logger.Debug("ffmpeg exited", "error", waitErr, "stderr", msg)
		return fmt.Errorf("ffmpeg: %w: %s", waitErr, msg)
	}
	return nil
}

// EncodePCM reads 48kHz stereo s16le PCM from r and emits one Opus frame
// per 20ms. A short final frame is padded with silence.
func EncodePCM(r io.Reader, bitrate int, emit func([]byte) error) error {
	enc, err := opus.NewEncoder(voice.SampleRate, voice.Channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus: new encoder: %w", err)
	}
	if bitrate > 0 {
		if err := enc.SetBitrate(bitrate); err != nil {
			return fmt.Errorf("opus: bitrate: %w", err)
		}
	}

	pcm := make([]int16, voice.FrameSamples*voice.Channels)
	raw := make([]byte, len(pcm)*2)
	buf := make([]byte, maxOpusFrame)

	for {
		n, err := io.ReadFull(r, raw)
		last := false
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(raw[n:])
			last = true
		case err != nil:
			return fmt.Errorf("opus: read pcm: %w", err)
		}

		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}

		size, err := enc.Encode(pcm, buf)
		if err != nil {
			return fmt.Errorf("opus: encode: %w", err)
		}
		frame := make([]byte, size)
		copy(frame, buf[:size])
		if err := emit(frame); err != nil {
			return err
		}
		if last {
			return nil
		}
	}
}

// Verify Encoder implements voice.Encoder at compile time.
var _ voice.Encoder = (*Encoder)(nil)
