// Package tabletop wires the voice session, the vendor clients and the HTTP
// server into one application with a single lifecycle.
package tabletop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-tabletop/internal/config"
	"github.com/teslashibe/go-tabletop/pkg/hub"
	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tts"
	"github.com/teslashibe/go-tabletop/pkg/voice"
	"github.com/teslashibe/go-tabletop/pkg/voice/ffmpeg"
	"github.com/teslashibe/go-tabletop/pkg/web"
)

// ShutdownTimeout bounds how long in-flight requests get on shutdown.
const ShutdownTimeout = 10 * time.Second

// Deps are the external collaborators. Nil fields are built from config.
type Deps struct {
	Gateway voice.Gateway
	Encoder voice.Encoder
	OCR     inference.Provider
	TTS     tts.Provider
}

// App owns every long-lived component of the service.
type App struct {
	config config.Config
	logger *slog.Logger

	discord *voice.Discord // nil when the gateway was injected
	ffmpeg  *ffmpeg.Encoder

	session   *voice.Session
	ocr       inference.Provider
	tts       tts.Provider
	statusHub *hub.Hub
	server    *web.Server
}

// New builds the application from validated configuration. Nothing touches
// the network until Init.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	return NewWithDeps(cfg, logger, Deps{})
}

// NewWithDeps is New with some collaborators supplied by the caller.
func NewWithDeps(cfg config.Config, logger *slog.Logger, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		config: cfg,
		logger: logger.With("component", "tabletop"),
	}

	if err := a.initProviders(deps); err != nil {
		return nil, err
	}
	if err := a.initVoice(deps); err != nil {
		return nil, err
	}

	a.statusHub = hub.New("status", logger)
	a.wireEvents()

	server, err := web.NewServer(web.Config{
		Voice:     a.session,
		OCR:       a.ocr,
		TTS:       a.tts,
		Metrics:   a.session.Player().Metrics(),
		StatusHub: a.statusHub,
		Logger:    logger,
		Debug:     logger.Enabled(context.Background(), slog.LevelDebug),
	})
	if err != nil {
		return nil, err
	}
	a.server = server

	return a, nil
}

func (a *App) initProviders(deps Deps) error {
	a.ocr = deps.OCR
	if a.ocr == nil {
		client, err := NewInferenceClient(a.config, a.logger)
		if err != nil {
			return err
		}
		a.ocr = client
	}

	a.tts = deps.TTS
	if a.tts == nil {
		client, err := NewSpeechClient(a.config, a.logger)
		if err != nil {
			return err
		}
		a.tts = client
	}
	return nil
}

func (a *App) initVoice(deps Deps) error {
	gw := deps.Gateway
	if gw == nil {
		d, err := voice.NewDiscord(a.config.DiscordToken, a.logger)
		if err != nil {
			return err
		}
		a.discord = d
		gw = d
	}

	enc := deps.Encoder
	if enc == nil {
		a.ffmpeg = ffmpeg.NewEncoder(
			ffmpeg.WithPath(a.config.FFmpegPath),
			ffmpeg.WithLogger(a.logger),
		)
		enc = a.ffmpeg
	}

	session, err := voice.NewSession(gw, enc,
		voice.WithChannel(a.config.VoiceChannelID),
		voice.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.session = session
	return nil
}

// wireEvents forwards session and player events to the status hub.
func (a *App) wireEvents() {
	a.session.OnStateChange(func(st voice.State) {
		a.statusHub.BroadcastJSON(hub.VoiceStateEvent(string(st)))
	})

	player := a.session.Player()
	player.OnPlaybackStart = func(id string) {
		a.statusHub.BroadcastJSON(hub.PlaybackEvent(id, "started", nil))
	}
	player.OnPlaybackEnd = func(id string, err error) {
		a.statusHub.BroadcastJSON(hub.PlaybackEvent(id, "ended", err))
	}
	player.Metrics().OnUpdate(func(m voice.Metrics) {
		if m.EndedAt.IsZero() {
			return
		}
		a.logger.Info("playback latency",
			"playback", m.ID,
			"summary", m.FormatLatency(),
			"frames_sent", m.FramesSent,
			"frames_dropped", m.FramesDropped,
		)
	})
}

// Session returns the voice session.
func (a *App) Session() *voice.Session {
	return a.session
}

// Server returns the HTTP server.
func (a *App) Server() *web.Server {
	return a.server
}

// Init checks local prerequisites and connects to the Discord gateway.
// Call this after New and before Run.
func (a *App) Init() error {
	if a.ffmpeg != nil {
		if err := a.ffmpeg.Check(); err != nil {
			return fmt.Errorf("ffmpeg is required for playback: %w", err)
		}
	}
	if a.discord != nil {
		if err := a.discord.Open(); err != nil {
			return err
		}
	}
	a.logger.Info("initialized",
		"env", a.config.Env,
		"voice_channel", a.config.VoiceChannelID,
		"ocr_model", a.config.OCRModel,
		"translate_model", a.config.TranslateModel,
	)
	return nil
}

// Run serves HTTP until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	go a.statusHub.Run()

	errc := make(chan error, 1)
	go func() {
		errc <- a.server.Listen(a.config.Addr())
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
}

// Shutdown drains HTTP, then tears down the voice connection, the gateway
// and the vendor clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("voice session: %w", err))
	}
	a.statusHub.Stop()
	if err := a.ocr.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.tts.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
