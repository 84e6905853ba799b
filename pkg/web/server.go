// Package web exposes the voice session, OCR and speech synthesis over HTTP.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/teslashibe/go-tabletop/pkg/hub"
	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tts"
	"github.com/teslashibe/go-tabletop/pkg/voice"
)

// BodyLimit fits a full multi-image OCR upload plus multipart overhead.
const BodyLimit = inference.MaxImages*inference.MaxImageBytes + 1<<20

// VoiceSession is the voice capability the handlers drive.
type VoiceSession interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Play(ctx context.Context, r io.Reader) (string, error)
	Pause() bool
	Resume() bool
	Stop() bool
	Status() voice.State
	PlayerStatus() voice.PlayerStatus
}

// Config wires the server to its collaborators.
type Config struct {
	Voice VoiceSession
	OCR   inference.Provider
	TTS   tts.Provider

	// Metrics backs GET /discord/metrics. Optional.
	Metrics *voice.MetricsCollector

	// StatusHub backs GET /ws/status. Optional.
	StatusHub *hub.Hub

	Logger *slog.Logger

	// BodyLimit caps request bodies. Zero means BodyLimit.
	BodyLimit int

	// Debug enables per-request access logs.
	Debug bool
}

// Server is the HTTP front end.
type Server struct {
	app     *fiber.App
	voice   VoiceSession
	ocr     inference.Provider
	tts     tts.Provider
	metrics *voice.MetricsCollector
	status  *hub.Hub
	logger  *slog.Logger
}

// NewServer builds the fiber app and registers every route.
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Voice == nil:
		return nil, errors.New("web: voice session required")
	case cfg.OCR == nil:
		return nil, errors.New("web: inference provider required")
	case cfg.TTS == nil:
		return nil, errors.New("web: tts provider required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = BodyLimit
	}

	s := &Server{
		voice:   cfg.Voice,
		ocr:     cfg.OCR,
		tts:     cfg.TTS,
		metrics: cfg.Metrics,
		status:  cfg.StatusHub,
		logger:  cfg.Logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-tabletop",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	discord := app.Group("/discord")
	discord.Post("/connect", s.handleConnect)
	discord.Post("/disconnect", s.handleDisconnect)
	discord.Post("/play", s.handlePlay)
	discord.Post("/pause", s.handlePause)
	discord.Post("/unpause", s.handleUnpause)
	discord.Post("/stop", s.handleStop)
	discord.Get("/status", s.handleStatus)
	discord.Get("/health", s.handleDiscordHealth)
	discord.Get("/metrics", s.handleMetrics)

	app.Post("/ocr", s.handleOCR)
	app.Get("/ocr/health", s.handleOCRHealth)

	app.Post("/translate/text", s.handleTranslate)

	app.Post("/tts/play", s.handleTTSPlay)
	app.Get("/tts/voices", s.handleVoices)

	if s.status != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/status", websocket.New(s.handleStatusWS))
	}

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError renders every unhandled error as {status, message}, except
// oversized OCR uploads, which keep the OCR {success, error} shape.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code == fiber.StatusRequestEntityTooLarge && c.Path() == "/ocr" {
		return ocrFail(c, code, errTooLarge.Message)
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err,
		)
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  statusName(code),
		"message": message,
	})
}

// statusName turns 400 into "BAD_REQUEST".
func statusName(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// fail writes a {status, message} error body.
func fail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"status":  statusName(code),
		"message": message,
	})
}

func ok(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"status": "OK", "message": message})
}
