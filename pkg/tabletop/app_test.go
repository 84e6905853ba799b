package tabletop

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tabletop/internal/config"
	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tts"
	"github.com/teslashibe/go-tabletop/pkg/voice"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubConn struct {
	frames chan []byte
	lost   chan error
}

func (c *stubConn) Frames() chan<- []byte { return c.frames }
func (c *stubConn) Speaking(bool) error   { return nil }
func (c *stubConn) Lost() <-chan error    { return c.lost }
func (c *stubConn) Disconnect() error     { return nil }

type stubGateway struct {
	mu     sync.Mutex
	joins  int
	closed bool
}

func (g *stubGateway) Channel(ctx context.Context, id string) (*voice.Channel, error) {
	return &voice.Channel{ID: id, GuildID: "guild", Name: "tabletop", Voice: true, Joinable: true}, nil
}

func (g *stubGateway) Join(ctx context.Context, guildID, channelID string) (voice.Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.joins++
	return &stubConn{frames: make(chan []byte, 64), lost: make(chan error, 1)}, nil
}

func (g *stubGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

type nopEncoder struct{}

func (nopEncoder) Encode(ctx context.Context, r io.Reader, emit func([]byte) error) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OpenAIKey = "sk-test"
	cfg.ElevenLabsKey = "el-test"
	cfg.DiscordToken = "discord-test"
	return cfg
}

func newTestApp(t *testing.T) (*App, *stubGateway) {
	t.Helper()
	gw := &stubGateway{}
	app, err := NewWithDeps(testConfig(), discard, Deps{
		Gateway: gw,
		Encoder: nopEncoder{},
		OCR:     inference.NewMock(),
		TTS:     tts.NewMock(),
	})
	require.NoError(t, err)
	return app, gw
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DiscordToken = ""

	_, err := New(cfg, discard)
	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{config.EnvDiscordToken}, cerr.Missing)
}

func TestNewBuildsProductionClients(t *testing.T) {
	app, err := New(testConfig(), discard)
	require.NoError(t, err)

	assert.NotNil(t, app.discord)
	assert.NotNil(t, app.ffmpeg)
	assert.IsType(t, &inference.Client{}, app.ocr)
	assert.IsType(t, &tts.ElevenLabs{}, app.tts)
	assert.Equal(t, voice.StateDisconnected, app.Session().Status())
}

func TestNewLoadsInstructionsFile(t *testing.T) {
	cfg := testConfig()
	cfg.TranslateInstructionsFile = "/does/not/exist.txt"

	_, err := New(cfg, discard)
	assert.Error(t, err)
}

func TestAppServesVoiceRoutes(t *testing.T) {
	app, gw := newTestApp(t)

	resp, err := app.Server().App().Test(httptest.NewRequest(http.MethodPost, "/discord/connect", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Server().App().Test(httptest.NewRequest(http.MethodGet, "/discord/status", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, 1, gw.joins)
}

func TestShutdownClosesSession(t *testing.T) {
	app, gw := newTestApp(t)
	require.NoError(t, app.Session().Connect(context.Background()))

	require.NoError(t, app.Shutdown(context.Background()))

	assert.Equal(t, voice.StateDestroyed, app.Session().Status())
	assert.True(t, gw.closed)
	assert.ErrorIs(t, app.Session().Connect(context.Background()), voice.ErrSessionClosed)
}
