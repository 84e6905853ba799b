package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tts"
	"github.com/teslashibe/go-tabletop/pkg/voice"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeVoice records what the handlers ask of the voice session.
type fakeVoice struct {
	mu sync.Mutex

	connectErr error
	playErr    error
	state      voice.State
	player     voice.PlayerStatus

	connects    int
	disconnects int
	pauses      int
	resumes     int
	stops       int
	played      [][]byte
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{state: voice.StateDisconnected, player: voice.PlayerIdle}
}

func (f *fakeVoice) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = voice.StateReady
	return nil
}

func (f *fakeVoice) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.state = voice.StateDisconnected
	return nil
}

func (f *fakeVoice) Play(ctx context.Context, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return "", f.playErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
	f.played = append(f.played, data)
	f.player = voice.PlayerPlaying
	return "playback-1", nil
}

func (f *fakeVoice) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return false
}

func (f *fakeVoice) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return false
}

func (f *fakeVoice) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return false
}

func (f *fakeVoice) Status() voice.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeVoice) PlayerStatus() voice.PlayerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.player
}

func (f *fakeVoice) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

var _ VoiceSession = (*fakeVoice)(nil)
var _ VoiceSession = (*voice.Session)(nil)

type testEnv struct {
	server *Server
	voice  *fakeVoice
	ocr    *inference.Mock
	tts    *tts.Mock
	logs   *logBuffer
}

// logBuffer collects JSON log lines from the server.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		voice: newFakeVoice(),
		ocr:   inference.NewMock(),
		tts:   tts.NewMock(),
		logs:  &logBuffer{},
	}
	s, err := NewServer(Config{
		Voice:   env.voice,
		OCR:     env.ocr,
		TTS:     env.tts,
		Metrics: voice.NewMetricsCollector(),
		Logger:  slog.New(slog.NewJSONHandler(env.logs, nil)),
	})
	require.NoError(t, err)
	env.server = s
	return env
}

// do runs req through the app and decodes the JSON body into a map.
func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &body), "body: %s", data)
	}
	return resp.StatusCode, body
}

type upload struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, target string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, target string, v any) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// fakeJPEG returns n bytes starting with a JPEG signature.
func fakeJPEG(n int) []byte {
	data := make([]byte, n)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
