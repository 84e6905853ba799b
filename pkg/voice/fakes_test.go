package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeConn records speaking updates and hands frames to a reader goroutine.
type fakeConn struct {
	frames chan []byte
	lost   chan error
	onDrop func()

	mu           sync.Mutex
	speaking     []bool
	disconnected int
}

func newFakeConn(onDrop func()) *fakeConn {
	return &fakeConn{
		frames: make(chan []byte),
		lost:   make(chan error, 1),
		onDrop: onDrop,
	}
}

func (c *fakeConn) Frames() chan<- []byte { return c.frames }
func (c *fakeConn) Lost() <-chan error    { return c.lost }

func (c *fakeConn) Speaking(s bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = append(c.speaking, s)
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	c.disconnected++
	first := c.disconnected == 1
	c.mu.Unlock()
	if first && c.onDrop != nil {
		c.onDrop()
	}
	return nil
}

func (c *fakeConn) speakingLog() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.speaking...)
}

func (c *fakeConn) disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// fakeGateway counts joins and tracks how many connections are live.
type fakeGateway struct {
	mu         sync.Mutex
	channel    Channel
	channelErr error
	joinErr    error
	joinDelay  time.Duration
	joins      int
	live       int
	maxLive    int
	conns      []*fakeConn
	closed     bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channel: Channel{ID: "chan-1", GuildID: "guild-1", Name: "tabletop", Voice: true, Joinable: true},
	}
}

func (g *fakeGateway) Channel(ctx context.Context, id string) (*Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.channelErr != nil {
		return nil, g.channelErr
	}
	ch := g.channel
	return &ch, nil
}

func (g *fakeGateway) Join(ctx context.Context, guildID, channelID string) (Conn, error) {
	g.mu.Lock()
	delay, joinErr := g.joinDelay, g.joinErr
	g.joins++
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if joinErr != nil {
		return nil, joinErr
	}

	conn := newFakeConn(func() {
		g.mu.Lock()
		g.live--
		g.mu.Unlock()
	})

	g.mu.Lock()
	g.live++
	if g.live > g.maxLive {
		g.maxLive = g.live
	}
	g.conns = append(g.conns, conn)
	g.mu.Unlock()
	return conn, nil
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGateway) stats() (joins, live, maxLive int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joins, g.live, g.maxLive
}

func (g *fakeGateway) lastConn() *fakeConn {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.conns) == 0 {
		return nil
	}
	return g.conns[len(g.conns)-1]
}

// byteEncoder emits each input byte as one frame.
type byteEncoder struct {
	delay time.Duration
}

func (e byteEncoder) Encode(ctx context.Context, r io.Reader, emit func([]byte) error) error {
	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if eerr := emit([]byte{buf[0]}); eerr != nil {
				return eerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if e.delay > 0 {
			time.Sleep(e.delay)
		}
	}
}

// repeatReader yields the same byte forever.
type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

// recorder drains a fake connection's frames.
type recorder struct {
	mu   sync.Mutex
	data []byte
}

func record(t *testing.T, conn *fakeConn) *recorder {
	t.Helper()
	rec := &recorder{}
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		for {
			select {
			case f := <-conn.frames:
				rec.mu.Lock()
				rec.data = append(rec.data, f...)
				rec.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
	return rec
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.data)
}

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSession(t *testing.T, gw Gateway, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithChannel("chan-1"),
		WithGrace(10 * time.Millisecond),
		WithFrameDuration(time.Millisecond),
		WithLogger(discard),
	}
	s, err := NewSession(gw, byteEncoder{delay: time.Millisecond}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
