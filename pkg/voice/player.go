package voice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Player streams one audio resource at a time into the subscribed
// connection. Play preempts whatever is playing.
//
// With no subscriber the player keeps consuming the stream at frame pace
// and drops the frames, up to MaxMissedFrames in a row.
type Player struct {
	enc     Encoder
	cfg     *Config
	logger  *slog.Logger
	metrics *MetricsCollector

	slot sync.Mutex // serializes Play, Stop and Close

	mu      sync.Mutex
	current *playback
	conn    Conn
	closed  bool

	// OnPlaybackStart and OnPlaybackEnd run on the playback goroutine.
	// They must not call back into the Player.
	OnPlaybackStart func(id string)
	OnPlaybackEnd   func(id string, err error)
}

type playback struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	paused bool
	wake   chan struct{}
}

// NewPlayer creates a player that encodes with enc.
func NewPlayer(enc Encoder, opts ...Option) *Player {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Player{
		enc:     enc,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "voice.player"),
		metrics: NewMetricsCollector(),
	}
}

// Metrics returns the player's metrics collector.
func (p *Player) Metrics() *MetricsCollector {
	return p.metrics
}

// Subscribe routes frames to conn.
func (p *Player) Subscribe(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
}

// Unsubscribe detaches conn if it is the current subscriber.
func (p *Player) Unsubscribe(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		p.conn = nil
	}
}

func (p *Player) subscriber() Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

func (p *Player) active() *playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Play stops the current playback, waits for it to finish, and starts
// streaming r. It returns the new playback ID without waiting for audio.
// If r is an io.Closer it is closed when the playback ends.
func (p *Player) Play(r io.Reader) (string, error) {
	p.slot.Lock()
	defer p.slot.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrPlayerClosed
	}
	prev := p.current
	p.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}),
	}

	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()

	p.metrics.Begin(pb.id)
	go p.run(ctx, pb, r)
	return pb.id, nil
}

// Pause suspends the current playback. It reports false if nothing is
// playing or it is already paused.
func (p *Player) Pause() bool {
	pb := p.active()
	if pb == nil {
		return false
	}
	return pb.setPaused(true)
}

// Resume continues a paused playback. It reports false if nothing was
// paused.
func (p *Player) Resume() bool {
	pb := p.active()
	if pb == nil {
		return false
	}
	return pb.setPaused(false)
}

// Stop cancels the current playback and waits for it to end.
// It reports false if nothing was playing.
func (p *Player) Stop() bool {
	p.slot.Lock()
	defer p.slot.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() bool {
	pb := p.active()
	if pb == nil {
		return false
	}
	pb.cancel()
	<-pb.done
	return true
}

// Status reports the playback slot state.
func (p *Player) Status() PlayerStatus {
	pb := p.active()
	switch {
	case pb == nil:
		return PlayerIdle
	case pb.isPaused():
		return PlayerPaused
	default:
		return PlayerPlaying
	}
}

// Close stops playback and rejects further Play calls.
func (p *Player) Close() error {
	p.slot.Lock()
	defer p.slot.Unlock()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.stopLocked()

	p.mu.Lock()
	p.conn = nil
	p.mu.Unlock()
	return nil
}

// sendState is owned by one playback goroutine.
type sendState struct {
	speaking Conn
	missed   int
}

func (s *sendState) quiet() {
	if s.speaking != nil {
		s.speaking.Speaking(false)
		s.speaking = nil
	}
}

func (p *Player) run(ctx context.Context, pb *playback, r io.Reader) {
	defer close(pb.done)
	defer pb.cancel()

	log := p.logger.With("playback", pb.id)
	log.Info("playback started")
	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart(pb.id)
	}

	st := &sendState{}
	err := p.enc.Encode(ctx, r, func(frame []byte) error {
		return p.send(ctx, pb, st, frame)
	})
	st.quiet()
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}

	preempted := ctx.Err() != nil
	if preempted {
		err = nil
	}

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	p.mu.Unlock()

	p.metrics.End(err, preempted)
	switch {
	case err != nil:
		log.Error("playback failed", "error", err)
	case preempted:
		log.Info("playback stopped")
	default:
		log.Info("playback finished")
	}

	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd(pb.id, err)
	}
}

func (p *Player) send(ctx context.Context, pb *playback, st *sendState, frame []byte) error {
	if pb.isPaused() {
		st.quiet()
		if err := pb.waitWhilePaused(ctx); err != nil {
			return err
		}
	}

	conn := p.subscriber()
	if conn == nil {
		st.quiet()
		return p.drop(ctx, st)
	}

	if st.speaking != conn {
		st.quiet()
		if err := conn.Speaking(true); err != nil {
			p.logger.Warn("speaking update failed", "error", err)
		}
		st.speaking = conn
	}

	timer := time.NewTimer(p.cfg.SendTimeout)
	defer timer.Stop()

	select {
	case conn.Frames() <- frame:
		st.missed = 0
		p.metrics.MarkFrameSent()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return p.countMissed(st)
	}
}

// drop paces an undeliverable frame.
func (p *Player) drop(ctx context.Context, st *sendState) error {
	if err := p.countMissed(st); err != nil {
		return err
	}
	t := time.NewTimer(p.cfg.FrameDuration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Player) countMissed(st *sendState) error {
	st.missed++
	p.metrics.MarkFrameDropped()
	if p.cfg.MaxMissedFrames > 0 && st.missed >= p.cfg.MaxMissedFrames {
		return ErrNoSubscriber
	}
	return nil
}

func (pb *playback) isPaused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

func (pb *playback) setPaused(v bool) bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.paused == v {
		return false
	}
	pb.paused = v
	if !v {
		close(pb.wake)
		pb.wake = make(chan struct{})
	}
	return true
}

func (pb *playback) waitWhilePaused(ctx context.Context) error {
	for {
		pb.mu.Lock()
		if !pb.paused {
			pb.mu.Unlock()
			return nil
		}
		wake := pb.wake
		pb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}
