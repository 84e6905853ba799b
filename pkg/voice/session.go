package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Session owns the connection to one voice channel and the player that
// streams into it.
type Session struct {
	gw     Gateway
	player *Player
	cfg    *Config
	logger *slog.Logger

	// connectMu serializes every connection transition.
	connectMu sync.Mutex

	mu        sync.RWMutex
	state     State
	conn      Conn
	stopWatch chan struct{}
	closed    bool
	observers []func(State)
}

// NewSession creates a disconnected session for the configured channel.
func NewSession(gw Gateway, enc Encoder, opts ...Option) (*Session, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		gw:     gw,
		player: NewPlayer(enc, opts...),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "voice.session", "channel", cfg.ChannelID),
		state:  StateDisconnected,
	}, nil
}

// Player returns the shared player.
func (s *Session) Player() *Player {
	return s.player
}

// OnStateChange registers fn to run after every state transition.
// fn runs synchronously and must not call back into the Session.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Status returns the current connection state. It never fails.
func (s *Session) Status() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect resolves the channel and joins it. It is a no-op while a live
// connection exists, so concurrent callers never open two connections.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	s.mu.RLock()
	closed, live := s.closed, s.state == StateReady && s.conn != nil
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}
	if live {
		return nil
	}

	s.logger.Info("connecting to voice channel")
	s.setState(StateConnecting)

	ch, err := s.gw.Channel(ctx, s.cfg.ChannelID)
	if err != nil {
		s.setState(StateDisconnected)
		s.logger.Error("channel lookup failed", "error", err)
		return fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}
	if !ch.Voice || !ch.Joinable {
		s.setState(StateDisconnected)
		s.logger.Error("channel is not voice-based or not joinable",
			"voice", ch.Voice, "joinable", ch.Joinable)
		return fmt.Errorf("%w: %s is not a joinable voice channel", ErrChannelUnavailable, ch.ID)
	}

	conn, err := s.gw.Join(ctx, ch.GuildID, ch.ID)
	if err != nil {
		s.setState(StateDisconnected)
		s.logger.Error("join failed", "error", err)
		return fmt.Errorf("voice: join %s: %w", ch.ID, err)
	}

	stop := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.stopWatch = stop
	s.mu.Unlock()

	s.player.Subscribe(conn)
	s.setState(StateReady)
	s.logger.Info("connected to voice channel", "guild", ch.GuildID, "name", ch.Name)

	go s.watch(conn, stop)
	return nil
}

// watch tears the connection down when the transport reports a failure.
func (s *Session) watch(conn Conn, stop <-chan struct{}) {
	select {
	case err, ok := <-conn.Lost():
		if !ok {
			err = ErrConnectionLost
		}
		s.handleLost(conn, err)
	case <-stop:
	}
}

func (s *Session) handleLost(conn Conn, err error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.stopWatch = nil
	s.mu.Unlock()

	s.logger.Error("voice connection error", "error", err)
	s.player.Unsubscribe(conn)
	if derr := conn.Disconnect(); derr != nil {
		s.logger.Debug("disconnect after loss", "error", derr)
	}
	s.setState(StateDisconnected)
}

// Disconnect tears down the connection. Without a connection it does nothing.
func (s *Session) Disconnect() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.disconnectLocked()
}

func (s *Session) disconnectLocked() error {
	s.mu.Lock()
	conn, stop := s.conn, s.stopWatch
	s.conn, s.stopWatch = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	close(stop)
	s.player.Unsubscribe(conn)
	err := conn.Disconnect()
	s.setState(StateDisconnected)
	s.logger.Info("disconnected from voice channel")
	if err != nil {
		return fmt.Errorf("voice: disconnect: %w", err)
	}
	return nil
}

// Play streams r into the channel, connecting first if needed. After an
// on-demand connect it always waits the full grace interval before handing
// r to the player, preempting any current playback.
func (s *Session) Play(ctx context.Context, r io.Reader) (string, error) {
	s.mu.RLock()
	closed, live := s.closed, s.state == StateReady && s.conn != nil
	s.mu.RUnlock()
	if closed {
		return "", ErrSessionClosed
	}

	if !live {
		if err := s.Connect(ctx); err != nil {
			return "", err
		}
		time.Sleep(s.cfg.Grace)
	}

	return s.player.Play(r)
}

// Pause pauses playback. It reports false if there was nothing to pause.
func (s *Session) Pause() bool {
	return s.player.Pause()
}

// Resume continues paused playback. It reports false if nothing was paused.
func (s *Session) Resume() bool {
	return s.player.Resume()
}

// Stop ends playback without touching the connection.
func (s *Session) Stop() bool {
	return s.player.Stop()
}

// PlayerStatus reports the playback slot state.
func (s *Session) PlayerStatus() PlayerStatus {
	return s.player.Status()
}

// Close stops playback, drops the connection and releases the gateway.
// The session is unusable afterwards.
func (s *Session) Close() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.player.Close()
	derr := s.disconnectLocked()
	gerr := s.gw.Close()
	s.setState(StateDestroyed)

	if derr != nil {
		return derr
	}
	return gerr
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	observers := make([]func(State), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.logger.Debug("state changed", "state", st)
	for _, fn := range observers {
		fn(st)
	}
}
