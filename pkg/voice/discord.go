package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultLostAfter is how long a Discord voice connection may stay not-ready
// before it is reported lost. discordgo reconnects on its own within this
// window.
const DefaultLostAfter = 15 * time.Second

const readyPollInterval = time.Second

// Discord implements Gateway on a discordgo bot session.
type Discord struct {
	session   *discordgo.Session
	logger    *slog.Logger
	lostAfter time.Duration

	mu    sync.Mutex
	conns map[string]*discordConn // by guild
}

// NewDiscord creates a bot session with the intents needed for voice.
// Call Open before use.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	if token == "" {
		return nil, errors.New("voice: discord token required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("voice: discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	d := &Discord{
		session:   s,
		logger:    logger.With("component", "voice.discord"),
		lostAfter: DefaultLostAfter,
		conns:     make(map[string]*discordConn),
	}

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("discord client initialized", "user", r.User.String())
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		d.logger.Warn("discord gateway disconnected")
	})
	s.AddHandler(d.onVoiceStateUpdate)

	return d, nil
}

// Open connects to the Discord gateway.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("voice: discord open: %w", err)
	}
	return nil
}

// Channel fetches a channel and reports whether the bot can join it.
func (d *Discord) Channel(ctx context.Context, id string) (*Channel, error) {
	ch, err := d.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := &Channel{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
		Voice:   ch.Type == discordgo.ChannelTypeGuildVoice || ch.Type == discordgo.ChannelTypeGuildStageVoice,
	}
	out.Joinable = out.Voice && d.canConnect(ch.ID)
	return out, nil
}

// canConnect checks the connect permission from cached state. When the
// state cache cannot answer, the join itself is the authority.
func (d *Discord) canConnect(channelID string) bool {
	if d.session.State == nil || d.session.State.User == nil {
		return true
	}
	perms, err := d.session.State.UserChannelPermissions(d.session.State.User.ID, channelID)
	if err != nil {
		d.logger.Debug("permission lookup failed", "channel", channelID, "error", err)
		return true
	}
	return perms&discordgo.PermissionVoiceConnect != 0
}

// Join opens a voice connection, self-deafened.
func (d *Discord) Join(ctx context.Context, guildID, channelID string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}

	c := newDiscordConn(vc, guildID, d.lostAfter)
	d.track(c)

	go c.watch(d.logger)
	return c, nil
}

func (d *Discord) track(c *discordConn) {
	c.release = d.forget
	d.mu.Lock()
	d.conns[c.guild] = c
	d.mu.Unlock()
}

// forget drops c unless the guild already has a newer connection.
func (d *Discord) forget(c *discordConn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conns[c.guild] == c {
		delete(d.conns, c.guild)
	}
}

// onVoiceStateUpdate reports the connection lost when the bot is removed
// from its channel.
func (d *Discord) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}

	d.mu.Lock()
	c := d.conns[v.GuildID]
	d.mu.Unlock()
	if c != nil {
		c.fail(fmt.Errorf("%w: removed from voice channel", ErrConnectionLost))
	}
}

// Close disconnects every voice connection and the gateway.
func (d *Discord) Close() error {
	d.mu.Lock()
	conns := d.conns
	d.conns = make(map[string]*discordConn)
	d.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
	return d.session.Close()
}

// discordConn adapts a discordgo voice connection to Conn.
type discordConn struct {
	vc        *discordgo.VoiceConnection
	guild     string
	lost      chan error
	lostAfter time.Duration
	poll      time.Duration

	leave   func() error // vc.Disconnect
	release func(*discordConn)

	once      sync.Once
	stop      chan struct{}
	closeOnce sync.Once
}

func newDiscordConn(vc *discordgo.VoiceConnection, guildID string, lostAfter time.Duration) *discordConn {
	return &discordConn{
		vc:        vc,
		guild:     guildID,
		lost:      make(chan error, 1),
		lostAfter: lostAfter,
		poll:      readyPollInterval,
		leave:     vc.Disconnect,
		stop:      make(chan struct{}),
	}
}

func (c *discordConn) Frames() chan<- []byte {
	return c.vc.OpusSend
}

func (c *discordConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c *discordConn) Lost() <-chan error {
	return c.lost
}

// Disconnect leaves the channel once. Later calls return nil.
func (c *discordConn) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.release != nil {
			c.release(c)
		}
		err = c.leave()
	})
	return err
}

// fail reports err once. A disconnected conn reports nothing.
func (c *discordConn) fail(err error) {
	select {
	case <-c.stop:
		return
	default:
	}
	c.once.Do(func() { c.lost <- err })
}

func (c *discordConn) ready() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

// watch polls readiness; discordgo does not surface voice errors directly.
func (c *discordConn) watch(logger *slog.Logger) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	var since time.Time
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		if c.ready() {
			since = time.Time{}
			continue
		}
		if since.IsZero() {
			since = time.Now()
			logger.Warn("voice connection not ready")
			continue
		}
		if time.Since(since) >= c.lostAfter {
			c.fail(fmt.Errorf("%w: not ready for %s", ErrConnectionLost, c.lostAfter))
			return
		}
	}
}

// Verify Discord implements Gateway at compile time.
var _ Gateway = (*Discord)(nil)
