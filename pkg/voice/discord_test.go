package voice

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

// newWatchedConn returns a ready conn whose watchdog polls every few
// milliseconds. Disconnect does not touch the network.
func newWatchedConn(t *testing.T, lostAfter time.Duration) (*discordConn, *int) {
	t.Helper()

	c := newDiscordConn(&discordgo.VoiceConnection{Ready: true}, "guild-1", lostAfter)
	c.poll = 5 * time.Millisecond

	leaves := 0
	c.leave = func() error {
		leaves++
		return nil
	}
	t.Cleanup(func() { c.Disconnect() })
	return c, &leaves
}

func setReady(c *discordConn, ready bool) {
	c.vc.Lock()
	c.vc.Ready = ready
	c.vc.Unlock()
}

func expectLost(t *testing.T, c *discordConn, within time.Duration) error {
	t.Helper()
	select {
	case err := <-c.Lost():
		if !errors.Is(err, ErrConnectionLost) {
			t.Fatalf("expected ErrConnectionLost, got %v", err)
		}
		return err
	case <-time.After(within):
		t.Fatal("connection loss not reported")
		return nil
	}
}

func expectNotLost(t *testing.T, c *discordConn, wait time.Duration) {
	t.Helper()
	select {
	case err := <-c.Lost():
		t.Fatalf("unexpected loss: %v", err)
	case <-time.After(wait):
	}
}

func newTestDiscord() *Discord {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: "bot"}
	return &Discord{
		session:   s,
		logger:    discard,
		lostAfter: DefaultLostAfter,
		conns:     make(map[string]*discordConn),
	}
}

func voiceUpdate(userID, guildID, channelID string) *discordgo.VoiceStateUpdate {
	return &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
	}}
}

func TestDiscordConnLostWhenNotReady(t *testing.T) {
	c, _ := newWatchedConn(t, 50*time.Millisecond)
	go c.watch(discard)

	expectNotLost(t, c, 60*time.Millisecond)

	setReady(c, false)
	err := expectLost(t, c, time.Second)
	if err.Error() == ErrConnectionLost.Error() {
		t.Errorf("expected a reason in %q", err)
	}
}

func TestDiscordConnReadyAgainResetsWindow(t *testing.T) {
	c, _ := newWatchedConn(t, 150*time.Millisecond)
	go c.watch(discard)

	setReady(c, false)
	time.Sleep(50 * time.Millisecond)
	setReady(c, true)

	// Longer than the window measured from the first not-ready tick.
	expectNotLost(t, c, 250*time.Millisecond)

	setReady(c, false)
	expectLost(t, c, time.Second)
}

func TestDiscordConnDisconnectStopsWatch(t *testing.T) {
	c, leaves := newWatchedConn(t, 20*time.Millisecond)
	go c.watch(discard)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	setReady(c, false)
	expectNotLost(t, c, 100*time.Millisecond)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if *leaves != 1 {
		t.Errorf("expected 1 leave, got %d", *leaves)
	}
}

func TestDiscordRemovedFromChannel(t *testing.T) {
	d := newTestDiscord()
	c, _ := newWatchedConn(t, time.Minute)
	d.track(c)

	d.onVoiceStateUpdate(d.session, voiceUpdate("bot", "guild-1", ""))

	err := expectLost(t, c, time.Second)
	if want := "removed from voice channel"; !strings.Contains(err.Error(), want) {
		t.Errorf("expected %q in %q", want, err)
	}
}

func TestDiscordIgnoresOtherVoiceUpdates(t *testing.T) {
	d := newTestDiscord()
	c, _ := newWatchedConn(t, time.Minute)
	d.track(c)

	tests := []struct {
		name   string
		update *discordgo.VoiceStateUpdate
	}{
		{"other user leaves", voiceUpdate("someone", "guild-1", "")},
		{"bot moves channel", voiceUpdate("bot", "guild-1", "chan-2")},
		{"bot leaves other guild", voiceUpdate("bot", "guild-2", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.onVoiceStateUpdate(d.session, tt.update)
			select {
			case err := <-c.Lost():
				t.Fatalf("unexpected loss: %v", err)
			default:
			}
		})
	}
}

func TestDiscordDisconnectForgetsConn(t *testing.T) {
	d := newTestDiscord()
	c, leaves := newWatchedConn(t, time.Minute)
	d.track(c)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	d.mu.Lock()
	n := len(d.conns)
	d.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no tracked conns, got %d", n)
	}

	// The leave event for our own disconnect must not fail the old conn.
	d.onVoiceStateUpdate(d.session, voiceUpdate("bot", "guild-1", ""))
	select {
	case err := <-c.Lost():
		t.Fatalf("unexpected loss after disconnect: %v", err)
	default:
	}
	if *leaves != 1 {
		t.Errorf("expected 1 leave, got %d", *leaves)
	}
}

func TestDiscordForgetKeepsNewerConn(t *testing.T) {
	d := newTestDiscord()
	old, _ := newWatchedConn(t, time.Minute)
	d.track(old)
	current, _ := newWatchedConn(t, time.Minute)
	d.track(current)

	old.Disconnect()

	d.mu.Lock()
	got := d.conns["guild-1"]
	d.mu.Unlock()
	if got != current {
		t.Error("disconnecting a replaced conn dropped the newer one")
	}
}
