package voice

import (
	"context"
	"errors"
	"io"
)

// Errors returned by sessions, players and gateways.
var (
	// ErrChannelUnavailable means the configured channel could not be
	// resolved or is not a joinable voice channel.
	ErrChannelUnavailable = errors.New("voice: channel unavailable")

	// ErrConnectionLost is delivered on Conn.Lost after a transport failure.
	ErrConnectionLost = errors.New("voice: connection lost")

	// ErrSessionClosed is returned by every operation after Close.
	ErrSessionClosed = errors.New("voice: session closed")

	// ErrPlayerClosed is returned by Play after the player is closed.
	ErrPlayerClosed = errors.New("voice: player closed")

	// ErrNoSubscriber ends a playback that missed too many frames.
	ErrNoSubscriber = errors.New("voice: no connection to play into")
)

// Channel describes a resolved channel.
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	Voice    bool // voice-capable channel type
	Joinable bool // the bot may connect
}

// Gateway resolves channels and opens voice connections.
type Gateway interface {
	// Channel looks up a channel by ID.
	Channel(ctx context.Context, id string) (*Channel, error)

	// Join opens a voice connection to a channel.
	Join(ctx context.Context, guildID, channelID string) (Conn, error)

	// Close releases the gateway.
	Close() error
}

// Conn is one live voice connection.
type Conn interface {
	// Frames accepts 20ms Opus frames.
	Frames() chan<- []byte

	// Speaking toggles the speaking indicator.
	Speaking(speaking bool) error

	// Lost receives at most one error when the transport fails after the
	// connection was established.
	Lost() <-chan error

	// Disconnect tears the connection down.
	Disconnect() error
}

// Encoder turns an arbitrary audio stream into Opus frames.
type Encoder interface {
	// Encode reads r until EOF or ctx is done and calls emit once per
	// frame, in order. An error from emit stops encoding and is returned.
	Encode(ctx context.Context, r io.Reader, emit func(frame []byte) error) error
}
