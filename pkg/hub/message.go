// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern.
package hub

import "time"

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded text message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data.
	BinaryMessage
)

// Message is a message to be broadcast to clients.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event types carried on the status hub.
const (
	EventVoiceState = "voice_state"
	EventPlayback   = "playback"
)

// Event is the JSON envelope sent to status subscribers.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`

	// voice_state
	State string `json:"state,omitempty"`

	// playback
	PlaybackID string `json:"playbackId,omitempty"`
	Phase      string `json:"phase,omitempty"` // started, ended
	Error      string `json:"error,omitempty"`
}

// VoiceStateEvent reports a voice connection state change.
func VoiceStateEvent(state string) Event {
	return Event{Type: EventVoiceState, Time: time.Now().UTC(), State: state}
}

// PlaybackEvent reports the start or end of a playback.
func PlaybackEvent(id, phase string, err error) Event {
	e := Event{Type: EventPlayback, Time: time.Now().UTC(), PlaybackID: id, Phase: phase}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
