package voice

// State is the lifecycle state of the voice connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateReady        State = "ready"
	StateDestroyed    State = "destroyed"
)

// PlayerStatus is the state of the single playback slot.
type PlayerStatus string

const (
	PlayerIdle    PlayerStatus = "idle"
	PlayerPlaying PlayerStatus = "playing"
	PlayerPaused  PlayerStatus = "paused"
)
