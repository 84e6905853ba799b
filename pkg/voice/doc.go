// Package voice manages a single outbound connection to one voice channel
// and a single-slot audio player that streams into it.
//
// A Session owns the connection lifecycle:
//
//	Disconnected --Connect--> Connecting --(join ok)--> Ready
//	Ready --(Disconnect | connection lost)--> Disconnected
//	any --Close--> Destroyed
//
// Play connects on demand, waits a short grace interval so the transport can
// settle, then hands the stream to the Player. The Player holds at most one
// playback; a new Play always preempts the current one. There is no queue.
//
// # Usage
//
//	gw, _ := voice.NewDiscord(token)
//	sess, _ := voice.NewSession(gw, ffmpeg.NewEncoder(),
//	    voice.WithChannel("1291440448761757838"),
//	)
//	defer sess.Close()
//
//	id, err := sess.Play(ctx, mp3Reader)
//
// The Gateway and Encoder interfaces keep the session free of any vendor
// SDK, so tests drive it with in-memory fakes.
package voice
