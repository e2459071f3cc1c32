// Package audio provides asset decoding and the playback mixer for the
// clock engine. Playback runs through a Context interface so the mixer can
// be driven by real hardware (oto) in production and by a mock in tests.
package audio

import "io"

// Context creates players that share one audio device. All players created
// from a context consume PCM16LE at the mix format.
type Context interface {
	// NewPlayer creates a player over the given sample stream. The player
	// is paused until Play is called.
	NewPlayer(r io.Reader) Player
}

// Player is a single in-flight sound.
type Player interface {
	// Play starts or resumes playback.
	Play()

	// IsPlaying reports whether samples are still being consumed.
	IsPlaying() bool

	// SetVolume sets the playback volume in [0, 1].
	SetVolume(volume float64)

	// Close stops playback and releases the player.
	Close() error
}
