// Package speech produces spoken time announcements through a two-tier
// synthesis pipeline: a remote high-quality provider with a local,
// always-available fallback, fronted by a content-addressed cache.
package speech

import (
	"context"
	"errors"
)

// Synthesis errors. Provider errors are logged and recovered inside the
// pipeline; ErrUnavailable is the only one callers see, and it means
// "skip this announcement", never "crash".
var (
	ErrRemoteUnavailable = errors.New("remote speech provider unavailable")
	ErrLocalUnavailable  = errors.New("local speech synthesizer unavailable")
	ErrUnavailable       = errors.New("speech synthesis unavailable")

	// Typed remote failures, wrapped so callers can classify without
	// depending on transport details.
	ErrAuthentication = errors.New("speech provider authentication failed")
	ErrRateLimited    = errors.New("speech provider rate limited")
	ErrEmptyText      = errors.New("empty announcement text")
)

// Provider converts text to playable audio bytes (WAV). Implementations
// must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in logs and cache entry tags.
	Name() string

	// Synthesize produces WAV audio for the text using the given voice.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
