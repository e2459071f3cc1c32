// Package clock implements the talking-clock core: boundary-crossing
// chime scheduling, the engine façade that drives the audio mixer and
// speech pipeline, and user preference handling. The visual layer is an
// external collaborator; it feeds configuration in and renders the
// notification stream coming out.
package clock

import (
	"errors"
	"time"

	"github.com/accessiclock/accessiclock/clock/pack"
)

// ErrNotificationUnsupported is surfaced by external layers that cannot
// render platform notifications; the core only defines it so the taxonomy
// stays in one place.
var ErrNotificationUnsupported = errors.New("platform notifications unsupported")

// Event is a chime trigger produced by the scheduler and consumed
// immediately by the engine; it is never persisted.
type Event struct {
	Role pack.Role
	Time time.Time
}

// SpeakEvent requests a spoken time announcement. Announcements are
// evaluated independently of chimes so a speech failure never suppresses
// a chime, and vice versa.
type SpeakEvent struct {
	Time time.Time
}

// NotificationKind classifies engine notifications.
type NotificationKind int

const (
	// NoteChime reports a chime was played.
	NoteChime NotificationKind = iota
	// NoteAnnouncement reports a spoken announcement was played.
	NoteAnnouncement
	// NoteError reports a recovered, non-fatal error.
	NoteError
)

func (k NotificationKind) String() string {
	switch k {
	case NoteChime:
		return "chime"
	case NoteAnnouncement:
		return "announcement"
	case NoteError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is the abstract event the core emits for the external
// layer to render. Rendering (OS notifications, dialogs) is entirely the
// external layer's responsibility.
type Notification struct {
	Kind NotificationKind
	Role pack.Role
	Text string
	Time time.Time
	Err  error
}
