// Package audio provides the outputs that play resolved stream URLs.
package audio

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNotPlaying        = errors.New("nothing is playing")
	ErrInvalidVolume     = errors.New("volume must be between 0 and 1")
	ErrInvalidPosition   = errors.New("seek position must be between 0 and 1")
	ErrClosed            = errors.New("output is closed")
)

// EventType represents an output event type.
type EventType int

const (
	EventStarted EventType = iota // A stream began playing
	EventPaused                   // Playback was paused
	EventResumed                  // Playback was resumed
	EventEnded                    // The stream played to its end
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is emitted by an output when its playback state changes.
type Event struct {
	Type EventType
	URL  string
}

// Progress is the position within the current stream.
type Progress struct {
	Position time.Duration
	Length   time.Duration
}

// Fraction returns the position as a value in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Length <= 0 {
		return 0
	}
	f := float64(p.Position) / float64(p.Length)
	if f > 1 {
		return 1
	}
	return f
}

// Output plays one stream at a time. Play replaces whatever is playing;
// a replaced stream does not emit EventEnded.
type Output interface {
	Play(ctx context.Context, url string) error
	Pause() error
	Resume() error
	Paused() bool
	SetVolume(v float64) error
	Volume() float64
	Seek(fraction float64) error
	Progress() Progress
	Events() <-chan Event
	Close() error
}

// ValidateVolume checks that v is a volume in [0, 1].
func ValidateVolume(v float64) error {
	if v < 0 || v > 1 {
		return errors.Wrapf(ErrInvalidVolume, "got %.2f", v)
	}
	return nil
}

// ValidatePosition checks that f is a seek fraction in [0, 1].
func ValidatePosition(f float64) error {
	if f < 0 || f > 1 {
		return errors.Wrapf(ErrInvalidPosition, "got %.2f", f)
	}
	return nil
}
