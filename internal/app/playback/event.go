package playback

import "github.com/osa030/tubeplay/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventQueueChanged   EventType = iota // A track was appended to the queue
	EventTrackSelected                   // CurrentIndex moved and a playback start began
	EventTrackStarted                    // The audio output accepted the stream
	EventPlaybackFailed                  // Stream resolution or output start failed
	EventLyricsLoaded                    // Lyrics (or the placeholder) for the current track
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQueueChanged:
		return "queue_changed"
	case EventTrackSelected:
		return "track_selected"
	case EventTrackStarted:
		return "track_started"
	case EventPlaybackFailed:
		return "playback_failed"
	case EventLyricsLoaded:
		return "lyrics_loaded"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	Track  *track.Track // Track concerned (nil for some events)
	Index  int          // CurrentIndex at the time of the event
	Queue  []track.Track
	Lyrics string
	Err    error
}
