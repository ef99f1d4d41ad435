package session

import (
	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
	"github.com/osa030/tubeplay/internal/app/playback"
	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/audio"
)

// Status represents a snapshot of the player.
type Status struct {
	Queue        []track.Track
	CurrentIndex int
	Current      *track.Track
	Paused       bool
	Volume       float64
	Progress     audio.Progress
	FetchState   playback.FetchState
	Lyrics       string
}

// Proto converts the status to its RPC representation.
func (s *Status) Proto() *playerv1.Status {
	out := &playerv1.Status{
		Queue:        TracksToProto(s.Queue),
		CurrentIndex: int32(s.CurrentIndex),
		Paused:       s.Paused,
		Volume:       s.Volume,
		PositionMs:   s.Progress.Position.Milliseconds(),
		LengthMs:     s.Progress.Length.Milliseconds(),
		FetchState:   s.FetchState.String(),
		Lyrics:       s.Lyrics,
	}
	if s.Current != nil {
		out.Current = TrackToProto(*s.Current)
	}
	return out
}

// TrackToProto converts a track to its RPC representation.
func TrackToProto(t track.Track) *playerv1.Track {
	return &playerv1.Track{
		Id:        t.ID,
		Title:     t.Title,
		Artist:    t.Artist,
		Thumbnail: t.Thumbnail,
		Duration:  t.Duration,
	}
}

// TracksToProto converts tracks to their RPC representation.
func TracksToProto(tracks []track.Track) []*playerv1.Track {
	out := make([]*playerv1.Track, len(tracks))
	for i, t := range tracks {
		out[i] = TrackToProto(t)
	}
	return out
}

// TrackFromProto converts an RPC track. A nil track yields the zero Track,
// which fails validation.
func TrackFromProto(t *playerv1.Track) track.Track {
	if t == nil {
		return track.Track{}
	}
	return track.Track{
		ID:        t.Id,
		Title:     t.Title,
		Artist:    t.Artist,
		Thumbnail: t.Thumbnail,
		Duration:  t.Duration,
	}
}
