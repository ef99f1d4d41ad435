// Package track provides the Track domain entity.
package track

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ErrEmptyID is returned when a track has no identifier.
var ErrEmptyID = errors.New("track id is required")

const (
	unknownTitle  = "Unknown Title"
	unknownArtist = "Unknown Artist"
)

// Track represents a playable item returned by the backend.
// Tracks are values; two tracks are the same track when their IDs match.
type Track struct {
	ID        string // Backend content ID (video ID)
	Title     string // Track title
	Artist    string // Primary artist name
	Thumbnail string // Thumbnail URL
	Duration  string // Duration label as reported by search (e.g. "3:45")
}

// Validate checks that the track can be queued.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

// Equal reports whether both tracks refer to the same content.
func (t Track) Equal(other Track) bool {
	return t.ID == other.ID
}

// TitleOrDefault returns the title, or a placeholder if it is empty.
func (t Track) TitleOrDefault() string {
	if t.Title == "" {
		return unknownTitle
	}
	return t.Title
}

// ArtistOrDefault returns the artist, or a placeholder if it is empty.
func (t Track) ArtistOrDefault() string {
	if t.Artist == "" {
		return unknownArtist
	}
	return t.Artist
}

// DisplayName returns "Title - Artist".
func (t Track) DisplayName() string {
	return t.TitleOrDefault() + " - " + t.ArtistOrDefault()
}

// Length parses the duration label ("M:SS" or "H:MM:SS").
// ok is false when the label is empty or malformed.
func (t Track) Length() (d time.Duration, ok bool) {
	parts := strings.Split(strings.TrimSpace(t.Duration), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && n >= 60) {
			return 0, false
		}
		d = d*60 + time.Duration(n)
	}
	return d * time.Second, true
}

// FileName returns the download file name "Title - Artist.ext".
// Only letters, digits, spaces, '-' and '_' are kept.
func (t Track) FileName(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	return sanitize(t.TitleOrDefault()) + " - " + sanitize(t.ArtistOrDefault()) + "." + ext
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// IDs returns the IDs of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
