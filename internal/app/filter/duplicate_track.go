package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// DuplicateTrackFilter rejects songs that are already queued.
// Detects:
// - Exact track ID matches
// - Remasters, live takes and edits (normalized title + same artist)
// Excludes:
// - Cover songs (same title but different artist)
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Skips songs already in the queue, including remasters and live versions. Covers are kept"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the candidate duplicates a queued song.
func (f *DuplicateTrackFilter) Check(_ context.Context, candidate track.Track, queue []track.Track) Result {
	for _, queued := range queue {
		if queued.ID == candidate.ID || isSameSong(queued, candidate) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\((official\s+)?(music\s+)?video\)`), // "(Official Video)"
		regexp.MustCompile(`\s*\[(official\s+)?(music\s+)?video\]`), // "[Official Music Video]"
		regexp.MustCompile(`\s*\((official\s+)?audio\)`),            // "(Official Audio)"
		regexp.MustCompile(`\s*\(.*?version\)`),                     // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),                        // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),                           // "(Live)"
		regexp.MustCompile(`\s*-?\s*\blive\b`),                      // "- Live"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),                  // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`),              // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// isSameSong reports whether two tracks are versions of the same recording.
func isSameSong(a, b track.Track) bool {
	if normalizeTitle(a.Title) != normalizeTitle(b.Title) {
		return false
	}
	// Same normalized title by a different artist is a cover.
	return a.Artist != "" && strings.EqualFold(strings.TrimSpace(a.Artist), strings.TrimSpace(b.Artist))
}

// normalizeTitle removes remaster and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")

	return strings.TrimRight(normalized, " -")
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
