package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Validate(t *testing.T) {
	tests := []struct {
		name  string
		track Track
		valid bool
	}{
		{
			name:  "valid track",
			track: Track{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Artist: "Rick Astley"},
			valid: true,
		},
		{
			name:  "only ID",
			track: Track{ID: "abc"},
			valid: true,
		},
		{
			name:  "empty ID",
			track: Track{Title: "Test Song", Artist: "Artist 1"},
			valid: false,
		},
		{
			name:  "whitespace ID",
			track: Track{ID: "   ", Title: "Test Song"},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrEmptyID)
			}
		})
	}
}

func TestTrack_Equal(t *testing.T) {
	a := Track{ID: "id-1", Title: "Song", Artist: "Artist"}
	b := Track{ID: "id-1", Title: "Song (Live)", Artist: "Someone Else"}
	c := Track{ID: "id-2", Title: "Song", Artist: "Artist"}

	assert.True(t, a.Equal(b), "same ID should be equal regardless of metadata")
	assert.False(t, a.Equal(c))
}

func TestTrack_DisplayName(t *testing.T) {
	assert.Equal(t, "Song - Artist", Track{ID: "x", Title: "Song", Artist: "Artist"}.DisplayName())
	assert.Equal(t, "Unknown Title - Unknown Artist", Track{ID: "x"}.DisplayName())
}

func TestTrack_FileName(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		ext      string
		expected string
	}{
		{
			name:     "plain",
			track:    Track{ID: "1", Title: "Song", Artist: "Artist"},
			ext:      "mp3",
			expected: "Song - Artist.mp3",
		},
		{
			name:     "strips punctuation",
			track:    Track{ID: "1", Title: "What's Up?", Artist: "4 Non Blondes"},
			ext:      "mp3",
			expected: "Whats Up - 4 Non Blondes.mp3",
		},
		{
			name:     "trailing spaces removed after stripping",
			track:    Track{ID: "1", Title: "Hello !!", Artist: "Adele"},
			ext:      ".mp3",
			expected: "Hello - Adele.mp3",
		},
		{
			name:     "keeps dash and underscore",
			track:    Track{ID: "1", Title: "a-b_c", Artist: "x/y"},
			ext:      "",
			expected: "a-b_c - xy.mp3",
		},
		{
			name:     "unicode letters kept",
			track:    Track{ID: "1", Title: "夜に駆ける", Artist: "YOASOBI"},
			ext:      "mp3",
			expected: "夜に駆ける - YOASOBI.mp3",
		},
		{
			name:     "defaults",
			track:    Track{ID: "1"},
			ext:      "mp3",
			expected: "Unknown Title - Unknown Artist.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.FileName(tt.ext))
		})
	}
}

func TestIDs(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	assert.Equal(t, []string{"a", "b", "a"}, IDs(tracks))
	assert.Empty(t, IDs(nil))
}

func TestLength(t *testing.T) {
	tests := []struct {
		label  string
		want   time.Duration
		wantOK bool
	}{
		{label: "3:45", want: 3*time.Minute + 45*time.Second, wantOK: true},
		{label: "0:07", want: 7 * time.Second, wantOK: true},
		{label: "1:02:03", want: time.Hour + 2*time.Minute + 3*time.Second, wantOK: true},
		{label: " 12:00 ", want: 12 * time.Minute, wantOK: true},
		{label: ""},
		{label: "245"},
		{label: "3:75"},
		{label: "a:10"},
		{label: "1:2:3:4"},
	}
	for _, tt := range tests {
		got, ok := Track{Duration: tt.label}.Length()
		assert.Equal(t, tt.wantOK, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}
