package console

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tubeplay/internal/domain/track"
)

func displayName(t track.Track) string {
	return t.DisplayName()
}

// renderQueue renders "<n>. Title - Artist" lines, marking the current entry.
func renderQueue(queue []track.Track, current int) []string {
	lines := make([]string, len(queue))
	for i, t := range queue {
		marker := "  "
		if i == current {
			marker = "> "
		}
		lines[i] = fmt.Sprintf("%s%d. %s", marker, i+1, displayName(t))
	}
	return lines
}

// formatDuration renders d as M:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// parseClock parses M:SS.
func parseClock(s string) (time.Duration, error) {
	minStr, secStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, errors.Newf("invalid time %q", s)
	}
	m, err := strconv.Atoi(minStr)
	if err != nil || m < 0 {
		return 0, errors.Newf("invalid minutes in %q", s)
	}
	sec, err := strconv.Atoi(secStr)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, errors.Newf("invalid seconds in %q", s)
	}
	return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// seekFraction converts a seek argument, either a percentage or M:SS
// within a track of the given length, to a fraction in [0, 1].
func seekFraction(arg string, length time.Duration) (float64, error) {
	if strings.Contains(arg, ":") {
		if length <= 0 {
			return 0, errors.New("track length is unknown")
		}
		pos, err := parseClock(arg)
		if err != nil {
			return 0, err
		}
		return math.Min(float64(pos)/float64(length), 1), nil
	}

	p, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
	if err != nil || p < 0 || p > 100 {
		return 0, errors.Newf("invalid percentage %q", arg)
	}
	return p / 100, nil
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}
