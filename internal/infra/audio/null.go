package audio

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// NullSettings configures the null output.
type NullSettings struct {
	// SimulatedLengthMs is how long each stream "plays" before EventEnded.
	// Zero means streams never end on their own.
	SimulatedLengthMs int `mapstructure:"simulated_length_ms" default:"0" validate:"gte=0"`
}

// Null is an output without a sound device. It accepts any URL and keeps
// track of position on the wall clock.
type Null struct {
	length time.Duration

	mu        sync.Mutex
	url       string
	playing   bool
	paused    bool
	volume    float64
	elapsed   time.Duration // Position accumulated before the last resume
	resumedAt time.Time
	timer     *time.Timer
	timerSeq  uint64 // Invalidates timers that fired but lost the race for mu
	closed    bool

	events chan Event
}

// NewNull creates a null output.
func NewNull(settings NullSettings, volume float64) (*Null, error) {
	if err := ValidateVolume(volume); err != nil {
		return nil, err
	}
	return &Null{
		length: time.Duration(settings.SimulatedLengthMs) * time.Millisecond,
		volume: volume,
		events: make(chan Event, 16),
	}, nil
}

// Play replaces the current stream with url.
func (n *Null) Play(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	n.stopTimerLocked()
	n.url = url
	n.playing = true
	n.paused = false
	n.elapsed = 0
	n.resumedAt = time.Now()
	n.startTimerLocked()

	zlog.Debug().Msgf("null output: playing: url=%s", url)
	n.emitLocked(Event{Type: EventStarted, URL: url})
	return nil
}

// Pause pauses the current stream.
func (n *Null) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return ErrNotPlaying
	}
	if n.paused {
		return nil
	}
	n.stopTimerLocked()
	n.elapsed = n.positionLocked()
	n.paused = true
	n.emitLocked(Event{Type: EventPaused, URL: n.url})
	return nil
}

// Resume resumes the current stream.
func (n *Null) Resume() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return ErrNotPlaying
	}
	if !n.paused {
		return nil
	}
	n.paused = false
	n.resumedAt = time.Now()
	n.startTimerLocked()
	n.emitLocked(Event{Type: EventResumed, URL: n.url})
	return nil
}

// Paused reports whether the current stream is paused.
func (n *Null) Paused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.paused
}

// SetVolume sets the volume in [0, 1].
func (n *Null) SetVolume(v float64) error {
	if err := ValidateVolume(v); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.volume = v
	return nil
}

// Volume returns the current volume.
func (n *Null) Volume() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.volume
}

// Seek moves to fraction of the simulated length.
func (n *Null) Seek(fraction float64) error {
	if err := ValidatePosition(fraction); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return ErrNotPlaying
	}
	n.stopTimerLocked()
	n.elapsed = time.Duration(fraction * float64(n.length))
	n.resumedAt = time.Now()
	if !n.paused {
		n.startTimerLocked()
	}
	return nil
}

// Progress returns the simulated position.
func (n *Null) Progress() Progress {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return Progress{}
	}
	return Progress{Position: n.positionLocked(), Length: n.length}
}

// Events returns the event channel.
func (n *Null) Events() <-chan Event {
	return n.events
}

// Close stops the output and closes the event channel.
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	n.stopTimerLocked()
	close(n.events)
	return nil
}

func (n *Null) positionLocked() time.Duration {
	pos := n.elapsed
	if !n.paused {
		pos += time.Since(n.resumedAt)
	}
	if n.length > 0 && pos > n.length {
		pos = n.length
	}
	return pos
}

func (n *Null) startTimerLocked() {
	if n.length <= 0 {
		return
	}
	remaining := n.length - n.elapsed
	if remaining < 0 {
		remaining = 0
	}
	n.timerSeq++
	seq := n.timerSeq
	n.timer = time.AfterFunc(remaining, func() { n.finish(seq) })
}

func (n *Null) stopTimerLocked() {
	n.timerSeq++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Null) finish(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if seq != n.timerSeq || n.paused || n.closed {
		return
	}
	n.playing = false
	n.timer = nil
	n.emitLocked(Event{Type: EventEnded, URL: n.url})
}

func (n *Null) emitLocked(e Event) {
	if n.closed {
		return
	}
	select {
	case n.events <- e:
	default:
		zlog.Warn().Msgf("null output: event channel full, dropping event: type=%s", e.Type)
	}
}
