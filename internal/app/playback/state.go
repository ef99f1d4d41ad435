// Package playback provides the playback queue, stream URL cache and
// single-flight playback start.
package playback

import "sync"

// FetchState represents the state of the playback-start guard.
type FetchState int

const (
	StateIdle      FetchState = iota // No playback start in flight
	StateResolving                   // Resolving the stream URL
	StateStarting                    // Handing the URL to the audio output
)

// String returns the string representation of the state.
func (s FetchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateStarting:
		return "starting"
	default:
		return "unknown"
	}
}

// fetchGuard allows at most one playback start at a time.
// A second start while one is in flight is dropped, not queued.
type fetchGuard struct {
	mu    sync.Mutex
	state FetchState
}

// lease is held by the single in-flight playback start.
type lease struct {
	g    *fetchGuard
	once sync.Once
}

// tryAcquire moves the guard from Idle to Resolving.
// It returns false if a playback start is already in flight.
func (g *fetchGuard) tryAcquire() (*lease, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateIdle {
		return nil, false
	}
	g.state = StateResolving
	return &lease{g: g}, true
}

// State returns the current guard state.
func (g *fetchGuard) State() FetchState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// starting records that the URL is resolved and the output is being started.
func (l *lease) starting() {
	l.g.mu.Lock()
	defer l.g.mu.Unlock()
	l.g.state = StateStarting
}

// release returns the guard to Idle. Safe to call more than once.
func (l *lease) release() {
	l.once.Do(func() {
		l.g.mu.Lock()
		defer l.g.mu.Unlock()
		l.g.state = StateIdle
	})
}

// guarded runs fn while holding the guard. The lease is released on every
// exit path, including panics. ran is false if the guard was busy and fn did
// not run.
func (g *fetchGuard) guarded(fn func(l *lease) error) (ran bool, err error) {
	l, ok := g.tryAcquire()
	if !ok {
		return false, nil
	}
	defer l.release()
	return true, fn(l)
}
