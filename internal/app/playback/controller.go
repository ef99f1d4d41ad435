package playback

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// NoTrack is the CurrentIndex value when nothing has been selected yet.
const NoTrack = -1

// DefaultLyricsPlaceholder is shown when lyrics cannot be loaded.
const DefaultLyricsPlaceholder = "Lyrics not available"

// Errors
var (
	ErrInvalidTrack     = errors.New("invalid track")
	ErrBusy             = errors.New("playback start already in progress")
	ErrStreamResolution = errors.New("stream resolution failed")
	ErrPlaybackStart    = errors.New("playback start failed")
	ErrTimeout          = errors.New("timed out")
)

// StreamResolver resolves a track ID to a playable URL.
type StreamResolver interface {
	ResolveStream(ctx context.Context, id string) (string, error)
}

// LyricsFetcher fetches lyrics text for a track ID.
type LyricsFetcher interface {
	GetLyrics(ctx context.Context, id string) (string, error)
}

// Audio is the output that plays a resolved stream URL.
type Audio interface {
	Play(ctx context.Context, url string) error
}

// Config holds controller configuration.
type Config struct {
	ResolveTimeout    time.Duration // Deadline for a foreground stream resolution
	PrefetchTimeout   time.Duration // Deadline for a background prefetch
	LyricsTimeout     time.Duration // Deadline for a lyrics fetch
	LyricsPlaceholder string        // Text delivered when lyrics are unavailable
	EventBuffer       int           // Event channel capacity
}

func (c Config) withDefaults() Config {
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 15 * time.Second
	}
	if c.PrefetchTimeout <= 0 {
		c.PrefetchTimeout = 15 * time.Second
	}
	if c.LyricsTimeout <= 0 {
		c.LyricsTimeout = 10 * time.Second
	}
	if c.LyricsPlaceholder == "" {
		c.LyricsPlaceholder = DefaultLyricsPlaceholder
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 32
	}
	return c
}

// Controller owns the playback queue, the current index, the stream URL
// cache and the single-flight playback start.
type Controller struct {
	mu sync.RWMutex

	// Queue management
	queue   []track.Track
	current int

	// Stream resolution
	cache    *StreamCache
	guard    fetchGuard
	inflight singleflight.Group

	// Collaborators
	resolver StreamResolver
	lyrics   LyricsFetcher
	audio    Audio

	// Configuration
	config Config

	// Events and background work
	eventCh chan Event
	lifeMu  sync.RWMutex
	closed  bool
	bgWG    sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewController creates a new playback controller. lyrics may be nil.
func NewController(config Config, resolver StreamResolver, lyrics LyricsFetcher, audio Audio) *Controller {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		queue:    make([]track.Track, 0),
		current:  NoTrack,
		cache:    NewStreamCache(),
		resolver: resolver,
		lyrics:   lyrics,
		audio:    audio,
		config:   config,
		eventCh:  make(chan Event, config.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Enqueue appends a track to the end of the queue and prefetches its stream
// URL in the background. If nothing has been selected yet, the new track is
// selected and started in the background; Enqueue returns once the track is
// queued and failures of that start are reported through EventPlaybackFailed.
func (c *Controller) Enqueue(ctx context.Context, t track.Track) error {
	if err := t.Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "enqueue"), ErrInvalidTrack)
	}

	c.mu.Lock()
	c.queue = append(c.queue, t)
	autoStart := c.current == NoTrack
	if autoStart {
		c.current = len(c.queue) - 1
	}
	queue := c.queueLocked()
	index := c.current
	c.mu.Unlock()

	zlog.Debug().Msgf("playback: enqueued: track_id=%s title=%s queue_size=%d", t.ID, t.Title, len(queue))
	c.sendEvent(Event{Type: EventQueueChanged, Track: &t, Index: index, Queue: queue})

	c.prefetch(t)

	if autoStart {
		c.startSelected(index, t)
	}
	return nil
}

// startSelected starts the track at index in the background. The start is
// skipped if another start is in flight or CurrentIndex moved away from
// index before the guard was taken.
func (c *Controller) startSelected(index int, t track.Track) {
	c.goBackground(func() {
		ran, err := c.guard.guarded(func(l *lease) error {
			c.mu.Lock()
			selected := c.current == index
			c.mu.Unlock()
			if !selected {
				zlog.Debug().Msgf("playback: auto-start skipped, selection moved: index=%d", index)
				return nil
			}
			return c.resolveAndPlay(c.ctx, l, index, t)
		})
		switch {
		case !ran:
			zlog.Debug().Msg("playback: auto-start dropped, another start is in flight")
		case err != nil:
			zlog.Debug().Msgf("playback: auto-start after enqueue: %v", err)
		}
	})
}

// PlayTrackAt selects the track at index and starts it.
// Out-of-range indexes are ignored.
func (c *Controller) PlayTrackAt(ctx context.Context, index int) error {
	return c.navigate(ctx, func(_, length int) (int, bool) {
		return index, index >= 0 && index < length
	})
}

// Advance selects and starts the next track. At the end of the queue it does nothing.
func (c *Controller) Advance(ctx context.Context) error {
	return c.navigate(ctx, func(current, length int) (int, bool) {
		return current + 1, current < length-1
	})
}

// Retreat selects and starts the previous track. At the start of the queue it does nothing.
func (c *Controller) Retreat(ctx context.Context) error {
	return c.navigate(ctx, func(current, _ int) (int, bool) {
		return current - 1, current > 0
	})
}

// OnPlaybackStarted is called whenever the output begins playing.
// It prefetches the following track without taking the playback-start guard.
func (c *Controller) OnPlaybackStarted() {
	c.mu.RLock()
	next := c.current + 1
	var nextTrack *track.Track
	if next >= 0 && next < len(c.queue) {
		t := c.queue[next]
		nextTrack = &t
	}
	c.mu.RUnlock()

	if nextTrack != nil {
		c.prefetch(*nextTrack)
	}
}

// OnPlaybackEnded is called when the current track finishes. It advances the queue.
func (c *Controller) OnPlaybackEnded(ctx context.Context) error {
	return c.Advance(ctx)
}

// Queue returns a copy of the queue.
func (c *Controller) Queue() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queueLocked()
}

// Len returns the number of queued tracks.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queue)
}

// CurrentIndex returns the current index, or NoTrack.
func (c *Controller) CurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Current returns the currently selected track.
func (c *Controller) Current() (track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == NoTrack {
		return track.Track{}, false
	}
	return c.queue[c.current], true
}

// FetchState returns the state of the playback-start guard.
func (c *Controller) FetchState() FetchState {
	return c.guard.State()
}

// CachedURL returns the cached stream URL for a track ID.
func (c *Controller) CachedURL(id string) (string, bool) {
	return c.cache.Get(id)
}

// CacheSize returns the number of resolved stream URLs.
func (c *Controller) CacheSize() int {
	return c.cache.Len()
}

// Close stops background work, waits for it and closes the event channel.
func (c *Controller) Close() {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.closed = true
	c.lifeMu.Unlock()

	c.cancel()
	c.bgWG.Wait()
	close(c.eventCh)
}

// navigate moves CurrentIndex to the index chosen by target and starts that
// track. It does nothing when target reports no valid index. If a playback
// start is already in flight the request is dropped with ErrBusy and
// CurrentIndex is left untouched.
func (c *Controller) navigate(ctx context.Context, target func(current, length int) (int, bool)) error {
	ran, err := c.guard.guarded(func(l *lease) error {
		c.mu.Lock()
		index, ok := target(c.current, len(c.queue))
		if !ok {
			c.mu.Unlock()
			return nil
		}
		c.current = index
		t := c.queue[index]
		c.mu.Unlock()

		return c.resolveAndPlay(ctx, l, index, t)
	})
	if !ran {
		zlog.Debug().Msg("playback: start dropped, another start is in flight")
		return ErrBusy
	}
	return err
}

// resolveAndPlay resolves the stream URL for t (cache first) and hands it to
// the audio output. Must be called with the guard held.
func (c *Controller) resolveAndPlay(ctx context.Context, l *lease, index int, t track.Track) error {
	c.sendEvent(Event{Type: EventTrackSelected, Track: &t, Index: index})

	url, err := c.resolve(ctx, t.ID, c.config.ResolveTimeout)
	if err != nil {
		return c.fail(index, t, err)
	}

	l.starting()
	if err := c.audio.Play(ctx, url); err != nil {
		return c.fail(index, t, errors.Mark(errors.Wrapf(err, "start playback of %s", t.ID), ErrPlaybackStart))
	}

	zlog.Info().Msgf("playback: track started: index=%d track_id=%s title=%s", index, t.ID, t.Title)
	c.sendEvent(Event{Type: EventTrackStarted, Track: &t, Index: index})

	c.fetchLyrics(t)
	return nil
}

// fail reports a failed playback start. Queue and CurrentIndex are left as they are.
func (c *Controller) fail(index int, t track.Track, err error) error {
	zlog.Error().Msgf("playback: failed to start track: index=%d track_id=%s err=%v", index, t.ID, err)
	c.sendEvent(Event{Type: EventPlaybackFailed, Track: &t, Index: index, Err: err})
	return err
}

// resolve returns the stream URL for id, from the cache when possible.
// Concurrent resolutions of the same id share one backend call; the call runs
// on the controller's lifetime context so an abandoned caller still fills
// the cache.
func (c *Controller) resolve(ctx context.Context, id string, timeout time.Duration) (string, error) {
	if url, ok := c.cache.Get(id); ok {
		zlog.Debug().Msgf("playback: stream cache hit: track_id=%s", id)
		return url, nil
	}

	ch := c.inflight.DoChan(id, func() (any, error) {
		if url, ok := c.cache.Get(id); ok {
			return url, nil
		}
		rctx, cancel := context.WithTimeout(c.ctx, timeout)
		defer cancel()

		url, err := c.resolver.ResolveStream(rctx, id)
		if err != nil {
			return "", err
		}
		if url == "" {
			return "", errors.Newf("empty stream url for %s", id)
		}
		c.cache.Put(id, url)
		return url, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", markResolution(errors.Wrapf(res.Err, "resolve %s", id))
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", markResolution(errors.Wrapf(ctx.Err(), "resolve %s", id))
	}
}

// prefetch resolves t's stream URL in the background if it is not cached.
// Failures are logged and otherwise ignored.
func (c *Controller) prefetch(t track.Track) {
	if _, ok := c.cache.Get(t.ID); ok {
		return
	}
	c.goBackground(func() {
		if _, err := c.resolve(c.ctx, t.ID, c.config.PrefetchTimeout); err != nil {
			zlog.Warn().Msgf("playback: prefetch failed: track_id=%s err=%v", t.ID, err)
			return
		}
		zlog.Debug().Msgf("playback: prefetched: track_id=%s", t.ID)
	})
}

// fetchLyrics loads lyrics for t in the background and emits EventLyricsLoaded.
func (c *Controller) fetchLyrics(t track.Track) {
	if c.lyrics == nil {
		return
	}
	c.goBackground(func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.config.LyricsTimeout)
		defer cancel()

		text, err := c.lyrics.GetLyrics(ctx, t.ID)
		if err != nil || text == "" {
			if err != nil {
				zlog.Warn().Msgf("playback: lyrics unavailable: track_id=%s err=%v", t.ID, err)
			}
			text = c.config.LyricsPlaceholder
		}
		c.sendEvent(Event{Type: EventLyricsLoaded, Track: &t, Lyrics: text})
	})
}

// goBackground runs fn in a tracked goroutine unless the controller is closed.
func (c *Controller) goBackground(fn func()) {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()
	if c.closed {
		return
	}
	c.bgWG.Add(1)
	go func() {
		defer c.bgWG.Done()
		fn()
	}()
}

// waitBackground blocks until all background work has finished.
func (c *Controller) waitBackground() {
	c.bgWG.Wait()
}

// sendEvent sends an event without blocking.
func (c *Controller) sendEvent(e Event) {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping event: type=%s", e.Type)
	}
}

// queueLocked returns a copy of the queue. Must be called with c.mu held.
func (c *Controller) queueLocked() []track.Track {
	result := make([]track.Track, len(c.queue))
	copy(result, c.queue)
	return result
}

func markResolution(err error) error {
	err = errors.Mark(err, ErrStreamResolution)
	if isTimeout(err) {
		err = errors.Mark(err, ErrTimeout)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
