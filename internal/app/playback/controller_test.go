package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// fakeResolver resolves every ID to "https://stream/<id>" unless an error or
// a gate is configured for it.
type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error
	gates map[string]chan struct{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeResolver) ResolveStream(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.gates[id]
	err := f.errs[id]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "https://stream/" + id, nil
}

func (f *fakeResolver) setErr(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, id)
		return
	}
	f.errs[id] = err
}

func (f *fakeResolver) block(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	return gate
}

func (f *fakeResolver) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeResolver) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type fakeAudio struct {
	mu     sync.Mutex
	played []string
	err    error
}

func (f *fakeAudio) Play(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.played = append(f.played, url)
	return nil
}

func (f *fakeAudio) plays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type fakeLyrics struct {
	text string
	err  error
}

func (f *fakeLyrics) GetLyrics(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

func newTestController(t *testing.T, resolver *fakeResolver, audio *fakeAudio) *Controller {
	t.Helper()
	c := NewController(Config{
		ResolveTimeout:  time.Second,
		PrefetchTimeout: time.Second,
		LyricsTimeout:   time.Second,
		EventBuffer:     128,
	}, resolver, nil, audio)
	t.Cleanup(c.Close)
	return c
}

func tr(id string) track.Track {
	return track.Track{ID: id, Title: "Title " + id, Artist: "Artist " + id}
}

// waitForEvent reads events until one of the given type arrives.
func waitForEvent(t *testing.T, c *Controller, typ EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-c.Events():
			if e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
			return Event{}
		}
	}
}

func TestEnqueue_FirstTrackStartsPlayback(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	assert.Equal(t, NoTrack, c.CurrentIndex())

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	assert.Equal(t, 0, c.CurrentIndex())
	c.waitBackground()
	assert.Equal(t, []string{"https://stream/A"}, audio.plays())
	assert.Equal(t, StateIdle, c.FetchState())

	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []string{"A", "B"}, track.IDs(c.Queue()))
	assert.Len(t, audio.plays(), 1)
	assert.Equal(t, 1, resolver.callCount("A"))
	assert.Equal(t, 1, resolver.callCount("B"))

	url, ok := c.CachedURL("B")
	require.True(t, ok)
	assert.Equal(t, "https://stream/B", url)
}

func TestEnqueue_InvalidTrack(t *testing.T) {
	resolver := newFakeResolver()
	c := newTestController(t, resolver, &fakeAudio{})

	err := c.Enqueue(context.Background(), track.Track{ID: "  ", Title: "no id"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTrack))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, NoTrack, c.CurrentIndex())
	assert.Equal(t, 0, resolver.totalCalls())
}

func TestEnqueue_EmitsQueueChanged(t *testing.T) {
	c := newTestController(t, newFakeResolver(), &fakeAudio{})

	require.NoError(t, c.Enqueue(context.Background(), tr("A")))

	e := waitForEvent(t, c, EventQueueChanged)
	require.NotNil(t, e.Track)
	assert.Equal(t, "A", e.Track.ID)
	assert.Equal(t, []string{"A"}, track.IDs(e.Queue))
}

func TestNavigation(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, c.Enqueue(ctx, tr(id)))
	}
	c.waitBackground()
	require.Equal(t, 0, c.CurrentIndex())

	// Retreat at the start does nothing.
	require.NoError(t, c.Retreat(ctx))
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Len(t, audio.plays(), 1)

	require.NoError(t, c.Advance(ctx))
	assert.Equal(t, 1, c.CurrentIndex())
	require.NoError(t, c.Advance(ctx))
	assert.Equal(t, 2, c.CurrentIndex())

	// Advance at the end does nothing.
	require.NoError(t, c.Advance(ctx))
	assert.Equal(t, 2, c.CurrentIndex())

	require.NoError(t, c.Retreat(ctx))
	assert.Equal(t, 1, c.CurrentIndex())

	assert.Equal(t, []string{
		"https://stream/A",
		"https://stream/B",
		"https://stream/C",
		"https://stream/B",
	}, audio.plays())

	// Every URL was resolved once and then served from the cache.
	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, 1, resolver.callCount(id), id)
	}
	assert.Equal(t, 3, c.CacheSize())
}

func TestPlayTrackAt(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	tests := []struct {
		name      string
		index     int
		wantIndex int
		wantPlays int
	}{
		{name: "negative index is ignored", index: -1, wantIndex: 0, wantPlays: 1},
		{name: "index past end is ignored", index: 2, wantIndex: 0, wantPlays: 1},
		{name: "jump to second", index: 1, wantIndex: 1, wantPlays: 2},
		{name: "replay same index", index: 1, wantIndex: 1, wantPlays: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.PlayTrackAt(ctx, tt.index))
			assert.Equal(t, tt.wantIndex, c.CurrentIndex())
			assert.Len(t, audio.plays(), tt.wantPlays)
		})
	}

	assert.Equal(t, 1, resolver.callCount("B"))
}

func TestPlayTrackAt_ResolutionFailure(t *testing.T) {
	resolver := newFakeResolver()
	resolver.setErr("B", errors.New("no audio stream found"))
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	err := c.PlayTrackAt(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamResolution))
	assert.False(t, errors.Is(err, ErrTimeout))

	// The index stays on the failed track; nothing is removed.
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, []string{"A", "B"}, track.IDs(c.Queue()))
	assert.Equal(t, StateIdle, c.FetchState())
	assert.Len(t, audio.plays(), 1)
	_, cached := c.CachedURL("B")
	assert.False(t, cached)

	e := waitForEvent(t, c, EventPlaybackFailed)
	assert.Equal(t, 1, e.Index)
	assert.True(t, errors.Is(e.Err, ErrStreamResolution))

	// A later attempt tries again.
	resolver.setErr("B", nil)
	require.NoError(t, c.PlayTrackAt(ctx, 1))
	assert.Equal(t, "https://stream/B", audio.plays()[1])
}

func TestPlayTrackAt_OutputFailure(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{err: errors.New("device busy")}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	// Enqueue succeeds even though the automatic start fails.
	require.NoError(t, c.Enqueue(ctx, tr("A")))
	assert.Equal(t, 0, c.CurrentIndex())
	e := waitForEvent(t, c, EventPlaybackFailed)
	assert.True(t, errors.Is(e.Err, ErrPlaybackStart))
	c.waitBackground()

	err := c.PlayTrackAt(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlaybackStart))
	assert.Equal(t, StateIdle, c.FetchState())

	// The URL was still cached.
	assert.Equal(t, 1, resolver.callCount("A"))
}

func TestPlayTrackAt_Timeout(t *testing.T) {
	resolver := newFakeResolver()
	resolver.block("slow")
	c := NewController(Config{ResolveTimeout: 50 * time.Millisecond, PrefetchTimeout: 50 * time.Millisecond}, resolver, nil, &fakeAudio{})
	t.Cleanup(c.Close)

	require.NoError(t, c.Enqueue(context.Background(), tr("slow")))
	c.waitBackground()

	err := c.PlayTrackAt(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamResolution))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, StateIdle, c.FetchState())
}

func TestEnqueue_ReturnsWhileStartInFlight(t *testing.T) {
	resolver := newFakeResolver()
	gate := resolver.block("A")
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)

	done := make(chan error, 1)
	go func() {
		done <- c.Enqueue(context.Background(), tr("A"))
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("Enqueue blocked on the automatic start")
	}

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []string{"A"}, track.IDs(c.Queue()))
	require.Eventually(t, func() bool {
		return c.FetchState() == StateResolving
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, audio.plays())

	close(gate)
	c.waitBackground()

	assert.Equal(t, StateIdle, c.FetchState())
	assert.Equal(t, []string{"https://stream/A"}, audio.plays())
	started := waitForEvent(t, c, EventTrackStarted)
	assert.Equal(t, 0, started.Index)
}

func TestEnqueue_StartSkippedWhenSelectionMoves(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	// Hold the guard so the automatic start for A cannot run yet.
	l, ok := c.guard.tryAcquire()
	require.True(t, ok)

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()
	assert.Empty(t, audio.plays())

	l.release()
	require.NoError(t, c.PlayTrackAt(ctx, 1))
	c.waitBackground()

	// A start for a stale selection never replaces the newer one.
	c.startSelected(0, tr("A"))
	c.waitBackground()

	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, []string{"https://stream/B"}, audio.plays())
}

func TestNavigation_DroppedWhileStartInFlight(t *testing.T) {
	resolver := newFakeResolver()
	gate := resolver.block("A")
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.Eventually(t, func() bool {
		return c.FetchState() == StateResolving
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 0, c.CurrentIndex())

	require.NoError(t, c.Enqueue(ctx, tr("B")))
	require.Eventually(t, func() bool {
		_, ok := c.CachedURL("B")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	calls := resolver.totalCalls()

	for name, op := range map[string]func(context.Context) error{
		"play":    func(ctx context.Context) error { return c.PlayTrackAt(ctx, 1) },
		"advance": c.Advance,
		"retreat": c.Retreat,
	} {
		err := op(ctx)
		assert.True(t, errors.Is(err, ErrBusy), name)
	}

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, calls, resolver.totalCalls())
	assert.Empty(t, audio.plays())

	close(gate)
	c.waitBackground()

	assert.Equal(t, StateIdle, c.FetchState())
	assert.Equal(t, []string{"https://stream/A"}, audio.plays())
	assert.Equal(t, 1, resolver.callCount("A"))
}

func TestOnPlaybackStarted_PrefetchesNext(t *testing.T) {
	resolver := newFakeResolver()
	resolver.setErr("B", errors.New("temporary failure"))
	c := newTestController(t, resolver, &fakeAudio{})
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	_, ok := c.CachedURL("B")
	require.False(t, ok)

	resolver.setErr("B", nil)
	c.OnPlaybackStarted()
	c.waitBackground()

	url, ok := c.CachedURL("B")
	require.True(t, ok)
	assert.Equal(t, "https://stream/B", url)
	assert.Equal(t, 2, resolver.callCount("B"))

	// Already cached: no further calls.
	c.OnPlaybackStarted()
	c.waitBackground()
	assert.Equal(t, 2, resolver.callCount("B"))
}

func TestOnPlaybackStarted_DoesNotHoldGuard(t *testing.T) {
	resolver := newFakeResolver()
	resolver.setErr("B", errors.New("temporary failure"))
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	resolver.setErr("B", nil)
	gate := resolver.block("B")
	c.OnPlaybackStarted()

	require.Eventually(t, func() bool {
		return resolver.callCount("B") == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StateIdle, c.FetchState())
	require.NoError(t, c.PlayTrackAt(ctx, 0))
	assert.Len(t, audio.plays(), 2)

	close(gate)
	c.waitBackground()
}

func TestOnPlaybackEnded(t *testing.T) {
	resolver := newFakeResolver()
	audio := &fakeAudio{}
	c := newTestController(t, resolver, audio)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, tr("A")))
	require.NoError(t, c.Enqueue(ctx, tr("B")))
	c.waitBackground()

	require.NoError(t, c.OnPlaybackEnded(ctx))
	assert.Equal(t, 1, c.CurrentIndex())

	c.waitBackground()
	calls := resolver.totalCalls()

	// Last track ended: nothing to do.
	require.NoError(t, c.OnPlaybackEnded(ctx))
	c.waitBackground()
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, calls, resolver.totalCalls())
	assert.Len(t, audio.plays(), 2)
}

func TestLyrics(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeLyrics
		want    string
	}{
		{name: "loaded", fetcher: &fakeLyrics{text: "la la la"}, want: "la la la"},
		{name: "fetch error", fetcher: &fakeLyrics{err: errors.New("boom")}, want: DefaultLyricsPlaceholder},
		{name: "empty lyrics", fetcher: &fakeLyrics{}, want: DefaultLyricsPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(Config{}, newFakeResolver(), tt.fetcher, &fakeAudio{})
			t.Cleanup(c.Close)

			require.NoError(t, c.Enqueue(context.Background(), tr("A")))

			e := waitForEvent(t, c, EventLyricsLoaded)
			require.NotNil(t, e.Track)
			assert.Equal(t, "A", e.Track.ID)
			assert.Equal(t, tt.want, e.Lyrics)
		})
	}
}

func TestClose(t *testing.T) {
	c := NewController(Config{}, newFakeResolver(), nil, &fakeAudio{})
	require.NoError(t, c.Enqueue(context.Background(), tr("A")))

	c.Close()
	c.Close()

	// Channel is closed after draining.
	for range c.Events() {
	}

	// Operations after close do not panic.
	require.NoError(t, c.Enqueue(context.Background(), tr("B")))
}
