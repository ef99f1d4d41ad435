// Package session provides the session manager.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
	"github.com/osa030/tubeplay/internal/app/download"
	"github.com/osa030/tubeplay/internal/app/filter"
	"github.com/osa030/tubeplay/internal/app/notification"
	"github.com/osa030/tubeplay/internal/app/playback"
	"github.com/osa030/tubeplay/internal/app/suggest"
	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/audio"
	"github.com/osa030/tubeplay/internal/infra/backend"
	"github.com/osa030/tubeplay/internal/infra/config"
)

var (
	ErrQueryTooShort = errors.New("search query is too short")
	ErrClosed        = errors.New("session is closed")
)

// Backend is what the session needs from the search/streaming backend.
type Backend interface {
	playback.StreamResolver
	playback.LyricsFetcher
	suggest.Searcher
	download.Downloader
}

// Manager manages the player session.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config

	// Components
	backend      Backend
	playback     *playback.Controller
	output       audio.Output
	notification *notification.Manager
	suggest      *suggest.Chain
	filters      *filter.Chain
	saver        *download.Saver

	// Lyrics of the current track
	lyrics        string
	lyricsTrackID string
	lyricsLoaded  bool

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	loops     sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewManager creates a new session manager. The manager owns output and
// closes it on Close. playlists may be nil unless a spotify suggestion
// provider is configured.
func NewManager(
	cfg *config.Config,
	be Backend,
	output audio.Output,
	playlists suggest.PlaylistClient,
) (*Manager, error) {
	if be == nil {
		return nil, errors.New("backend is required")
	}
	if output == nil {
		return nil, errors.New("audio output is required")
	}

	chain, err := suggest.NewChainFromConfig(cfg.Suggest, be, playlists)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create suggestion chain")
	}

	filters, err := filter.NewChainFromConfig(cfg.Suggest.Filters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create suggestion filters")
	}

	saver, err := download.NewSaver(be, download.Config{
		Dir:          cfg.Download.Dir,
		ShowProgress: cfg.Download.Progress == "bar",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create download saver")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:  cfg,
		backend: be,
		playback: playback.NewController(playback.Config{
			ResolveTimeout:    time.Duration(cfg.Playback.ResolveTimeoutMs) * time.Millisecond,
			PrefetchTimeout:   time.Duration(cfg.Playback.PrefetchTimeoutMs) * time.Millisecond,
			LyricsTimeout:     time.Duration(cfg.Playback.LyricsTimeoutMs) * time.Millisecond,
			LyricsPlaceholder: cfg.GetMessage("lyrics_unavailable"),
			EventBuffer:       cfg.Playback.EventBuffer,
		}, be, be, output),
		output:       output,
		notification: notification.NewManager(),
		suggest:      chain,
		filters:      filters,
		saver:        saver,

		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	return m, nil
}

// Start starts the event loops.
func (m *Manager) Start() {
	m.runLoop("playback", m.playbackLoop)
	m.runLoop("output", m.outputLoop)
	zlog.Info().Msg("session started")
}

// Close stops the session, the controller and the audio output.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.playback.Close()
		if err := m.output.Close(); err != nil {
			zlog.Warn().Msgf("failed to close audio output: %v", err)
		}
		m.loops.Wait()
		m.notification.Close()
		close(m.done)
		zlog.Info().Msg("session closed")
	})
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Search searches the backend. Queries shorter than the configured minimum
// are rejected with ErrQueryTooShort without contacting the backend.
func (m *Manager) Search(ctx context.Context, query string) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < m.config.Console.MinQueryLength {
		return []track.Track{}, errors.Mark(errors.Newf("query %q has fewer than %d characters", query, m.config.Console.MinQueryLength), ErrQueryTooShort)
	}

	results, err := m.backend.Search(ctx, query)
	if err != nil {
		zlog.Warn().Msgf("search failed: query=%q error=%v", query, err)
		return []track.Track{}, err
	}
	if limit := m.config.Console.SearchLimit; limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Enqueue appends a track to the queue. The first track ever queued is started
// in the background; Enqueue does not wait for it.
func (m *Manager) Enqueue(ctx context.Context, t track.Track) error {
	if m.ctx.Err() != nil {
		return ErrClosed
	}
	return m.playback.Enqueue(ctx, t)
}

// Next plays the next track in the queue.
func (m *Manager) Next(ctx context.Context) error {
	return m.playback.Advance(ctx)
}

// Previous plays the previous track in the queue.
func (m *Manager) Previous(ctx context.Context) error {
	return m.playback.Retreat(ctx)
}

// Jump plays the track at index. Out-of-range indexes are ignored.
func (m *Manager) Jump(ctx context.Context, index int) error {
	return m.playback.PlayTrackAt(ctx, index)
}

// TogglePause pauses a playing track or resumes a paused one and reports
// whether the output is now paused.
func (m *Manager) TogglePause() (bool, error) {
	if m.output.Paused() {
		if err := m.output.Resume(); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := m.output.Pause(); err != nil {
		return false, err
	}
	return true, nil
}

// SetVolume sets the output volume in [0, 1].
func (m *Manager) SetVolume(v float64) error {
	if err := m.output.SetVolume(v); err != nil {
		return err
	}
	zlog.Debug().Msgf("volume changed: volume=%.2f", v)
	m.notification.Broadcast(&playerv1.Notification{
		Type:   playerv1.NotificationTypeVolumeChanged,
		Volume: v,
	})
	return nil
}

// Seek moves to fraction of the current track.
func (m *Manager) Seek(fraction float64) error {
	return m.output.Seek(fraction)
}

// Suggest returns up to count suggested tracks that are not already queued.
// A non-positive count uses the configured default.
func (m *Manager) Suggest(ctx context.Context, count int) ([]suggest.Suggestion, error) {
	if count <= 0 {
		count = m.config.Suggest.Count
	}

	queue := m.playback.Queue()
	exclude := make(map[string]bool, len(queue))
	for _, t := range queue {
		exclude[t.ID] = true
	}

	var seed *track.Track
	if cur, ok := m.playback.Current(); ok {
		seed = &cur
	}

	// Ask for extra candidates so filtering still leaves enough.
	want := count
	if len(m.filters.Filters()) > 0 {
		want = count * 2
	}

	suggestions, err := m.suggest.Suggest(ctx, want, seed, exclude)
	if err != nil {
		return nil, err
	}

	result := make([]suggest.Suggestion, 0, count)
	for _, s := range suggestions {
		if len(result) == count {
			break
		}
		if r := m.filters.Execute(ctx, s.Track, queue); !r.Accepted {
			zlog.Debug().Msgf("suggestion filtered: track_id=%s code=%s", s.Track.ID, r.Code)
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// Lyrics returns the lyrics of the current track. ok is false while they
// are still loading or when nothing is selected.
func (m *Manager) Lyrics() (text string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lyrics, m.lyricsLoaded
}

// Download saves the current track to the download directory.
func (m *Manager) Download(ctx context.Context) (string, error) {
	cur, ok := m.playback.Current()
	if !ok {
		return "", download.ErrNoTrack
	}
	return m.saver.Save(ctx, &cur)
}

// DownloadDir returns the directory downloads are written to.
func (m *Manager) DownloadDir() string {
	return m.saver.Dir()
}

// GetStatus returns the current player status.
func (m *Manager) GetStatus() *Status {
	status := &Status{
		Queue:        m.playback.Queue(),
		CurrentIndex: m.playback.CurrentIndex(),
		Paused:       m.output.Paused(),
		Volume:       m.output.Volume(),
		Progress:     m.output.Progress(),
		FetchState:   m.playback.FetchState(),
	}
	if status.CurrentIndex >= 0 && status.CurrentIndex < len(status.Queue) {
		cur := status.Queue[status.CurrentIndex]
		status.Current = &cur
	}

	m.mu.RLock()
	if m.lyricsLoaded {
		status.Lyrics = m.lyrics
	}
	m.mu.RUnlock()

	return status
}

// InitialState builds the notification sent to a new subscriber.
func (m *Manager) InitialState() *playerv1.Notification {
	status := m.GetStatus()
	n := &playerv1.Notification{
		Type:      playerv1.NotificationTypeInitialState,
		Timestamp: time.Now(),
		Index:     int32(status.CurrentIndex),
		QueueSize: int32(len(status.Queue)),
		Status:    status.Proto(),
	}
	if status.Current != nil {
		n.Track = TrackToProto(*status.Current)
	}
	return n
}

// MessageFor returns the user-facing message for an error.
func (m *Manager) MessageFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, download.ErrNoTrack):
		return m.config.GetMessage("no_track_selected")
	case errors.Is(err, playback.ErrBusy):
		return m.config.GetMessage("busy")
	case errors.Is(err, playback.ErrStreamResolution), errors.Is(err, playback.ErrPlaybackStart):
		return m.config.GetMessage("playback_error")
	case errors.Is(err, ErrQueryTooShort):
		return fmt.Sprintf(m.config.GetMessage("query_too_short"), m.config.Console.MinQueryLength)
	case errors.Is(err, backend.ErrSearch):
		return m.config.GetMessage("search_failed")
	default:
		return m.config.GetMessage("default_error")
	}
}

// runLoop runs loop in a goroutine and restarts it if it panics.
func (m *Manager) runLoop(name string, loop func()) {
	m.loops.Add(1)
	go func() {
		defer m.loops.Done()
		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Msgf("%s loop panicked: %v", name, r)
				if m.ctx.Err() == nil {
					zlog.Info().Msgf("restarting %s loop", name)
					m.runLoop(name, loop)
				}
			}
		}()
		loop()
	}()
}

// playbackLoop forwards controller events until the controller is closed.
func (m *Manager) playbackLoop() {
	for event := range m.playback.Events() {
		m.handlePlaybackEvent(event)
	}
}

// outputLoop reacts to audio output events until the output is closed.
func (m *Manager) outputLoop() {
	for event := range m.output.Events() {
		m.handleOutputEvent(event)
	}
}

// handlePlaybackEvent handles controller events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("playback event: type=%s index=%d", event.Type, event.Index)

	n := &playerv1.Notification{
		Index:     int32(event.Index),
		QueueSize: int32(m.playback.Len()),
	}
	if event.Track != nil {
		n.Track = TrackToProto(*event.Track)
	}

	switch event.Type {
	case playback.EventQueueChanged:
		n.Type = playerv1.NotificationTypeQueueChanged
		n.QueueSize = int32(len(event.Queue))

	case playback.EventTrackSelected:
		n.Type = playerv1.NotificationTypeTrackSelected
		m.mu.Lock()
		m.lyrics = ""
		m.lyricsLoaded = false
		if event.Track != nil {
			m.lyricsTrackID = event.Track.ID
		}
		m.mu.Unlock()

	case playback.EventTrackStarted:
		n.Type = playerv1.NotificationTypeTrackStarted

	case playback.EventPlaybackFailed:
		n.Type = playerv1.NotificationTypePlaybackFailed
		n.Message = m.MessageFor(event.Err)

	case playback.EventLyricsLoaded:
		if event.Track == nil {
			return
		}
		m.mu.Lock()
		current := event.Track.ID == m.lyricsTrackID
		if current {
			m.lyrics = event.Lyrics
			m.lyricsLoaded = true
		}
		m.mu.Unlock()
		if !current {
			zlog.Debug().Msgf("discarding lyrics of a track that is no longer selected: track_id=%s", event.Track.ID)
			return
		}
		n.Type = playerv1.NotificationTypeLyricsLoaded
		n.Lyrics = event.Lyrics

	default:
		return
	}

	m.notification.Broadcast(n)
}

// handleOutputEvent handles audio output events.
func (m *Manager) handleOutputEvent(event audio.Event) {
	zlog.Debug().Msgf("output event: type=%s", event.Type)

	var n *playerv1.Notification
	switch event.Type {
	case audio.EventStarted:
		m.playback.OnPlaybackStarted()

	case audio.EventPaused:
		n = &playerv1.Notification{Type: playerv1.NotificationTypePaused}

	case audio.EventResumed:
		n = &playerv1.Notification{Type: playerv1.NotificationTypeResumed}

	case audio.EventEnded:
		m.onTrackEnded()
	}

	if n != nil {
		m.notification.Broadcast(n)
	}
}

// onTrackEnded announces the finished track and advances the queue.
func (m *Manager) onTrackEnded() {
	n := &playerv1.Notification{
		Type:      playerv1.NotificationTypeTrackEnded,
		Index:     int32(m.playback.CurrentIndex()),
		QueueSize: int32(m.playback.Len()),
	}
	if cur, ok := m.playback.Current(); ok {
		n.Track = TrackToProto(cur)
	}
	m.notification.Broadcast(n)

	if err := m.playback.OnPlaybackEnded(m.ctx); err != nil {
		zlog.Warn().Msgf("failed to advance after track ended: %v", err)
	}
}
