// Package speaker provides the audio output that plays streams on the local
// sound device. Importing it registers the "speaker" output type.
package speaker

import (
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	beepspeaker "github.com/faiface/beep/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/infra/audio"
)

// Settings configures the speaker output.
type Settings struct {
	SampleRate          int    `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs            int    `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	FetchTimeoutSec     int    `mapstructure:"fetch_timeout_sec" default:"60" validate:"gte=1"`
	MaxStreamMB         int64  `mapstructure:"max_stream_mb" default:"64" validate:"gte=1"`
	ResampleQuality     int    `mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	FFmpegPath          string `mapstructure:"ffmpeg_path" default:"ffmpeg"`
	TranscodeTimeoutSec int    `mapstructure:"transcode_timeout_sec" default:"120" validate:"gte=1"`
}

func init() {
	audio.Register("speaker", func(volume float64, settings map[string]any) (audio.Output, error) {
		var s Settings
		if err := audio.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return New(s, volume)
	})
}

// The sound device can only be initialised once per process.
var (
	deviceInitOnce sync.Once
	deviceInitErr  error
	deviceRate     beep.SampleRate
)

// Speaker plays streams on the local sound device.
type Speaker struct {
	settings   Settings
	rate       beep.SampleRate
	httpClient *http.Client
	transcoder *transcoder

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	volume   float64
	url      string
	gen      uint64
	closed   bool

	events chan audio.Event
}

// New initialises the sound device and creates a speaker output. Without an
// ffmpeg binary only MP3 and WAV streams can be played.
func New(settings Settings, volume float64) (*Speaker, error) {
	if err := audio.ValidateVolume(volume); err != nil {
		return nil, err
	}

	deviceInitOnce.Do(func() {
		deviceRate = beep.SampleRate(settings.SampleRate)
		deviceInitErr = beepspeaker.Init(deviceRate, deviceRate.N(time.Duration(settings.BufferMs)*time.Millisecond))
	})
	if deviceInitErr != nil {
		return nil, errors.Wrap(deviceInitErr, "failed to initialize speaker")
	}

	zlog.Debug().Msgf("speaker initialized: sample_rate=%d buffer_ms=%d", int(deviceRate), settings.BufferMs)

	tc, err := newTranscoder(settings.FFmpegPath, int(deviceRate), time.Duration(settings.TranscodeTimeoutSec)*time.Second)
	if err != nil {
		zlog.Warn().Msgf("speaker: %v; only mp3 and wav streams will play", err)
	}

	return &Speaker{
		settings:   settings,
		rate:       deviceRate,
		httpClient: &http.Client{Timeout: time.Duration(settings.FetchTimeoutSec) * time.Second},
		transcoder: tc,
		volume:     volume,
		events:     make(chan audio.Event, 16),
	}, nil
}

// Play fetches and decodes url, then replaces the current stream with it.
func (s *Speaker) Play(ctx context.Context, url string) error {
	data, err := s.fetch(ctx, url)
	if err != nil {
		return err
	}

	streamer, format, err := decode(ctx, data, s.transcoder)
	if err != nil {
		return err
	}

	var src beep.Streamer = streamer
	if format.SampleRate != s.rate {
		src = beep.Resample(s.settings.ResampleQuality, format.SampleRate, s.rate, streamer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		_ = streamer.Close()
		return audio.ErrClosed
	}

	vol := &effects.Volume{Streamer: src, Base: 2}
	applyVolume(vol, s.volume)
	ctrl := &beep.Ctrl{Streamer: vol}

	s.gen++
	gen := s.gen

	beepspeaker.Clear()
	if s.streamer != nil {
		_ = s.streamer.Close()
	}

	s.streamer = streamer
	s.format = format
	s.vol = vol
	s.ctrl = ctrl
	s.url = url

	beepspeaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker lock held.
		go s.finish(gen)
	})))

	zlog.Debug().Msgf("speaker: playing: format=%s sample_rate=%d length=%s", Sniff(data), int(format.SampleRate), format.SampleRate.D(streamer.Len()))
	s.emitLocked(audio.Event{Type: audio.EventStarted, URL: url})
	return nil
}

// Pause pauses the current stream.
func (s *Speaker) Pause() error {
	return s.setPaused(true)
}

// Resume resumes the current stream.
func (s *Speaker) Resume() error {
	return s.setPaused(false)
}

func (s *Speaker) setPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return audio.ErrNotPlaying
	}

	beepspeaker.Lock()
	changed := s.ctrl.Paused != paused
	s.ctrl.Paused = paused
	beepspeaker.Unlock()

	if changed {
		typ := audio.EventResumed
		if paused {
			typ = audio.EventPaused
		}
		s.emitLocked(audio.Event{Type: typ, URL: s.url})
	}
	return nil
}

// Paused reports whether the current stream is paused.
func (s *Speaker) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return false
	}
	beepspeaker.Lock()
	defer beepspeaker.Unlock()
	return s.ctrl.Paused
}

// SetVolume sets the volume in [0, 1]. It applies to later streams too.
func (s *Speaker) SetVolume(v float64) error {
	if err := audio.ValidateVolume(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = v
	if s.vol != nil {
		beepspeaker.Lock()
		applyVolume(s.vol, v)
		beepspeaker.Unlock()
	}
	return nil
}

// Volume returns the current volume.
func (s *Speaker) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Seek moves to fraction of the current stream's length.
func (s *Speaker) Seek(fraction float64) error {
	if err := audio.ValidatePosition(fraction); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return audio.ErrNotPlaying
	}

	beepspeaker.Lock()
	defer beepspeaker.Unlock()

	pos := int(fraction * float64(s.streamer.Len()))
	if pos >= s.streamer.Len() {
		pos = s.streamer.Len() - 1
	}
	if pos < 0 {
		pos = 0
	}
	return errors.Wrap(s.streamer.Seek(pos), "failed to seek")
}

// Progress returns the position within the current stream.
func (s *Speaker) Progress() audio.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return audio.Progress{}
	}

	beepspeaker.Lock()
	defer beepspeaker.Unlock()
	return audio.Progress{
		Position: s.format.SampleRate.D(s.streamer.Position()),
		Length:   s.format.SampleRate.D(s.streamer.Len()),
	}
}

// Events returns the event channel.
func (s *Speaker) Events() <-chan audio.Event {
	return s.events
}

// Close stops playback and closes the event channel.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	beepspeaker.Clear()
	var err error
	if s.streamer != nil {
		err = s.streamer.Close()
		s.streamer = nil
	}
	s.ctrl = nil
	s.vol = nil
	close(s.events)
	return errors.Wrap(err, "failed to close streamer")
}

// finish reports the natural end of the stream started as generation gen.
func (s *Speaker) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		return
	}
	s.emitLocked(audio.Event{Type: audio.EventEnded, URL: s.url})
}

// fetch downloads the whole stream into memory so it can be sniffed and seeked.
func (s *Speaker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf("stream fetch returned status %d", resp.StatusCode)
	}

	limit := s.settings.MaxStreamMB << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stream")
	}
	if int64(len(data)) > limit {
		return nil, errors.Newf("stream exceeds %d MB", s.settings.MaxStreamMB)
	}
	return data, nil
}

func (s *Speaker) emitLocked(e audio.Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		zlog.Warn().Msgf("speaker: event channel full, dropping event: type=%s", e.Type)
	}
}

// applyVolume maps a linear volume in [0, 1] onto a base-2 gain.
func applyVolume(vol *effects.Volume, v float64) {
	if v <= 0 {
		vol.Silent = true
		vol.Volume = 0
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(v)
}
