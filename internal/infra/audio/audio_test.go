package audio

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	names := ListRegistered()
	assert.Contains(t, names, "null")
	assert.NotContains(t, names, "speaker")

	out, err := New("null", 0.5, map[string]any{"simulated_length_ms": 1000})
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 0.5, out.Volume())

	null, ok := out.(*Null)
	require.True(t, ok)
	assert.Equal(t, time.Second, null.length)

	_, err = New("null", 1, nil)
	assert.NoError(t, err)

	_, err = New("cassette", 1, nil)
	assert.Error(t, err)

	_, err = New("null", 1.5, nil)
	assert.True(t, errors.Is(err, ErrInvalidVolume))

	_, err = New("null", 1, map[string]any{"simulated_length_ms": -5})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	var created bool
	Register("test-output", func(volume float64, settings map[string]any) (Output, error) {
		created = true
		return NewNull(NullSettings{}, volume)
	})

	assert.Contains(t, ListRegistered(), "test-output")
	out, err := New("test-output", 1, nil)
	require.NoError(t, err)
	defer out.Close()
	assert.True(t, created)
}

func nextEvent(t *testing.T, out Output) Event {
	t.Helper()
	select {
	case e := <-out.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output event")
		return Event{}
	}
}

func TestNull_PlayAndEnd(t *testing.T) {
	out, err := NewNull(NullSettings{SimulatedLengthMs: 30}, 1)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Play(context.Background(), "https://stream/a"))
	assert.Equal(t, Event{Type: EventStarted, URL: "https://stream/a"}, nextEvent(t, out))
	assert.Equal(t, Event{Type: EventEnded, URL: "https://stream/a"}, nextEvent(t, out))
	assert.Equal(t, Progress{}, out.Progress())
}

func TestNull_ReplacedStreamDoesNotEnd(t *testing.T) {
	out, err := NewNull(NullSettings{SimulatedLengthMs: 80}, 1)
	require.NoError(t, err)
	defer out.Close()

	ctx := context.Background()
	require.NoError(t, out.Play(ctx, "a"))
	assert.Equal(t, EventStarted, nextEvent(t, out).Type)

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, out.Play(ctx, "b"))
	assert.Equal(t, Event{Type: EventStarted, URL: "b"}, nextEvent(t, out))
	assert.Equal(t, Event{Type: EventEnded, URL: "b"}, nextEvent(t, out))
}

func TestNull_PauseResumeSeek(t *testing.T) {
	out, err := NewNull(NullSettings{SimulatedLengthMs: 60_000}, 1)
	require.NoError(t, err)
	defer out.Close()

	assert.True(t, errors.Is(out.Pause(), ErrNotPlaying))
	assert.True(t, errors.Is(out.Seek(0.5), ErrNotPlaying))

	require.NoError(t, out.Play(context.Background(), "a"))
	nextEvent(t, out)

	require.NoError(t, out.Pause())
	assert.True(t, out.Paused())
	assert.Equal(t, EventPaused, nextEvent(t, out).Type)

	// Pausing twice is a no-op.
	require.NoError(t, out.Pause())

	require.NoError(t, out.Seek(0.5))
	p := out.Progress()
	assert.Equal(t, 30*time.Second, p.Position)
	assert.Equal(t, time.Minute, p.Length)
	assert.InDelta(t, 0.5, p.Fraction(), 0.001)

	require.NoError(t, out.Resume())
	assert.False(t, out.Paused())
	assert.Equal(t, EventResumed, nextEvent(t, out).Type)

	assert.True(t, errors.Is(out.Seek(1.5), ErrInvalidPosition))
}

func TestNull_Volume(t *testing.T) {
	out, err := NewNull(NullSettings{}, 0.8)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.SetVolume(0))
	assert.Equal(t, 0.0, out.Volume())
	assert.True(t, errors.Is(out.SetVolume(-0.1), ErrInvalidVolume))
	assert.Equal(t, 0.0, out.Volume())
}

func TestNull_Close(t *testing.T) {
	out, err := NewNull(NullSettings{}, 1)
	require.NoError(t, err)

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())

	_, open := <-out.Events()
	assert.False(t, open)
	assert.True(t, errors.Is(out.Play(context.Background(), "a"), ErrClosed))
}

func TestProgress_Fraction(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Fraction())
	assert.Equal(t, 0.25, Progress{Position: time.Second, Length: 4 * time.Second}.Fraction())
	assert.Equal(t, 1.0, Progress{Position: 5 * time.Second, Length: 4 * time.Second}.Fraction())
}
