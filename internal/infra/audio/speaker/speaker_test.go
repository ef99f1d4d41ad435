package speaker

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubeplay/internal/infra/audio"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "id3 tagged mp3", data: []byte("ID3\x04\x00\x00"), want: FormatMP3},
		{name: "mpeg frame sync", data: []byte{0xFF, 0xFB, 0x90, 0x64}, want: FormatMP3},
		{name: "mpeg-2 layer 3", data: []byte{0xFF, 0xF3, 0x90, 0x64}, want: FormatMP3},
		{name: "adts aac", data: []byte{0xFF, 0xF1, 0x50, 0x80}, want: FormatADTS},
		{name: "wav", data: append([]byte("RIFF\x24\x00\x00\x00WAVE"), []byte("fmt ")...), want: FormatWAV},
		{name: "riff but not wave", data: []byte("RIFF\x24\x00\x00\x00AVI "), want: FormatUnknown},
		{name: "webm", data: []byte{0x1A, 0x45, 0xDF, 0xA3}, want: FormatWebM},
		{name: "m4a", data: []byte("\x00\x00\x00\x20ftypM4A "), want: FormatMP4},
		{name: "dash mp4", data: []byte("\x00\x00\x00\x18ftypdash"), want: FormatMP4},
		{name: "ogg", data: []byte("OggS\x00\x02"), want: FormatOgg},
		{name: "flac", data: []byte("fLaC\x00\x00"), want: FormatFLAC},
		{name: "html error page", data: []byte("<!DOCTYPE html>"), want: FormatUnknown},
		{name: "empty", data: nil, want: FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestFormat_Native(t *testing.T) {
	assert.True(t, FormatMP3.Native())
	assert.True(t, FormatWAV.Native())
	assert.False(t, FormatMP4.Native())
	assert.False(t, FormatWebM.Native())
	assert.False(t, FormatUnknown.Native())
}

// pcmWAV builds a 16-bit stereo PCM WAV file with frames silent frames.
func pcmWAV(t *testing.T, sampleRate, frames int) []byte {
	t.Helper()
	const channels, bits = 2, 16
	dataLen := frames * channels * bits / 8

	var buf bytes.Buffer
	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	buf.WriteString("RIFF")
	write(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1))
	write(uint16(channels))
	write(uint32(sampleRate))
	write(uint32(sampleRate * channels * bits / 8))
	write(uint16(channels * bits / 8))
	write(uint16(bits))
	buf.WriteString("data")
	write(uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// m4aHeader is the start of an m4a file; the fake ffmpeg never reads past it.
var m4aHeader = []byte("\x00\x00\x00\x20ftypM4A \x00\x00\x02\x00M4A isomiso2")

// fakeFFmpeg writes a shell script that behaves like ffmpeg: it copies
// fixture to its last argument, or fails with stderr output when fixture is
// empty.
func fakeFFmpeg(t *testing.T, fixture []byte) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script ffmpeg stand-in needs a POSIX shell")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\necho 'Invalid data found when processing input' >&2\nexit 1\n"
	if len(fixture) > 0 {
		fixturePath := filepath.Join(dir, "fixture.wav")
		require.NoError(t, os.WriteFile(fixturePath, fixture, 0o644))
		script = "#!/bin/sh\nfor last; do :; done\ncp '" + fixturePath + "' \"$last\"\n"
	}

	path := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDecode(t *testing.T) {
	ctx := context.Background()

	s, format, err := decode(ctx, pcmWAV(t, 22050, 2205), nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 22050, int(format.SampleRate))
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 2205, s.Len())
	assert.Equal(t, 100*time.Millisecond, format.SampleRate.D(s.Len()))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "unknown bytes", data: []byte("<html>")},
		{name: "webm without ffmpeg", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00}},
		{name: "m4a without ffmpeg", data: m4aHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decode(ctx, tt.data, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, audio.ErrUnsupportedFormat))
		})
	}
}

func TestDecode_TranscodesM4A(t *testing.T) {
	tc, err := newTranscoder(fakeFFmpeg(t, pcmWAV(t, 44100, 4410)), 44100, 5*time.Second)
	require.NoError(t, err)

	s, format, err := decode(context.Background(), m4aHeader, tc)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 44100, int(format.SampleRate))
	assert.Equal(t, 4410, s.Len())
	assert.Equal(t, 100*time.Millisecond, format.SampleRate.D(s.Len()))
}

func TestTranscoder_Failure(t *testing.T) {
	tc, err := newTranscoder(fakeFFmpeg(t, nil), 44100, 5*time.Second)
	require.NoError(t, err)

	_, _, err = decode(context.Background(), m4aHeader, tc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTranscode))
	assert.Contains(t, err.Error(), "Invalid data found when processing input")

	// Temp files are removed on failure too.
	leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), "tubeplay_stream_*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestNewTranscoder_MissingBinary(t *testing.T) {
	_, err := newTranscoder(filepath.Join(t.TempDir(), "no-such-ffmpeg"), 44100, time.Second)
	assert.Error(t, err)
}

func TestTranscoder_RealFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	tc, err := newTranscoder("ffmpeg", 48000, 30*time.Second)
	require.NoError(t, err)

	// WAV in, resampled WAV out.
	pcm, err := tc.transcode(context.Background(), pcmWAV(t, 22050, 22050), FormatWAV)
	require.NoError(t, err)
	require.Equal(t, FormatWAV, Sniff(pcm))

	s, format, err := decodeWAV(pcm)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 48000, int(format.SampleRate))
	assert.InDelta(t, float64(time.Second), float64(format.SampleRate.D(s.Len())), float64(50*time.Millisecond))
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, audio.ListRegistered(), "speaker")

	_, err := audio.New("speaker", 1, map[string]any{"sample_rate": 10})
	assert.Error(t, err)
}
