package speaker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrTranscode is returned when ffmpeg fails to convert a stream.
var ErrTranscode = errors.New("transcode failed")

// ffmpegError wraps ffmpeg command errors with the command line and its output.
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s (command: %s, output: %s)", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	out := string(output)
	if len(out) > 500 {
		out = out[:500] + "..."
	}
	return errors.Mark(&ffmpegError{cmd: cmdStr, output: out, wrapped: err}, ErrTranscode)
}

// transcoder converts containers beep cannot decode (m4a, webm, aac, ogg,
// flac) into 16-bit stereo PCM WAV at the device sample rate.
type transcoder struct {
	path       string
	sampleRate int
	timeout    time.Duration
}

// newTranscoder resolves the ffmpeg binary. It fails if path is not executable.
func newTranscoder(path string, sampleRate int, timeout time.Duration) (*transcoder, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ffmpeg not found at %q", path)
	}
	return &transcoder{path: resolved, sampleRate: sampleRate, timeout: timeout}, nil
}

// transcode runs ffmpeg over data. Input and output go through temp files:
// mp4 needs a seekable input and WAV headers need a seekable output.
func (t *transcoder) transcode(ctx context.Context, data []byte, f Format) ([]byte, error) {
	inPath, err := writeTempFile("tubeplay_stream_*."+f.String(), data)
	if err != nil {
		return nil, err
	}
	defer os.Remove(inPath)

	outPath, err := writeTempFile("tubeplay_pcm_*.wav", nil)
	if err != nil {
		return nil, err
	}
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.path,
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inPath,
		"-vn",
		"-map", "0:a:0",
		"-ac", "2",
		"-ar", strconv.Itoa(t.sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Mark(errors.Wrapf(ctx.Err(), "transcode %s", f), ErrTranscode)
		}
		return nil, newFFmpegError(cmd, output, err)
	}

	pcm, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read transcoded audio")
	}
	if len(pcm) == 0 {
		return nil, errors.Mark(errors.Newf("ffmpeg produced no audio for %s input", f), ErrTranscode)
	}

	zlog.Debug().Msgf("speaker: transcoded: format=%s in_bytes=%d out_bytes=%d elapsed=%s", f, len(data), len(pcm), time.Since(start))
	return pcm, nil
}

// writeTempFile creates a temp file matching pattern with data as its contents
// and returns its path.
func writeTempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, "failed to write temporary file")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "failed to close temporary file")
	}
	return path, nil
}
