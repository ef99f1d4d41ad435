// Package download saves tracks from the backend to local files.
package download

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/k0kubun/go-ansi"
	zlog "github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/backend"
)

const fileExt = "mp3"

// ErrNoTrack is returned when there is nothing to download.
var ErrNoTrack = errors.New("no track selected")

// Downloader opens a track file download.
type Downloader interface {
	Download(ctx context.Context, t track.Track) (*backend.Download, error)
}

// Config represents saver configuration.
type Config struct {
	Dir          string
	ShowProgress bool
	// Progress is where the progress bar is drawn. Defaults to the ANSI-aware stdout.
	Progress io.Writer
}

// Saver writes downloaded tracks into a directory.
type Saver struct {
	downloader   Downloader
	dir          string
	showProgress bool
	progress     io.Writer
}

// NewSaver creates a new Saver.
func NewSaver(downloader Downloader, cfg Config) (*Saver, error) {
	if downloader == nil {
		return nil, errors.New("downloader is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("download directory is required")
	}
	progress := cfg.Progress
	if progress == nil {
		progress = ansi.NewAnsiStdout()
	}
	return &Saver{
		downloader:   downloader,
		dir:          cfg.Dir,
		showProgress: cfg.ShowProgress,
		progress:     progress,
	}, nil
}

// Dir returns the target directory.
func (s *Saver) Dir() string {
	return s.dir
}

// PathFor returns the file path a track is saved to.
func (s *Saver) PathFor(t track.Track) string {
	return filepath.Join(s.dir, t.FileName(fileExt))
}

// Save downloads t and returns the written path. Data is written to a
// ".part" file that is renamed once complete.
func (s *Saver) Save(ctx context.Context, t *track.Track) (string, error) {
	if t == nil {
		return "", ErrNoTrack
	}
	if err := t.Validate(); err != nil {
		return "", errors.Wrap(err, "invalid track")
	}

	if err := os.MkdirAll(s.dir, os.ModePerm); err != nil {
		return "", errors.Wrapf(err, "failed to create download directory %s", s.dir)
	}

	dl, err := s.downloader.Download(ctx, *t)
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %s", t.ID)
	}
	defer dl.Body.Close()

	path := s.PathFor(*t)
	partial := path + ".part"

	f, err := os.Create(partial)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", partial)
	}

	var w io.Writer = f
	var bar *progressbar.ProgressBar
	if s.showProgress {
		bar = s.newBar(dl.Size, t.DisplayName())
		w = io.MultiWriter(f, bar)
	}

	written, copyErr := io.Copy(w, dl.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partial)
		return "", errors.Wrapf(copyErr, "failed to write %s", path)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return "", errors.Wrapf(err, "failed to move download into place: %s", path)
	}

	zlog.Info().Msgf("track downloaded: id=%s path=%s bytes=%d", t.ID, path, written)
	return path, nil
}

// newBar creates a byte progress bar; size -1 renders a spinner.
func (s *Saver) newBar(size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(s.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]Downloading[reset] "+description),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(s.progress, "\n")
		}),
	)
}
