package speaker

import (
	"bytes"
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/osa030/tubeplay/internal/infra/audio"
)

// Format is a container format recognised from the first bytes of a stream.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP3
	FormatWAV
	FormatMP4  // ISO BMFF: m4a, mp4 audio
	FormatWebM // Matroska/WebM, usually opus or vorbis
	FormatADTS // Raw AAC
	FormatOgg
	FormatFLAC
)

// String returns the string representation of the format. It doubles as the
// file extension handed to ffmpeg.
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	case FormatMP4:
		return "m4a"
	case FormatWebM:
		return "webm"
	case FormatADTS:
		return "aac"
	case FormatOgg:
		return "ogg"
	case FormatFLAC:
		return "flac"
	default:
		return "unknown"
	}
}

// Native reports whether the format is decoded in-process without ffmpeg.
func (f Format) Native() bool {
	return f == FormatMP3 || f == FormatWAV
}

// Sniff identifies the container format of data.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xF6 == 0xF0:
		// Frame sync with layer bits 00.
		return FormatADTS
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && (data[1]>>1)&0x03 != 0:
		return FormatMP3
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatMP4
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("OggS")):
		return FormatOgg
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("fLaC")):
		return FormatFLAC
	default:
		return FormatUnknown
	}
}

// decode returns a seekable streamer for an in-memory stream. MP3 and WAV are
// decoded directly; other known containers go through tc. A nil tc leaves
// them unsupported.
func decode(ctx context.Context, data []byte, tc *transcoder) (beep.StreamSeekCloser, beep.Format, error) {
	f := Sniff(data)
	switch {
	case f == FormatMP3:
		s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			return nil, beep.Format{}, errors.Wrap(err, "failed to decode mp3")
		}
		return s, format, nil
	case f == FormatWAV:
		return decodeWAV(data)
	case f != FormatUnknown && tc != nil:
		pcm, err := tc.transcode(ctx, data, f)
		if err != nil {
			return nil, beep.Format{}, err
		}
		return decodeWAV(pcm)
	case f != FormatUnknown:
		return nil, beep.Format{}, errors.Wrapf(audio.ErrUnsupportedFormat, "%s needs ffmpeg", f)
	default:
		head := data
		if len(head) > 4 {
			head = head[:4]
		}
		return nil, beep.Format{}, errors.Wrapf(audio.ErrUnsupportedFormat, "leading bytes % x", head)
	}
}

func decodeWAV(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	s, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to decode wav")
	}
	return s, format, nil
}
