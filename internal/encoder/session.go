package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/compositor"
	"github.com/fpang/ai-video-studio/internal/wavutil"
)

// Fixed encoding parameters. Video bitrate depends on orientation; audio
// bitrate and frame rate are the same for every shape.
const (
	FrameRate    = 30
	AudioBitrate = "96k"

	bitrateWide = "2500k"
	bitrateTall = "2000k"
)

// VideoBitrate returns the target video bitrate for a frame size.
func VideoBitrate(t compositor.Target) string {
	if t.Height > t.Width {
		return bitrateTall
	}
	return bitrateWide
}

// Clip is one finished encoded audiovisual unit.
type Clip struct {
	Data    []byte
	Ext     string
	MIME    string
	Seconds float64
}

// RecordingSession accumulates frame+audio segments and muxes them into one
// clip. Stop and Abort both release the session's resources; release
// happens exactly once regardless of which paths run.
type RecordingSession interface {
	// AppendSegment records one still frame held for the full duration of
	// the WAV audio.
	AppendSegment(ctx context.Context, frame image.Image, wav []byte) error

	// Stop concatenates all appended segments into a single clip and
	// releases the session.
	Stop(ctx context.Context) (*Clip, error)

	// Abort releases the session without producing a clip.
	Abort()
}

// SessionOpener creates recording sessions. Tests substitute a fake to
// observe open/release behaviour without ffmpeg.
type SessionOpener interface {
	Open(target compositor.Target) (RecordingSession, error)
}

// FFmpegOpener opens ffmpeg-backed sessions using a detected profile.
type FFmpegOpener struct {
	Profile *Profile
}

// Open creates a session with a private working directory.
func (o *FFmpegOpener) Open(target compositor.Target) (RecordingSession, error) {
	if o.Profile == nil {
		return nil, ErrEncodingUnavailable
	}
	dir, err := os.MkdirTemp("", "studio-clip-*")
	if err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &ffmpegSession{profile: o.Profile, target: target, dir: dir}, nil
}

// ffmpegSession encodes each segment to its own file in the working
// directory, then concatenates them stream-copy on Stop.
type ffmpegSession struct {
	profile  *Profile
	target   compositor.Target
	dir      string
	segments []string
	seconds  float64
	released bool
}

func (s *ffmpegSession) AppendSegment(ctx context.Context, frame image.Image, wav []byte) error {
	if s.released {
		return errors.New("recording session already released")
	}

	seconds, err := wavutil.Duration(wav)
	if err != nil {
		return fmt.Errorf("segment audio: %w", err)
	}

	n := len(s.segments)
	imgPath := filepath.Join(s.dir, fmt.Sprintf("frame-%03d.png", n))
	wavPath := filepath.Join(s.dir, fmt.Sprintf("audio-%03d.wav", n))
	outPath := filepath.Join(s.dir, fmt.Sprintf("segment-%03d.%s", n, s.profile.Ext))

	imgFile, err := os.Create(imgPath)
	if err != nil {
		return fmt.Errorf("write segment frame: %w", err)
	}
	if err := png.Encode(imgFile, frame); err != nil {
		imgFile.Close()
		return fmt.Errorf("encode segment frame: %w", err)
	}
	if err := imgFile.Close(); err != nil {
		return fmt.Errorf("write segment frame: %w", err)
	}
	if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
		return fmt.Errorf("write segment audio: %w", err)
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", FrameRate),
		"-i", imgPath,
		"-i", wavPath,
		"-t", fmt.Sprintf("%.3f", seconds),
		"-r", fmt.Sprintf("%d", FrameRate),
		"-c:v", s.profile.VideoCodec,
		"-b:v", VideoBitrate(s.target),
		"-pix_fmt", "yuv420p",
		"-c:a", s.profile.AudioCodec,
		"-b:a", AudioBitrate,
		"-shortest",
		outPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("encode segment: %w\noutput: %s", err, string(out))
	}

	s.segments = append(s.segments, outPath)
	s.seconds += seconds
	log.Debug().
		Int("segment", n).
		Float64("seconds", seconds).
		Msg("Segment recorded")
	return nil
}

func (s *ffmpegSession) Stop(ctx context.Context) (*Clip, error) {
	defer s.release()

	if s.released {
		return nil, errors.New("recording session already released")
	}
	if len(s.segments) == 0 {
		return nil, errors.New("no segments recorded")
	}

	listPath := filepath.Join(s.dir, "inputs.txt")
	var list string
	for _, p := range s.segments {
		list += fmt.Sprintf("file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return nil, fmt.Errorf("write concat list: %w", err)
	}

	outPath := filepath.Join(s.dir, "clip."+s.profile.Ext)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("concatenate segments: %w\noutput: %s", err, string(out))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}

	return &Clip{
		Data:    data,
		Ext:     s.profile.Ext,
		MIME:    s.profile.MIME,
		Seconds: s.seconds,
	}, nil
}

func (s *ffmpegSession) Abort() {
	s.release()
}

// release removes the working directory. Idempotent.
func (s *ffmpegSession) release() {
	if s.released {
		return
	}
	s.released = true
	if err := os.RemoveAll(s.dir); err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("Failed to remove session dir")
	}
}
