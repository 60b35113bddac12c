// Package encoder turns rendered frames and narration audio into finished
// video clips. Encoding shells out to ffmpeg; the codec/container profile is
// probed once per session from a preference-ordered list, and every
// recording session releases its working directory on all exit paths.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrEncodingUnavailable means no supported codec/container combination is
// available on this machine. Fatal for the export that hit it, nothing else.
var ErrEncodingUnavailable = errors.New("no supported encoding profile available")

// Profile is one codec/container combination.
type Profile struct {
	Name       string
	Ext        string
	MIME       string
	VideoCodec string
	AudioCodec string
}

// profilePreference is ordered by compatibility: MP4/H.264/AAC plays
// everywhere, the WebM profiles are fallbacks.
var profilePreference = []Profile{
	{Name: "mp4-h264", Ext: "mp4", MIME: "video/mp4", VideoCodec: "libx264", AudioCodec: "aac"},
	{Name: "webm-vp9", Ext: "webm", MIME: "video/webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus"},
	{Name: "webm-vp8", Ext: "webm", MIME: "video/webm", VideoCodec: "libvpx", AudioCodec: "libvorbis"},
}

// DetectProfile finds ffmpeg and picks the most compatible profile its
// build supports. Returns ErrEncodingUnavailable when ffmpeg is absent or
// supports none of the preferred combinations.
func DetectProfile(ctx context.Context) (*Profile, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", ErrEncodingUnavailable)
	}

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("probe ffmpeg encoders: %w", err)
	}

	profile, err := selectProfile(string(out))
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("profile", profile.Name).
		Str("video_codec", profile.VideoCodec).
		Str("audio_codec", profile.AudioCodec).
		Msg("Encoding profile selected")
	return profile, nil
}

// selectProfile returns the first preferred profile whose codecs both
// appear in ffmpeg's encoder listing.
func selectProfile(encoders string) (*Profile, error) {
	for i := range profilePreference {
		p := &profilePreference[i]
		if strings.Contains(encoders, p.VideoCodec) && strings.Contains(encoders, p.AudioCodec) {
			return p, nil
		}
	}
	return nil, ErrEncodingUnavailable
}
