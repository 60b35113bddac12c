package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/compositor"
	"github.com/fpang/ai-video-studio/internal/gen"
	"github.com/fpang/ai-video-studio/internal/scene"
)

// ErrAssetMissing means a scene was handed to the encoder without both of
// its assets in Ready state. This is a caller contract violation and is
// rejected before any recording resource is opened.
var ErrAssetMissing = errors.New("scene is missing a generated asset")

// State tracks one encode operation's lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// finalizeGrace bounds how long an encode may run past its audio duration
// before the operation is failed and the session released. Guards against a
// wedged ffmpeg stalling an export forever.
const finalizeGrace = 30 * time.Second

// ClipEncoder produces one clip per export-ready scene.
type ClipEncoder struct {
	opener SessionOpener
}

// New returns a ClipEncoder that records through opener.
func New(opener SessionOpener) *ClipEncoder {
	return &ClipEncoder{opener: opener}
}

// OpenSession opens a raw recording session for callers that span multiple
// scenes in one clip (the continuous export).
func (e *ClipEncoder) OpenSession(target compositor.Target) (RecordingSession, error) {
	return e.opener.Open(target)
}

// SceneInputs validates a scene's assets and renders its frame. It opens no
// recording resources, so missing assets are rejected with ErrAssetMissing
// before anything needs releasing.
func SceneInputs(scn scene.Scene, target compositor.Target) (*image.RGBA, []byte, error) {
	if scn.ImageState != scene.Ready || scn.Image == nil {
		return nil, nil, fmt.Errorf("scene %d image: %w", scn.ID, ErrAssetMissing)
	}
	if scn.AudioState != scene.Ready || scn.Audio == nil {
		return nil, nil, fmt.Errorf("scene %d audio: %w", scn.ID, ErrAssetMissing)
	}

	img, _, err := image.Decode(bytes.NewReader(scn.Image.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode scene %d image: %w", scn.ID, err)
	}
	frame, err := compositor.Render(img, target)
	if err != nil {
		return nil, nil, fmt.Errorf("render scene %d frame: %w", scn.ID, err)
	}
	return frame, scn.Audio.WAV, nil
}

// AudioContext derives a deadline from the segment's audio duration plus a
// fixed grace period.
func AudioContext(ctx context.Context, seconds float64) (context.Context, context.CancelFunc) {
	d := time.Duration(seconds*float64(time.Second)) + finalizeGrace
	return context.WithTimeout(ctx, d)
}

// EncodeScene records one scene into a finished clip. The session is
// released on every path: Stop releases it on success and on finalize
// failure, Abort releases it when recording fails.
func (e *ClipEncoder) EncodeScene(ctx context.Context, scn scene.Scene, target compositor.Target) (*Clip, error) {
	frame, wav, err := SceneInputs(scn, target)
	if err != nil {
		return nil, err
	}

	sess, err := e.opener.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open recording session: %w", err)
	}

	state := StateRecording
	log.Debug().Int("scene", scn.ID).Stringer("state", state).Msg("Encode started")

	segCtx, cancel := AudioContext(ctx, scn.Audio.Seconds)
	err = sess.AppendSegment(segCtx, frame, wav)
	cancel()
	if err != nil {
		sess.Abort()
		log.Warn().Int("scene", scn.ID).Stringer("state", StateFailed).Err(err).Msg("Encode failed")
		return nil, classifyStall(fmt.Errorf("record scene %d: %w", scn.ID, err))
	}

	state = StateFinalizing
	log.Debug().Int("scene", scn.ID).Stringer("state", state).Msg("Finalizing clip")

	clip, err := sess.Stop(ctx)
	if err != nil {
		log.Warn().Int("scene", scn.ID).Stringer("state", StateFailed).Err(err).Msg("Encode failed")
		return nil, fmt.Errorf("finalize scene %d: %w", scn.ID, err)
	}

	log.Info().
		Int("scene", scn.ID).
		Stringer("state", StateDone).
		Float64("seconds", clip.Seconds).
		Int("bytes", len(clip.Data)).
		Msg("Clip encoded")
	return clip, nil
}

// classifyStall marks deadline expiries as transient so callers can retry
// or surface them consistently with generation failures.
func classifyStall(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &gen.Error{Class: gen.ClassTransient, Message: "encode stalled past audio duration", Err: err}
	}
	return err
}
