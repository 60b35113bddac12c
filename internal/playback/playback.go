// Package playback previews the storyboard: a cursor walks the export-ready
// scenes once, advancing when each scene's narration finishes. Scenes with
// no usable audio advance on a fixed fallback timer instead. Preview never
// touches the encoder and is suspended while an export drives the surface.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/scene"
)

// fallbackAdvance substitutes for audio-driven timing when a scene has no
// playable narration.
const fallbackAdvance = 2500 * time.Millisecond

var (
	// ErrPlaying is returned when Play is called during an active pass.
	ErrPlaying = errors.New("playback already running")

	// ErrSuspended is returned while an export owns the preview surface.
	ErrSuspended = errors.New("playback suspended during export")
)

// AudioPlayer renders one narration track and returns when it ends.
type AudioPlayer interface {
	Play(ctx context.Context, wav []byte) error
}

// FrameFunc receives each scene as the cursor reaches it.
type FrameFunc func(scn scene.Scene)

// Controller runs preview passes over the store's ready scenes.
type Controller struct {
	store     *scene.Store
	player    AudioPlayer
	suspended func() bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error

	stop    chan struct{}
	playing bool
	cursor  int
}

// New returns a stopped controller. suspended may be nil.
func New(store *scene.Store, player AudioPlayer, suspended func() bool) *Controller {
	return &Controller{
		store:     store,
		player:    player,
		suspended: suspended,
		sleep:     sleepCtx,
	}
}

// Cursor returns the index (within the ready subset) of the scene most
// recently shown.
func (c *Controller) Cursor() int { return c.cursor }

// Playing reports whether a pass is active.
func (c *Controller) Playing() bool { return c.playing }

// Stop ends the current pass after the active scene finishes.
func (c *Controller) Stop() {
	if c.playing {
		close(c.stop)
	}
}

// Play walks every export-ready scene once, calling onFrame as each scene
// becomes current, then resets the cursor to the first scene and returns.
// There is no auto-loop past one full pass.
func (c *Controller) Play(ctx context.Context, onFrame FrameFunc) error {
	if c.playing {
		return ErrPlaying
	}
	if c.suspended != nil && c.suspended() {
		return ErrSuspended
	}

	ready := c.store.ReadySnapshot()
	if len(ready) == 0 {
		return errors.New("no scenes ready for preview")
	}

	c.playing = true
	c.stop = make(chan struct{})
	defer func() {
		c.playing = false
		c.cursor = 0
	}()

	for i, scn := range ready {
		select {
		case <-c.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.cursor = i
		if onFrame != nil {
			onFrame(scn)
		}

		if scn.Audio != nil && len(scn.Audio.WAV) > 0 {
			if err := c.player.Play(ctx, scn.Audio.WAV); err != nil {
				log.Warn().Int("scene", scn.ID).Err(err).Msg("Preview audio failed, using fallback timing")
				if err := c.sleep(ctx, fallbackAdvance); err != nil {
					return err
				}
			}
		} else {
			if err := c.sleep(ctx, fallbackAdvance); err != nil {
				return err
			}
		}
	}

	log.Debug().Int("scenes", len(ready)).Msg("Preview pass complete")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
