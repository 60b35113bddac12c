package export

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/encoder"
)

// ContinuousVideo encodes all export-ready scenes back-to-back into one
// clip through a single shared recording session. Segment order is strictly
// the stored scene order, and each segment spans exactly its scene's audio
// duration. Every scene's inputs are validated and rendered before the
// session opens, so a bad asset fails the export with nothing to release.
func (o *Orchestrator) ContinuousVideo(ctx context.Context, cb ProgressFunc) (*encoder.Clip, error) {
	if err := o.begin("continuous"); err != nil {
		return nil, err
	}

	ready := o.store.ReadySnapshot()
	if len(ready) == 0 {
		o.finish("continuous", ErrNotReady)
		return nil, fmt.Errorf("no export-ready scenes: %w", ErrNotReady)
	}

	frames := make([]*image.RGBA, len(ready))
	audio := make([][]byte, len(ready))
	for i, scn := range ready {
		frame, wav, err := encoder.SceneInputs(scn, o.target)
		if err != nil {
			o.finish("continuous", err)
			return nil, err
		}
		frames[i] = frame
		audio[i] = wav
	}

	sess, err := o.enc.OpenSession(o.target)
	if err != nil {
		wrapped := fmt.Errorf("open recording session: %w", err)
		o.finish("continuous", wrapped)
		return nil, wrapped
	}

	o.report(cb, 0)
	for i, scn := range ready {
		segCtx, cancel := encoder.AudioContext(ctx, scn.Audio.Seconds)
		err := sess.AppendSegment(segCtx, frames[i], audio[i])
		cancel()
		if err != nil {
			sess.Abort()
			wrapped := fmt.Errorf("record scene %d: %w", scn.ID, err)
			o.finish("continuous", wrapped)
			return nil, wrapped
		}

		log.Debug().
			Int("scene", scn.ID).
			Int("segment", i+1).
			Int("of", len(ready)).
			Msg("Continuous segment recorded")
		// Hold the last step of progress for finalization.
		o.report(cb, (i+1)*99/len(ready))
	}

	clip, err := sess.Stop(ctx)
	if err != nil {
		wrapped := fmt.Errorf("finalize continuous clip: %w", err)
		o.finish("continuous", wrapped)
		return nil, wrapped
	}

	o.report(cb, 100)
	o.finish("continuous", nil)
	return clip, nil
}
