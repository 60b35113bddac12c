// Package export produces the session's deliverables: a single scene clip,
// a ZIP of every ready scene's clip, or one continuous video spanning all
// ready scenes. Only one export runs at a time; re-entrant requests while
// one is active are rejected without touching any encoder resource.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/compositor"
	"github.com/fpang/ai-video-studio/internal/encoder"
	"github.com/fpang/ai-video-studio/internal/scene"
)

var (
	// ErrBusy is returned when another export is already in flight.
	ErrBusy = errors.New("an export is already in progress")

	// ErrNotReady means the requested scene set has nothing export-ready.
	ErrNotReady = errors.New("scene is not ready for export")
)

// Status is the orchestrator's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusExporting
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusExporting:
		return "exporting"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ProgressFunc receives integer percentages 0-100. Reported values are
// monotonically non-decreasing within one export.
type ProgressFunc func(percent int)

// Orchestrator sequences clip encodes over the store's export-ready scenes.
type Orchestrator struct {
	store  *scene.Store
	enc    *encoder.ClipEncoder
	target compositor.Target

	mu       sync.Mutex
	status   Status
	progress int
}

// New returns an orchestrator encoding at the given frame size.
func New(store *scene.Store, enc *encoder.ClipEncoder, target compositor.Target) *Orchestrator {
	return &Orchestrator{store: store, enc: enc, target: target}
}

// Status returns the current lifecycle state and progress percentage.
func (o *Orchestrator) Status() (Status, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.progress
}

// Exporting reports whether an export is in flight. Playback is suspended
// while this is true.
func (o *Orchestrator) Exporting() bool {
	s, _ := o.Status()
	return s == StatusExporting
}

// begin claims the exclusion guard shared by all three export shapes.
func (o *Orchestrator) begin(op string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == StatusExporting {
		log.Warn().Str("operation", op).Msg("Export rejected, another is in progress")
		return ErrBusy
	}
	o.status = StatusExporting
	o.progress = 0
	return nil
}

// finish releases the guard and records the terminal state.
func (o *Orchestrator) finish(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.status = StatusFailed
		log.Warn().Str("operation", op).Err(err).Msg("Export failed")
		return
	}
	o.status = StatusDone
	o.progress = 100
	log.Info().Str("operation", op).Msg("Export complete")
}

// report forwards pct to cb, clamped so observers never see progress move
// backwards regardless of completion order.
func (o *Orchestrator) report(cb ProgressFunc, pct int) {
	o.mu.Lock()
	if pct < o.progress {
		pct = o.progress
	}
	if pct > 100 {
		pct = 100
	}
	o.progress = pct
	o.mu.Unlock()

	if cb != nil {
		cb(pct)
	}
}

// SingleScene encodes exactly one scene's clip. The scene must be
// export-ready; otherwise the call is a no-op surfaced as ErrNotReady.
func (o *Orchestrator) SingleScene(ctx context.Context, sceneID int, cb ProgressFunc) (*encoder.Clip, error) {
	if err := o.begin("single"); err != nil {
		return nil, err
	}

	scn, ok := o.store.Get(sceneID)
	if !ok || !scn.ExportReady() {
		o.finish("single", ErrNotReady)
		return nil, fmt.Errorf("scene %d: %w", sceneID, ErrNotReady)
	}

	o.report(cb, 0)
	clip, err := o.enc.EncodeScene(ctx, scn, o.target)
	if err != nil {
		o.finish("single", err)
		return nil, err
	}
	o.report(cb, 100)
	o.finish("single", nil)
	return clip, nil
}
