package scene

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Draft seeds one scene at segmentation time.
type Draft struct {
	ID          int
	Description string
	ImagePrompt string
	VideoPrompt string
}

// Result is the outcome of one generation job, applied to the store as a
// single command so the asset and its state change together.
type Result struct {
	Image *ImageAsset
	Audio *AudioAsset
	Err   error
}

// Store owns the session's scenes. All mutation goes through its methods;
// each (scene, kind) pair is written by at most one in-flight job, and every
// write is atomic under the store lock, so out-of-order job completion can
// never produce a half-applied update.
type Store struct {
	mu          sync.Mutex
	scenes      []*Scene
	byID        map[int]*Scene
	protagonist Protagonist
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[int]*Scene)}
}

// Reset discards all scenes and seeds the store from a fresh segmentation.
// Ordinals are assigned from list position, 1-based.
func (st *Store) Reset(drafts []Draft) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.scenes = make([]*Scene, 0, len(drafts))
	st.byID = make(map[int]*Scene, len(drafts))
	for i, d := range drafts {
		s := &Scene{
			ID:          d.ID,
			Ordinal:     i + 1,
			Description: d.Description,
			ImagePrompt: d.ImagePrompt,
			VideoPrompt: d.VideoPrompt,
		}
		st.scenes = append(st.scenes, s)
		st.byID[s.ID] = s
	}
	log.Info().Int("scenes", len(drafts)).Msg("Scene list reset")
}

// Len returns the number of scenes.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.scenes)
}

// MarkPending transitions one asset job to Pending. Returns an error for an
// unknown scene.
func (st *Store) MarkPending(sceneID int, kind AssetKind) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.byID[sceneID]
	if !ok {
		return fmt.Errorf("unknown scene %d", sceneID)
	}
	switch kind {
	case KindImage:
		s.ImageState = Pending
	case KindAudio:
		s.AudioState = Pending
	}
	return nil
}

// Apply records a job result: on success the asset handle and Ready state
// are written together; on failure the state becomes Failed and the error is
// kept for display. The last write for a (scene, kind) pair wins.
func (st *Store) Apply(sceneID int, kind AssetKind, res Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.byID[sceneID]
	if !ok {
		return fmt.Errorf("unknown scene %d", sceneID)
	}

	switch kind {
	case KindImage:
		if res.Err != nil {
			s.ImageState = Failed
			s.ImageErr = res.Err
		} else {
			s.Image = res.Image
			s.ImageState = Ready
			s.ImageErr = nil
		}
	case KindAudio:
		if res.Err != nil {
			s.AudioState = Failed
			s.AudioErr = res.Err
		} else {
			s.Audio = res.Audio
			s.AudioState = Ready
			s.AudioErr = nil
		}
	}

	log.Debug().
		Int("scene", sceneID).
		Stringer("kind", kind).
		Bool("ok", res.Err == nil).
		Msg("Job result applied")
	return nil
}

// SetDescription edits a scene's narration text.
func (st *Store) SetDescription(sceneID int, text string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[sceneID]
	if !ok {
		return fmt.Errorf("unknown scene %d", sceneID)
	}
	s.Description = text
	return nil
}

// SetPrompts edits a scene's generation directives. Empty arguments leave
// the corresponding field unchanged.
func (st *Store) SetPrompts(sceneID int, imagePrompt, videoPrompt string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[sceneID]
	if !ok {
		return fmt.Errorf("unknown scene %d", sceneID)
	}
	if imagePrompt != "" {
		s.ImagePrompt = imagePrompt
	}
	if videoPrompt != "" {
		s.VideoPrompt = videoPrompt
	}
	return nil
}

// Get returns a copy of one scene.
func (st *Store) Get(sceneID int) (Scene, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[sceneID]
	if !ok {
		return Scene{}, false
	}
	return *s, true
}

// Snapshot returns copies of all scenes in stored order. Asset byte slices
// are shared with the store and must be treated as read-only.
func (st *Store) Snapshot() []Scene {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Scene, len(st.scenes))
	for i, s := range st.scenes {
		out[i] = *s
	}
	return out
}

// ReadySnapshot returns copies of the export-ready scenes in stored order,
// ordinals intact. Exports consume this snapshot; later store mutations do
// not affect an export already in flight.
func (st *Store) ReadySnapshot() []Scene {
	st.mu.Lock()
	defer st.mu.Unlock()

	var out []Scene
	for _, s := range st.scenes {
		if s.ExportReady() {
			out = append(out, *s)
		}
	}
	return out
}

// SetProtagonist replaces the session's style anchor.
func (st *Store) SetProtagonist(p Protagonist) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.protagonist = p
}

// Protagonist returns the current style anchor.
func (st *Store) Protagonist() Protagonist {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.protagonist
}
