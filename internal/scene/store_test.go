package scene

import (
	"errors"
	"sync"
	"testing"
)

func seedStore(t *testing.T, n int) *Store {
	t.Helper()
	st := NewStore()
	drafts := make([]Draft, n)
	for i := range drafts {
		drafts[i] = Draft{ID: i + 1, Description: "beat", ImagePrompt: "p", VideoPrompt: "v"}
	}
	st.Reset(drafts)
	return st
}

func TestResetAssignsOrdinals(t *testing.T) {
	st := NewStore()
	st.Reset([]Draft{{ID: 10}, {ID: 20}, {ID: 30}})

	snap := st.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, s := range snap {
		if s.Ordinal != i+1 {
			t.Errorf("scene %d ordinal = %d, want %d", s.ID, s.Ordinal, i+1)
		}
	}
}

func TestApplySuccessSetsAssetAndStateTogether(t *testing.T) {
	st := seedStore(t, 1)

	img := &ImageAsset{Data: []byte{1, 2, 3}, MIME: "image/png"}
	if err := st.Apply(1, KindImage, Result{Image: img}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	s, ok := st.Get(1)
	if !ok {
		t.Fatal("scene 1 missing")
	}
	if s.ImageState != Ready {
		t.Errorf("ImageState = %v, want Ready", s.ImageState)
	}
	if s.Image != img {
		t.Error("image asset not stored")
	}
	if s.ExportReady() {
		t.Error("scene export-ready with only one asset")
	}

	if err := st.Apply(1, KindAudio, Result{Audio: &AudioAsset{WAV: []byte{1}, Seconds: 2}}); err != nil {
		t.Fatalf("Apply audio: %v", err)
	}
	s, _ = st.Get(1)
	if !s.ExportReady() {
		t.Error("scene not export-ready with both assets Ready")
	}
}

func TestApplyFailureKeepsError(t *testing.T) {
	st := seedStore(t, 1)
	cause := errors.New("quota exhausted")

	if err := st.Apply(1, KindAudio, Result{Err: cause}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s, _ := st.Get(1)
	if s.AudioState != Failed {
		t.Errorf("AudioState = %v, want Failed", s.AudioState)
	}
	if !errors.Is(s.AudioErr, cause) {
		t.Errorf("AudioErr = %v", s.AudioErr)
	}

	// A later success clears the failure.
	if err := st.Apply(1, KindAudio, Result{Audio: &AudioAsset{WAV: []byte{1}}}); err != nil {
		t.Fatalf("Apply retry: %v", err)
	}
	s, _ = st.Get(1)
	if s.AudioState != Ready || s.AudioErr != nil {
		t.Errorf("after retry: state=%v err=%v", s.AudioState, s.AudioErr)
	}
}

func TestApplyUnknownScene(t *testing.T) {
	st := seedStore(t, 1)
	if err := st.Apply(99, KindImage, Result{}); err == nil {
		t.Error("expected error for unknown scene")
	}
	if err := st.MarkPending(99, KindImage); err == nil {
		t.Error("expected error for unknown scene")
	}
}

func TestReadySnapshotKeepsOriginalOrdinals(t *testing.T) {
	st := seedStore(t, 3)
	for _, id := range []int{1, 3} {
		st.Apply(id, KindImage, Result{Image: &ImageAsset{Data: []byte{0}}})
		st.Apply(id, KindAudio, Result{Audio: &AudioAsset{WAV: []byte{0}, Seconds: 1}})
	}

	ready := st.ReadySnapshot()
	if len(ready) != 2 {
		t.Fatalf("ready = %d scenes, want 2", len(ready))
	}
	if ready[0].Ordinal != 1 || ready[1].Ordinal != 3 {
		t.Errorf("ordinals = %d,%d; want 1,3", ready[0].Ordinal, ready[1].Ordinal)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	st := seedStore(t, 1)
	snap := st.Snapshot()
	snap[0].Description = "mutated"

	s, _ := st.Get(1)
	if s.Description != "beat" {
		t.Error("snapshot mutation leaked into store")
	}
}

func TestEditsUpdateFields(t *testing.T) {
	st := seedStore(t, 1)

	if err := st.SetDescription(1, "new narration"); err != nil {
		t.Fatalf("SetDescription: %v", err)
	}
	if err := st.SetPrompts(1, "new image prompt", ""); err != nil {
		t.Fatalf("SetPrompts: %v", err)
	}

	s, _ := st.Get(1)
	if s.Description != "new narration" {
		t.Errorf("Description = %q", s.Description)
	}
	if s.ImagePrompt != "new image prompt" {
		t.Errorf("ImagePrompt = %q", s.ImagePrompt)
	}
	if s.VideoPrompt != "v" {
		t.Errorf("VideoPrompt = %q, want unchanged", s.VideoPrompt)
	}
}

func TestConcurrentApply(t *testing.T) {
	st := seedStore(t, 20)

	var wg sync.WaitGroup
	for id := 1; id <= 20; id++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			st.Apply(id, KindImage, Result{Image: &ImageAsset{Data: []byte{byte(id)}}})
		}(id)
		go func(id int) {
			defer wg.Done()
			st.Apply(id, KindAudio, Result{Audio: &AudioAsset{WAV: []byte{byte(id)}, Seconds: 1}})
		}(id)
	}
	wg.Wait()

	for _, s := range st.Snapshot() {
		if !s.ExportReady() {
			t.Errorf("scene %d not ready after concurrent applies", s.ID)
		}
	}
}
