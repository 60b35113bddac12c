package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/fpang/ai-video-studio/internal/compositor"
	"github.com/fpang/ai-video-studio/internal/encoder"
	"github.com/fpang/ai-video-studio/internal/scene"
	"github.com/fpang/ai-video-studio/internal/wavutil"
)

func init() {
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			panic(err)
		}
		return zr.IOReadCloser()
	})
}

// fakeSession accumulates segment durations in place of running ffmpeg.
type fakeSession struct {
	opener   *fakeOpener
	mu       sync.Mutex
	segments []float64
	aborted  bool

	// failSeconds makes AppendSegment fail for the segment whose audio has
	// this exact duration.
	failSeconds float64

	// block, when set, stalls AppendSegment until released.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSession) AppendSegment(ctx context.Context, frame image.Image, wav []byte) error {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}

	sec, err := wavutil.Duration(wav)
	if err != nil {
		return err
	}
	if f.failSeconds != 0 && sec == f.failSeconds {
		return errors.New("segment encode failed")
	}
	f.mu.Lock()
	f.segments = append(f.segments, sec)
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Stop(ctx context.Context) (*encoder.Clip, error) {
	var total float64
	for _, s := range f.segments {
		total += s
	}
	return &encoder.Clip{
		Data:    []byte(fmt.Sprintf("clip-%.1f", total)),
		Ext:     "mp4",
		MIME:    "video/mp4",
		Seconds: total,
	}, nil
}

func (f *fakeSession) Abort() { f.aborted = true }

type fakeOpener struct {
	mu       sync.Mutex
	opens    int
	sessions []*fakeSession

	failSeconds float64
	block       chan struct{}
	started     chan struct{}
}

func (f *fakeOpener) Open(compositor.Target) (encoder.RecordingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	s := &fakeSession{
		opener:      f,
		failSeconds: f.failSeconds,
		block:       f.block,
		started:     f.started,
	}
	f.started = nil
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeOpener) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 36))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// newStore seeds n scenes; readySeconds maps scene id to its audio duration
// for the scenes that should be export-ready.
func newStore(t *testing.T, n int, readySeconds map[int]float64) *scene.Store {
	t.Helper()
	st := scene.NewStore()
	drafts := make([]scene.Draft, n)
	for i := range drafts {
		drafts[i] = scene.Draft{ID: i + 1, Description: "beat"}
	}
	st.Reset(drafts)

	img := pngBytes(t)
	for id, sec := range readySeconds {
		pcm := make([]byte, int(sec*float64(wavutil.DefaultSampleRate))*2)
		wav := wavutil.EncodePCM16(pcm, wavutil.DefaultSampleRate)
		st.Apply(id, scene.KindImage, scene.Result{Image: &scene.ImageAsset{Data: img, MIME: "image/png"}})
		st.Apply(id, scene.KindAudio, scene.Result{Audio: &scene.AudioAsset{WAV: wav, Seconds: sec}})
	}
	return st
}

func newOrchestrator(t *testing.T, st *scene.Store, opener *fakeOpener) *Orchestrator {
	t.Helper()
	return New(st, encoder.New(opener), compositor.TargetWide)
}

func TestAllScenesZipUsesOriginalOrdinals(t *testing.T) {
	// Scenes 1 and 3 ready, 2 not: entries must be 1.mp4 and 3.mp4,
	// never renumbered.
	st := newStore(t, 3, map[int]float64{1: 1, 3: 1})
	o := newOrchestrator(t, st, &fakeOpener{})

	archive, err := o.AllScenesZip(context.Background(), nil)
	if err != nil {
		t.Fatalf("AllScenesZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"1.mp4", "3.mp4"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("entries = %v, want %v", names, want)
	}

	// Entry content survives the zstd round trip.
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("clip-")) {
		t.Errorf("entry content = %q", data)
	}
}

func TestAllScenesZipDropsFailedClips(t *testing.T) {
	st := newStore(t, 3, map[int]float64{1: 1, 2: 2, 3: 3})
	opener := &fakeOpener{failSeconds: 2}
	o := newOrchestrator(t, st, opener)

	archive, err := o.AllScenesZip(context.Background(), nil)
	if err != nil {
		t.Fatalf("AllScenesZip: %v", err)
	}
	sort.Strings(archive.Entries)
	if len(archive.Entries) != 2 || archive.Entries[0] != "1.mp4" || archive.Entries[1] != "3.mp4" {
		t.Errorf("entries = %v, want [1.mp4 3.mp4]", archive.Entries)
	}
}

func TestAllScenesZipFailsWhenNothingEncodes(t *testing.T) {
	st := newStore(t, 1, map[int]float64{1: 2})
	o := newOrchestrator(t, st, &fakeOpener{failSeconds: 2})

	if _, err := o.AllScenesZip(context.Background(), nil); err == nil {
		t.Fatal("expected error when every clip fails")
	}
	if status, _ := o.Status(); status != StatusFailed {
		t.Errorf("status = %v, want failed", status)
	}
}

func TestAllScenesZipProgressMonotone(t *testing.T) {
	st := newStore(t, 7, map[int]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 1, 7: 1})
	o := newOrchestrator(t, st, &fakeOpener{})

	var mu sync.Mutex
	var reported []int
	_, err := o.AllScenesZip(context.Background(), func(pct int) {
		mu.Lock()
		reported = append(reported, pct)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("AllScenesZip: %v", err)
	}

	for i := 1; i < len(reported); i++ {
		if reported[i] < reported[i-1] {
			t.Fatalf("progress decreased: %v", reported)
		}
	}
	if last := reported[len(reported)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestSingleSceneNotReadyIsNoOp(t *testing.T) {
	st := newStore(t, 2, map[int]float64{1: 1})
	opener := &fakeOpener{}
	o := newOrchestrator(t, st, opener)

	if _, err := o.SingleScene(context.Background(), 2, nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
	if opener.openCount() != 0 {
		t.Errorf("opens = %d, want 0", opener.openCount())
	}
	// Guard released after the rejected call.
	if _, err := o.SingleScene(context.Background(), 1, nil); err != nil {
		t.Errorf("SingleScene after no-op: %v", err)
	}
}

func TestExportMutualExclusion(t *testing.T) {
	st := newStore(t, 1, map[int]float64{1: 1})
	opener := &fakeOpener{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	started := opener.started
	o := newOrchestrator(t, st, opener)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.AllScenesZip(context.Background(), nil)
	}()

	<-started
	if _, err := o.SingleScene(context.Background(), 1, nil); !errors.Is(err, ErrBusy) {
		t.Errorf("SingleScene during zip err = %v, want ErrBusy", err)
	}
	if _, err := o.ContinuousVideo(context.Background(), nil); !errors.Is(err, ErrBusy) {
		t.Errorf("ContinuousVideo during zip err = %v, want ErrBusy", err)
	}
	if opener.openCount() != 1 {
		t.Errorf("opens = %d; rejected exports must not open sessions", opener.openCount())
	}

	close(opener.block)
	<-done

	if _, err := o.SingleScene(context.Background(), 1, nil); err != nil {
		t.Errorf("SingleScene after zip finished: %v", err)
	}
}

func TestContinuousVideoSharedSessionInOrder(t *testing.T) {
	st := newStore(t, 3, map[int]float64{1: 1, 2: 2, 3: 3})
	opener := &fakeOpener{}
	o := newOrchestrator(t, st, opener)

	clip, err := o.ContinuousVideo(context.Background(), nil)
	if err != nil {
		t.Fatalf("ContinuousVideo: %v", err)
	}
	if opener.openCount() != 1 {
		t.Fatalf("opens = %d, want exactly one shared session", opener.openCount())
	}

	sess := opener.sessions[0]
	wantOrder := []float64{1, 2, 3}
	if len(sess.segments) != 3 {
		t.Fatalf("segments = %v", sess.segments)
	}
	for i, sec := range sess.segments {
		if sec != wantOrder[i] {
			t.Errorf("segment %d duration = %v, want %v (stored order)", i, sec, wantOrder[i])
		}
	}
	if clip.Seconds != 6 {
		t.Errorf("clip duration = %v, want 6", clip.Seconds)
	}
}

func TestContinuousVideoAbortsSessionOnSegmentFailure(t *testing.T) {
	st := newStore(t, 2, map[int]float64{1: 1, 2: 2})
	opener := &fakeOpener{failSeconds: 2}
	o := newOrchestrator(t, st, opener)

	if _, err := o.ContinuousVideo(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if !opener.sessions[0].aborted {
		t.Error("shared session not released after failure")
	}
	if status, _ := o.Status(); status != StatusFailed {
		t.Errorf("status = %v, want failed", status)
	}
}

func TestContinuousVideoNoReadyScenes(t *testing.T) {
	st := newStore(t, 2, nil)
	opener := &fakeOpener{}
	o := newOrchestrator(t, st, opener)

	if _, err := o.ContinuousVideo(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
	if opener.openCount() != 0 {
		t.Errorf("opens = %d, want 0", opener.openCount())
	}
}
