package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/ai-video-studio/internal/encoder"
	"github.com/fpang/ai-video-studio/internal/scene"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard
// (APPNOTE 6.3.7). Registered in init() at zstd level 12, the highest the
// Go library supports.
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// zipGroupSize bounds concurrent clip encodes during a ZIP export. Encoding
// shares one machine's ffmpeg capacity, so groups settle before the next
// group starts.
const zipGroupSize = 5

// Archive is a finished multi-clip export.
type Archive struct {
	Data    []byte
	Entries []string
}

// AllScenesZip encodes every export-ready scene and packages the clips into
// one zstd-compressed ZIP. Entries are named "<ordinal>.<ext>" using each
// scene's position in the full scene list, so a failed or unready sibling
// never shifts another scene's name. Clips that fail to encode are dropped
// from the archive; the export fails only when no clip succeeds.
func (o *Orchestrator) AllScenesZip(ctx context.Context, cb ProgressFunc) (*Archive, error) {
	if err := o.begin("zip"); err != nil {
		return nil, err
	}

	ready := o.store.ReadySnapshot()
	if len(ready) == 0 {
		o.finish("zip", ErrNotReady)
		return nil, fmt.Errorf("no export-ready scenes: %w", ErrNotReady)
	}

	o.report(cb, 0)

	clips := make([]*encoder.Clip, len(ready))
	var completed int
	var mu sync.Mutex

	for start := 0; start < len(ready); start += zipGroupSize {
		end := start + zipGroupSize
		if end > len(ready) {
			end = len(ready)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				clip, err := o.enc.EncodeScene(ctx, ready[i], o.target)
				if err != nil {
					// Dropped from the archive, siblings unaffected.
					log.Warn().
						Int("scene", ready[i].ID).
						Int("ordinal", ready[i].Ordinal).
						Err(err).
						Msg("Clip encode failed, dropping from archive")
				}

				mu.Lock()
				clips[i] = clip
				completed++
				pct := completed * 100 / len(ready)
				mu.Unlock()
				o.report(cb, pct)
				return nil
			})
		}
		g.Wait()
	}

	archive, err := packageClips(ready, clips)
	o.finish("zip", err)
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// packageClips writes the surviving clips into a ZIP keyed by original
// ordinal.
func packageClips(ready []scene.Scene, clips []*encoder.Clip) (*Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var entries []string
	for i, clip := range clips {
		if clip == nil {
			continue
		}
		name := fmt.Sprintf("%d.%s", ready[i].Ordinal, clip.Ext)

		header := &zip.FileHeader{
			Name:     name,
			Method:   zipMethodZstd,
			Modified: time.Now(),
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("create ZIP entry %s: %w", name, err)
		}
		if _, err := w.Write(clip.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write ZIP entry %s: %w", name, err)
		}
		entries = append(entries, name)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close ZIP writer: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("every clip failed to encode")
	}

	log.Info().
		Int("entries", len(entries)).
		Int("bytes", buf.Len()).
		Msg("Archive packaged")
	return &Archive{Data: buf.Bytes(), Entries: entries}, nil
}
