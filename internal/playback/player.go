package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// FFPlayer renders narration through ffplay, blocking until the track ends.
type FFPlayer struct{}

// Play writes the WAV to a temp file and plays it to completion.
func (FFPlayer) Play(ctx context.Context, wav []byte) error {
	ffplayPath, err := exec.LookPath("ffplay")
	if err != nil {
		return fmt.Errorf("ffplay not found in PATH: %w", err)
	}

	tmp, err := os.CreateTemp("", "studio-preview-*.wav")
	if err != nil {
		return fmt.Errorf("create preview temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return fmt.Errorf("write preview temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preview temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffplayPath, "-autoexit", "-nodisp", "-loglevel", "quiet", tmpPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffplay: %w\noutput: %s", err, string(out))
	}
	return nil
}
