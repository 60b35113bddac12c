package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-video-studio/internal/wavutil"
)

// Voices lists the prebuilt narrator voices the studio exposes.
var Voices = []string{"Charon", "Kore", "Puck", "Zephyr", "Fenrir"}

// DefaultVoice is used when no voice is chosen.
const DefaultVoice = "Charon"

// GenerateSpeech narrates text with the given prebuilt voice and returns a
// complete WAV file. The TTS model emits raw 16-bit PCM at 24 kHz, which is
// wrapped in a RIFF header here so downstream code can measure duration and
// feed it straight to the muxer.
func (g *Generator) GenerateSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = DefaultVoice
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	start := time.Now()
	resp, err := withRetry(ctx, "speech", func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, ModelSpeech, genai.Text(text), config)
	})
	if err != nil {
		return nil, err
	}

	blob := responseBlob(resp)
	if blob == nil {
		return nil, &Error{Class: ClassUnknown, Message: "speech generation returned no audio data"}
	}

	wav := wavutil.EncodePCM16(blob.Data, wavutil.DefaultSampleRate)
	dur, err := wavutil.Duration(wav)
	if err != nil {
		return nil, fmt.Errorf("measure generated audio: %w", err)
	}

	log.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Float64("seconds", dur).
		Dur("duration", time.Since(start)).
		Msg("Narration generated")

	return wav, nil
}

// GenerateNarration narrates text of any length: it splits the script into
// TTS-sized chunks at paragraph and sentence boundaries, synthesizes each,
// and joins the results into one WAV.
func (g *Generator) GenerateNarration(ctx context.Context, text, voice string) ([]byte, error) {
	chunks := SplitScript(text)
	if len(chunks) == 0 {
		return nil, &Error{Class: ClassUnknown, Message: "narration text is empty"}
	}
	if len(chunks) == 1 {
		return g.GenerateSpeech(ctx, chunks[0], voice)
	}

	wavs := make([][]byte, 0, len(chunks))
	for _, chunk := range chunks {
		wav, err := g.GenerateSpeech(ctx, chunk, voice)
		if err != nil {
			return nil, err
		}
		wavs = append(wavs, wav)
	}

	joined, err := wavutil.Concat(wavs...)
	if err != nil {
		return nil, fmt.Errorf("join narration chunks: %w", err)
	}
	return joined, nil
}
