package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// SceneDraft is one storyboard beat as extracted from a script, before any
// assets are generated for it.
type SceneDraft struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`
}

// sceneStyleDirective keeps every generated image in one consistent look.
const sceneStyleDirective = `Colorful high-quality stickman style in formal
wear (suits, dress shirts), thick black outlines, expressive faces, vibrant
flat colors, clean vector illustration, strictly no text, no labels, no
names in image.`

// ExtractScenes splits a narration script into sequential storyboard scenes.
// Every sentence of the script must land in exactly one scene description —
// the extraction never summarizes or drops text. Shorts yield 10-15 scenes,
// long-form 40-60.
func (g *Generator) ExtractScenes(ctx context.Context, script string, shorts bool) ([]SceneDraft, error) {
	count := "40-60"
	if shorts {
		count = "10-15"
	}

	prompt := fmt.Sprintf(`The following is a YouTube narration script. Split
ALL of its text, without omitting a single sentence, into %s sequential
scenes forming a storyboard.

[Critical rules]:
1. Never summarize the script text.
2. The description (narration) field must contain the corresponding script
   sentences verbatim and in full.
3. Concatenating every scene's description must reproduce the original
   script.

[Image generation directive]: %s

Respond with ONLY JSON: [{"id", "description", "imagePrompt", "videoPrompt"}]
Script: %s`, count, sceneStyleDirective, script)

	start := time.Now()
	resp, err := withRetry(ctx, "scenes", func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, ModelTextPro, genai.Text(prompt), nil)
	})
	if err != nil {
		return nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, &Error{Class: ClassUnknown, Message: "scene extraction returned no text"}
	}

	drafts, err := parseJSON[[]SceneDraft](text)
	if err != nil {
		return nil, fmt.Errorf("parse scenes: %w", err)
	}

	log.Info().
		Int("scenes", len(drafts)).
		Dur("duration", time.Since(start)).
		Msg("Scene extraction complete")

	return drafts, nil
}
