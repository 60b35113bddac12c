package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Aspect ratios supported by the image model. Shorts use the tall ratio,
// long-form the wide one.
const (
	AspectTall = "9:16"
	AspectWide = "16:9"
)

// ImageRequest describes one scene image to generate.
type ImageRequest struct {
	// Prompt is the scene-specific visual description.
	Prompt string

	// AspectRatio is AspectTall or AspectWide.
	AspectRatio string

	// StyleAnchor, when set, is a character/style sheet description that
	// every scene image must stay consistent with.
	StyleAnchor string

	// Reference is an optional prior image (typically the protagonist
	// anchor) passed to the model for visual consistency.
	Reference []byte

	// ReferenceMIME is the MIME type of Reference, e.g. "image/png".
	ReferenceMIME string
}

// GenerateImage renders one scene still. The prompt is assembled from a
// fixed style block, the scene description, and an optional character
// anchor, so the whole storyboard shares one visual identity.
func (g *Generator) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, string, error) {
	prompt := fmt.Sprintf("[STYLE]: %s\n\n[SCENE]: %s", sceneStyleDirective, req.Prompt)
	if req.StyleAnchor != "" {
		prompt += "\n\n[CHARACTERS]: " + req.StyleAnchor +
			"\nKeep all recurring characters visually identical to their prior appearances."
	}

	parts := []*genai.Part{{Text: prompt}}
	if len(req.Reference) > 0 {
		mime := req.ReferenceMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: req.Reference},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if req.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}

	start := time.Now()
	resp, err := withRetry(ctx, "image", func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, ModelImage, contents, config)
	})
	if err != nil {
		return nil, "", err
	}

	blob := responseBlob(resp)
	if blob == nil {
		return nil, "", &Error{Class: ClassUnknown, Message: "image generation returned no image data"}
	}

	log.Debug().
		Int("bytes", len(blob.Data)).
		Str("mime", blob.MIMEType).
		Dur("duration", time.Since(start)).
		Msg("Scene image generated")

	return blob.Data, blob.MIMEType, nil
}
