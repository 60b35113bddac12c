// Package gen drives all Gemini generation calls for the studio: video
// ideas, scripts, storyboard scenes, per-scene images, and narrated speech.
// Failures are classified (quota / invalid credential / transient / unknown)
// and transient ones are retried with capped exponential backoff.
package gen

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Gemini model IDs per operation. Text work uses the Pro preview for long
// high-density scripts; image and speech use the dedicated flash variants.
const (
	// ModelTextPro handles idea search, script writing, and scene
	// extraction (long structured JSON outputs).
	ModelTextPro = "gemini-3-pro-preview"

	// ModelTextFlash is the cheap model used for key validation pings.
	ModelTextFlash = "gemini-3-flash-preview"

	// ModelImage generates per-scene still images.
	ModelImage = "gemini-2.5-flash-image"

	// ModelSpeech is the TTS model; it returns raw 16-bit PCM at 24 kHz.
	ModelSpeech = "gemini-2.5-flash-preview-tts"
)

// Generator wraps a Gemini client with the studio's generation operations.
type Generator struct {
	client *genai.Client
}

// NewClient creates a Gemini API client for the given key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// New wraps an existing Gemini client.
func New(client *genai.Client) *Generator {
	return &Generator{client: client}
}

// Ping makes a minimal text call to verify the client's API key works.
// The returned error is classified, so callers can distinguish an invalid
// key from a quota problem or a network hiccup.
func (g *Generator) Ping(ctx context.Context) error {
	resp, err := g.client.Models.GenerateContent(ctx, ModelTextFlash, genai.Text("hi"), nil)
	if err != nil {
		return Classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return &Error{Class: ClassUnknown, Message: "API returned empty response"}
	}
	log.Debug().Msg("API key validated")
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				out += part.Text
			}
		}
	}
	return out
}

// responseBlob returns the first inline-data part of the response, or nil.
func responseBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}
