package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Idea is one proposed video topic with the web sources that grounded it.
type Idea struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Premise string   `json:"premise"`
	Sources []Source `json:"sources,omitempty"`
}

// Source is a grounding citation returned by Google Search.
type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

const ideasPrompt = `Search for philosophy and psychology topics that were
popular on YouTube and blogs over the past week, focused on life wisdom,
relationships, family, aging, money, and classic philosophical thought
(Stoicism, Taoism, Confucianism, Buddhism, Nietzsche, Schopenhauer).

Based on the search results and real trends, generate 5 YouTube titles that
strongly draw clicks from a 50-70 year old audience. Each title must be a
striking, attention-grabbing phrase.

Output format: respond with ONLY a JSON array [{"title", "premise"}].`

// GenerateIdeas asks Gemini for trending video topics, grounded with Google
// Search. An optional keyword narrows the search.
func (g *Generator) GenerateIdeas(ctx context.Context, keyword string) ([]Idea, error) {
	prompt := ideasPrompt
	if keyword != "" {
		prompt += "\n\nAdditional keyword: " + keyword
	}

	start := time.Now()
	resp, err := withRetry(ctx, "ideas", func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, ModelTextPro, genai.Text(prompt),
			&genai.GenerateContentConfig{
				Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			})
	})
	if err != nil {
		return nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, &Error{Class: ClassUnknown, Message: "idea generation returned no text"}
	}

	type rawIdea struct {
		Title   string `json:"title"`
		Premise string `json:"premise"`
	}
	parsed, err := parseJSON[[]rawIdea](text)
	if err != nil {
		return nil, fmt.Errorf("parse ideas: %w", err)
	}

	sources := groundingSources(resp)
	ideas := make([]Idea, 0, len(parsed))
	for i, item := range parsed {
		ideas = append(ideas, Idea{
			ID:      fmt.Sprintf("idea-%d-%d", i, time.Now().UnixMilli()),
			Title:   item.Title,
			Premise: item.Premise,
			Sources: sources,
		})
	}

	log.Info().
		Int("ideas", len(ideas)).
		Int("sources", len(sources)).
		Dur("duration", time.Since(start)).
		Msg("Idea generation complete")

	return ideas, nil
}

// groundingSources extracts web citations from the response's grounding
// metadata, when Google Search was actually consulted.
func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var sources []Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources = append(sources, Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return sources
}
