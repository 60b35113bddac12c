package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Script is a generated narration script, split into editable sections.
type Script struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is one structural unit of a script (intro, body point, outro).
type Section struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Text joins all section contents into the full narration script.
func (s *Script) Text() string {
	var out string
	for i, sec := range s.Sections {
		if i > 0 {
			out += "\n\n"
		}
		out += sec.Content
	}
	return out
}

// scriptThinkingBudget gives the model room to plan long-form structure
// before writing. Matches the budget the authoring flow was tuned with.
const scriptThinkingBudget int32 = 12000

// GenerateScript writes a full narration script for the given topic.
// Long-form scripts target 4500+ characters across 6+ sections; shorts
// target roughly 1200 characters.
func (g *Generator) GenerateScript(ctx context.Context, title, channelName string, shorts bool) (*Script, error) {
	form := "long-form (at least 4,500 characters including spaces)"
	directive := `- Write an extremely dense script of at least 4,500 characters.
- Explain each body section (1-6) in great detail with rich examples,
  analogies, and scientific grounding. Waste no sentence.
- Stretch every point generously so the listener is moved and informed.`
	if shorts {
		form = "shorts (around 1,200 characters)"
		directive = "Write only the essentials, around 1,200 characters, in shorts format."
	}

	prompt := fmt.Sprintf(`[Topic]: %q
[Channel name]: %s
[Format]: %s

[Core directives]:
%s

[Script structure template]:
1. Opening: build empathy and declare the topic.
2. Body (1-6 sections): long, detailed exposition with scientific grounding
   (dopamine, metacognition, etc.), analogies, and real examples.
3. Turn: a twist and deeper reflection.
4. Closing: summary and a message of comfort.

Respond with ONLY JSON: {"title", "sections": [{"id", "title", "content"}]}`,
		title, channelName, form, directive)

	budget := scriptThinkingBudget
	start := time.Now()
	resp, err := withRetry(ctx, "script", func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, ModelTextPro, genai.Text(prompt),
			&genai.GenerateContentConfig{
				ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
			})
	})
	if err != nil {
		return nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, &Error{Class: ClassUnknown, Message: "script generation returned no text"}
	}

	script, err := parseJSON[Script](text)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Sections) == 0 {
		return nil, &Error{Class: ClassUnknown, Message: "script has no sections"}
	}

	log.Info().
		Str("title", script.Title).
		Int("sections", len(script.Sections)).
		Int("chars", len(script.Text())).
		Dur("duration", time.Since(start)).
		Msg("Script generation complete")

	return &script, nil
}
