package gen

import (
	"reflect"
	"testing"
)

func TestParseJSONObject(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"bare", `{"title":"hello","count":3}`},
		{"fenced", "```json\n{\"title\":\"hello\",\"count\":3}\n```"},
		{"bare fence", "```\n{\"title\":\"hello\",\"count\":3}\n```"},
		{"leading prose", "Here is the result:\n{\"title\":\"hello\",\"count\":3}"},
		{"trailing prose", `{"title":"hello","count":3}` + "\nHope that helps!"},
	}

	want := payload{Title: "hello", Count: 3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseJSON[payload](tt.raw)
			if err != nil {
				t.Fatalf("parseJSON: %v", err)
			}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseJSONArray(t *testing.T) {
	raw := "```json\n[{\"id\":1},{\"id\":2}]\n```"
	got, err := parseJSON[[]struct {
		ID int `json:"id"`
	}](raw)
	if err != nil {
		t.Fatalf("parseJSON: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no JSON", "I could not produce an answer."},
		{"unterminated", `{"title": "hel`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseJSON[map[string]any](tt.raw); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExtractJSONPrefersEarlierDelimiter(t *testing.T) {
	got, err := extractJSON(`prefix [1, 2, {"a": 3}] suffix`)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	want := `[1, 2, {"a": 3}]`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSplitScriptShortTextSingleChunk(t *testing.T) {
	chunks := SplitScript("Just one short paragraph.")
	if !reflect.DeepEqual(chunks, []string{"Just one short paragraph."}) {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestSplitScriptRespectsLimit(t *testing.T) {
	para := ""
	for i := 0; i < 30; i++ {
		para += "This sentence pads the paragraph out to a meaningful length for splitting. "
	}
	chunks := SplitScript(para + "\n\n" + para)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > maxSpeechChunk {
			t.Errorf("chunk %d is %d bytes, exceeds %d", i, len(c), maxSpeechChunk)
		}
		if c != "" && c[len(c)-1] == ' ' {
			t.Errorf("chunk %d has trailing space", i)
		}
	}

	// No narration text may be lost in the split.
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	if total < 2*len(para)*9/10 {
		t.Errorf("chunks total %d bytes, original %d", total, 2*len(para))
	}
}

func TestSplitScriptDropsEmptyParagraphs(t *testing.T) {
	chunks := SplitScript("First.\n\n\n\n   \n\nSecond.")
	if !reflect.DeepEqual(chunks, []string{"First.\n\nSecond."}) {
		t.Errorf("chunks = %q", chunks)
	}
}
