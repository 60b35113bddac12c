package gen

import "strings"

// maxSpeechChunk is the largest text block sent to the TTS model in one
// call. Longer scripts are split at paragraph and sentence boundaries.
const maxSpeechChunk = 1000

// SplitScript breaks text into chunks no longer than maxSpeechChunk runes,
// preferring paragraph breaks and falling back to sentence boundaries.
// Whitespace-only chunks are dropped.
func SplitScript(text string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxSpeechChunk {
			flush()
		}

		if len(para) <= maxSpeechChunk {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}

		// Paragraph alone exceeds the limit: split on sentences.
		flush()
		for _, sentence := range splitSentences(para) {
			if current.Len() > 0 && current.Len()+len(sentence)+1 > maxSpeechChunk {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
		}
		flush()
	}
	flush()

	return chunks
}

// splitSentences breaks text after terminal punctuation. A sentence longer
// than maxSpeechChunk is kept whole; the TTS call will still accept it.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume trailing quote marks with the sentence.
		end := i + 1
		for end < len(runes) && (runes[end] == '"' || runes[end] == '\'' || runes[end] == ')') {
			end++
		}
		if end < len(runes) && runes[end] != ' ' && runes[end] != '\n' {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
