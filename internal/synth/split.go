package synth

import "strings"

var sentenceEnders = map[rune]bool{
	'。': true, '！': true, '？': true,
	'.': true, '!': true, '?': true,
}

// SplitText breaks text into segments of at most maxLen runes, cutting at
// sentence boundaries. A single sentence longer than maxLen stays whole;
// vendors tolerate moderate overruns better than mid-sentence cuts.
func SplitText(text string, maxLen int) []string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}

	var sentences []string
	start := 0
	for i, r := range runes {
		if sentenceEnders[r] {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	var segments []string
	var current strings.Builder
	currentLen := 0
	for _, s := range sentences {
		sLen := len([]rune(s))
		if currentLen > 0 && currentLen+sLen > maxLen {
			segments = append(segments, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
		current.WriteString(s)
		currentLen += sLen
	}
	if currentLen > 0 {
		segments = append(segments, strings.TrimSpace(current.String()))
	}

	return segments
}
