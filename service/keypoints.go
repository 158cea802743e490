package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// KeyPointCount is the fixed length of every key point list.
	KeyPointCount = 5

	// NoKeyPointPlaceholder fills slots no sentence could be found for.
	NoKeyPointPlaceholder = "No additional key points available."

	// KeyPointErrorSentinel replaces the list when extraction itself fails.
	KeyPointErrorSentinel = "Error extracting key points."

	minBackfillLength = 20
)

// ExtractKeyPoints returns exactly KeyPointCount sentences from text. Sentences
// found verbatim in summary come first, in text order; the rest are backfilled
// from the remaining sentences of at least 20 characters, then padded with
// NoKeyPointPlaceholder.
func ExtractKeyPoints(text, summary string) []string {
	points := make([]string, 0, KeyPointCount)
	if strings.TrimSpace(text) == "" {
		return padKeyPoints(points)
	}

	sentences := splitSentences(text)
	selected := make(map[string]bool, KeyPointCount)

	for _, s := range sentences {
		if len(points) == KeyPointCount {
			break
		}
		if selected[s] || summary == "" || !strings.Contains(summary, s) {
			continue
		}
		selected[s] = true
		points = append(points, s)
	}

	for _, s := range sentences {
		if len(points) == KeyPointCount {
			break
		}
		if selected[s] || utf8.RuneCountInString(s) < minBackfillLength {
			continue
		}
		selected[s] = true
		points = append(points, s)
	}

	for i, p := range points {
		points[i] = endWithPeriod(p)
	}
	return padKeyPoints(points)
}

// padKeyPoints fills points up to KeyPointCount with the placeholder.
func padKeyPoints(points []string) []string {
	for len(points) < KeyPointCount {
		points = append(points, NoKeyPointPlaceholder)
	}
	return points
}

// splitSentences cuts text after '.', '!' or '?' when whitespace follows.
// The punctuation stays with its sentence; empty pieces are dropped.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
		prev      rune
	)
	for i, r := range text {
		if unicode.IsSpace(r) && isTerminal(prev) {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				sentences = append(sentences, s)
			}
			start = i
		}
		prev = r
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// endWithPeriod swaps a trailing '!' or '?' for '.', or appends one.
func endWithPeriod(s string) string {
	switch {
	case strings.HasSuffix(s, "."):
		return s
	case strings.HasSuffix(s, "!"), strings.HasSuffix(s, "?"):
		return s[:len(s)-1] + "."
	default:
		return s + "."
	}
}
