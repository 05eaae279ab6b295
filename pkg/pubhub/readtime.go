package pubhub

import "strings"

const (
	baseReadMinutes = 2
	wordsPerMinute  = 180
)

// readTime estimates reading time in minutes from the attached text
// payloads: a fixed base plus one minute per 180 whitespace-delimited
// words, integer division. Non-text items contribute nothing, so a
// publication with no text content reads as the base.
func readTime(texts []string) int {
	minutes := baseReadMinutes
	for _, t := range texts {
		minutes += len(strings.Fields(t)) / wordsPerMinute
	}
	return minutes
}
