package assistant

import (
	"strings"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
)

const textPartType = "output_text"

// ExtractReply locates the most recent assistant-authored entry in the
// run's output (ties broken by latest creation timestamp), takes its
// first text part and strips inline citation annotations by literal
// substring removal.
func ExtractReply(output []OutputItem) (string, error) {
	if output == nil {
		return "", apperr.MalformedResponse("invalid response payload: expected output[]")
	}

	best := -1
	for i, item := range output {
		if item.Role != "assistant" {
			continue
		}
		// Strictly greater: among equal timestamps the earliest entry
		// stays the winner.
		if best == -1 || item.CreatedAt > output[best].CreatedAt {
			best = i
		}
	}
	if best == -1 {
		return "", apperr.MalformedResponse("no assistant messages found in response")
	}

	for _, part := range output[best].Content {
		if part.Type != textPartType || part.Text == "" {
			continue
		}
		return stripAnnotations(part.Text, part.Annotations), nil
	}
	return "", apperr.MalformedResponse("assistant message does not contain text content")
}

func stripAnnotations(text string, annotations []Annotation) string {
	for _, a := range annotations {
		if a.Text == "" {
			continue
		}
		text = strings.ReplaceAll(text, a.Text, "")
	}
	return strings.TrimSpace(text)
}
