package verifier

import (
	"fmt"
	"strings"

	"github.com/xaenox/safeguard/internal/models"
)

const SystemInstruction = `You are a student-safety reviewer for a school learning platform.
A fast keyword filter flagged a learner's chat message as possibly concerning.
Judge, using the recent conversation for context, whether the message shows a
real welfare concern (self-harm, suicidal thoughts, abuse, threats of violence,
bullying or serious distress) or is a false alarm (jokes, fiction, homework
topics, figures of speech, quoting a text).

Respond with a single JSON object and nothing else:
{
    "isRealConcern": true or false,
    "concernLevel": integer 1-5 (1 = minimal, 3 = a teacher should review, 5 = imminent risk),
    "analysisExplanation": "one or two sentences for the reviewing teacher"
}`

// BuildPrompt renders the flagged message with at most the last two prior
// turns, oldest first.
func BuildPrompt(message, concernType string, recent []models.ContextTurn) string {
	if len(recent) > MaxContextTurns {
		recent = recent[len(recent)-MaxContextTurns:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Flagged category: %s\n\n", concernType)

	if len(recent) > 0 {
		sb.WriteString("Recent conversation (oldest first):\n")
		for _, turn := range recent {
			fmt.Fprintf(&sb, "[%s]: %s\n", turn.Role, turn.Content)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("Recent conversation: none\n\n")
	}

	fmt.Fprintf(&sb, "Flagged learner message:\n%s\n", message)
	return sb.String()
}
