// Package alert notifies the responsible teacher about a persisted flag.
package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/safeguard/internal/models"
)

// MaxExcerptRunes bounds how much of the student's message leaves the system.
const MaxExcerptRunes = 200

// Dispatcher delivers one alert. Send reports success and never returns an
// error; failures are logged by the implementation and not retried.
type Dispatcher interface {
	Send(ctx context.Context, a models.Alert) bool
}

// Excerpt trims message to MaxExcerptRunes runes, marking the cut with an ellipsis.
func Excerpt(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= MaxExcerptRunes {
		return message
	}
	return string(runes[:MaxExcerptRunes]) + "…"
}

func subject(a models.Alert) string {
	return fmt.Sprintf("Student safety concern (level %d): %s", a.ConcernLevel, a.ConcernType)
}

func plainBody(a models.Alert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A message in %s may need your attention.\n\n", a.RoomName)
	fmt.Fprintf(&sb, "Student: %s\n", a.StudentDisplayName)
	fmt.Fprintf(&sb, "Concern: %s\n", a.ConcernType)
	fmt.Fprintf(&sb, "Level: %d of 5\n\n", a.ConcernLevel)
	fmt.Fprintf(&sb, "Message:\n%s\n\n", a.MessageExcerpt)
	fmt.Fprintf(&sb, "Review: %s\n", a.ReviewURL)
	return sb.String()
}
