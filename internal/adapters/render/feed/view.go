// Package feed renders the notification queue as terminal output, one line
// per notification, after each command finishes.
package feed

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

func markerFor(kind domain.NotificationKind) string {
	switch kind {
	case domain.KindSuccess:
		return "✓"
	case domain.KindError:
		return "✗"
	case domain.KindWarning:
		return "!"
	default:
		return "·"
	}
}

// Render formats the queue in insertion order. An empty queue renders as an
// empty string so callers can print unconditionally.
func Render(notifications []domain.Notification) string {
	if len(notifications) == 0 {
		return ""
	}

	s := newStyles()
	lines := make([]string, 0, len(notifications))
	for _, n := range notifications {
		line := s.forKind(n.Kind).Render(markerFor(n.Kind)+" "+n.Title)
		if n.Message != "" {
			line += " " + s.message.Render("- "+n.Message)
		}
		if n.TTL == 0 {
			line += " " + s.sticky.Render("(fixa)")
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
