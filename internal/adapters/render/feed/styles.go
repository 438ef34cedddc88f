package feed

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

type styles struct {
	success lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	message lipgloss.Style
	sticky  lipgloss.Style
}

func newStyles() styles {
	return styles{
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		info:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		message: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		sticky:  lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) forKind(kind domain.NotificationKind) lipgloss.Style {
	switch kind {
	case domain.KindSuccess:
		return s.success
	case domain.KindError:
		return s.err
	case domain.KindWarning:
		return s.warning
	default:
		return s.info
	}
}
