package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/marker/internal/core/styles"
)

// View renders the current card, the scan status line, and help.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	if m.confirm != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View())
	}

	var b strings.Builder

	b.WriteString(m.renderCard())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styles.ErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpStyle.Render(m.help.View(m.keys)))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

func (m *Model) renderCard() string {
	cardWidth := min(m.width-4, 72)
	if cardWidth < 24 {
		cardWidth = 24
	}

	if len(m.anns) == 0 {
		body := styles.TextMutedStyle.Render("No annotations found")
		if m.svc.InProgress() {
			body = styles.TextMutedStyle.Render("Searching for annotations...")
		}
		return styles.CardStyle.Width(cardWidth).Render(body)
	}

	a := m.anns[m.idx]

	badge := styles.KindStyle(a.Kind).Render(a.Kind)
	counter := styles.CardMetaStyle.Render(fmt.Sprintf("%d/%d", m.idx+1, len(m.anns)))
	gap := cardWidth - lipgloss.Width(badge) - lipgloss.Width(counter) - 4
	if gap < 1 {
		gap = 1
	}
	header := badge + strings.Repeat(" ", gap) + counter

	message := styles.CardTitleStyle.Width(cardWidth - 4).Render(a.Message)

	meta := fmt.Sprintf("%s:%d", a.File, a.Line+1)
	if a.Author != "" {
		meta += "  ·  " + a.Author
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		message,
		"",
		styles.CardMetaStyle.Render(meta),
	)

	return styles.CardStyle.Width(cardWidth).Render(content)
}

func (m *Model) renderStatus() string {
	st := m.status

	if m.svc.InProgress() {
		line := fmt.Sprintf("%s scanning %d/%d files", m.spin.View(), st.FilesProcessed, st.TotalFiles)
		if st.CurrentFile != "" {
			line += "  " + styles.TextMutedStyle.Render(st.CurrentFile)
		}
		return styles.StatusBarStyle.Render(line)
	}

	return styles.StatusBarStyle.Render(fmt.Sprintf("%d annotations in %d files", m.svc.TotalCount(), st.TotalFiles))
}
