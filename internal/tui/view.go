package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/fleetboard/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateBoard:
		content = docStyle.Render(m.board.View())
	case constants.StateCalendar:
		content = docStyle.Render(m.roster.View())
	case constants.StateAssignments:
		content = docStyle.Render(m.week.View())
	case constants.StateAlerts:
		content = docStyle.Render(m.alerts.View())
	case constants.StateDeliveryForm:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirmGenerate:
		content = m.viewConfirm(fmt.Sprintf("Regenerate %s? Existing trips are replaced.", m.date))
	case constants.StateConfirmDelete:
		content = m.viewConfirm(fmt.Sprintf("Delete trip #%d?", m.tripToDelete))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	titles := map[constants.SessionState]string{
		constants.StateBoard:       "Board",
		constants.StateCalendar:    "Drivers",
		constants.StateAssignments: "Assignments",
		constants.StateAlerts:      fmt.Sprintf("Alerts (%d)", m.alerts.Len()),
	}
	active := m.state
	if active == constants.StateDeliveryForm || active == constants.StateConfirmGenerate || active == constants.StateConfirmDelete {
		active = m.previousState
	}
	var tabs []string
	for _, s := range tabOrder {
		if s == active {
			tabs = append(tabs, activeTabStyle.Render(titles[s]))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(titles[s]))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// viewHeader names the day on screen, its lock state and the grouping.
func (m Model) viewHeader() string {
	snap := m.board.Board().Snapshot
	parts := []string{headerStyle.Render(m.date)}
	if snap.DayName != "" {
		parts = append(parts, snap.DayName)
	}
	if snap.IsLocked {
		parts = append(parts, lockedStyle.Render("LOCKED"))
	}
	parts = append(parts, "by "+string(m.dimension))
	if !m.engine.CanMutate() {
		parts = append(parts, warningStyle.Render("read-only"))
	}
	for _, p := range m.pending {
		if p {
			parts = append(parts, m.spinner.View())
			break
		}
	}
	return " " + strings.Join(parts, " · ")
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsError {
		return " " + dangerStyle.Render(m.status)
	}
	return " " + okStyle.Render(m.status)
}

func (m Model) viewConfirm(question string) string {
	return lipgloss.Place(m.width, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(question),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
