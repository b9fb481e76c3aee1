package week

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/models"
)

var (
	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(12)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// Model shows one locale week of driver-to-group assignments.
type Model struct {
	viewport viewport.Model
	week     models.WeeklyAssignments
	loaded   bool
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m *Model) SetWeek(w models.WeeklyAssignments) {
	m.week = w
	m.loaded = true
	m.viewport.SetContent(Render(w))
}

func (m Model) Week() models.WeeklyAssignments { return m.week }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.loaded {
		return "Loading…"
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

// Render lays the week out Saturday first, then lists what is still open.
func Render(w models.WeeklyAssignments) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week of %s\n\n", w.WeekStart)
	for i, name := range calendar.DayNames() {
		b.WriteString(dayStyle.Render(name))
		list := w.ForDay(i)
		if len(list) == 0 {
			b.WriteString(mutedStyle.Render("-"))
		}
		for j, a := range list {
			if j > 0 {
				b.WriteString("\n" + dayStyle.Render(""))
			}
			fmt.Fprintf(&b, "%s → %s", a.TripGroup.Name, a.Driver.Name)
			if a.Notes != nil && *a.Notes != "" {
				b.WriteString(mutedStyle.Render(" (" + *a.Notes + ")"))
			}
		}
		b.WriteString("\n")
	}

	if len(w.UnassignedGroups) > 0 {
		b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("%d group(s) without a driver:", len(w.UnassignedGroups))) + "\n")
		for _, g := range w.UnassignedGroups {
			fmt.Fprintf(&b, "  %s (%s)\n", g.Name, calendar.DayName(g.DayOfWeek))
		}
	}
	if len(w.AvailableDrivers) > 0 {
		names := make([]string, len(w.AvailableDrivers))
		for i, d := range w.AvailableDrivers {
			names[i] = d.Name
		}
		b.WriteString("\nAvailable: " + strings.Join(names, ", ") + "\n")
	}
	return b.String()
}
