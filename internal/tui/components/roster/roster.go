package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/classifier"
	"github.com/julianstephens/fleetboard/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	weekendStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("172"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(16)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)
)

type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev driver")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next driver")),
		Left:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "prev day")),
		Right: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "next day")),
	}
}

// Model is the month grid of driver-day statuses, one row per driver.
type Model struct {
	keys   KeyMap
	year   int
	month  time.Month
	rows   []aggregator.DriverMonth
	row    int
	day    int
	width  int
	height int
}

func New(year int, month time.Month) Model {
	return Model{keys: DefaultKeyMap(), year: year, month: month}
}

func (m Model) Month() (int, time.Month) { return m.year, m.month }

// SetMonth replaces the grid. The cursor is kept where it still fits.
func (m *Model) SetMonth(year int, month time.Month, rows []aggregator.DriverMonth) {
	m.year, m.month, m.rows = year, month, rows
	m.row = min(m.row, max(len(rows)-1, 0))
	m.day = min(m.day, calendar.DaysIn(year, month)-1)
}

// Selected returns the driver and date under the cursor.
func (m Model) Selected() (models.DriverRef, aggregator.DayCell, bool) {
	if m.row >= len(m.rows) {
		return models.DriverRef{}, aggregator.DayCell{}, false
	}
	r := m.rows[m.row]
	if m.day >= len(r.Cells) {
		return models.DriverRef{}, aggregator.DayCell{}, false
	}
	return r.Driver, r.Cells[m.day], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	days := calendar.DaysIn(m.year, m.month)
	switch {
	case key.Matches(km, m.keys.Up):
		m.row = max(m.row-1, 0)
	case key.Matches(km, m.keys.Down):
		m.row = min(m.row+1, max(len(m.rows)-1, 0))
	case key.Matches(km, m.keys.Left):
		m.day = max(m.day-1, 0)
	case key.Matches(km, m.keys.Right):
		m.day = min(m.day+1, days-1)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n\n", m.month, m.year)

	b.WriteString(nameStyle.Render(""))
	for day := range calendar.Month(m.year, m.month) {
		label := fmt.Sprintf("%2d", day.Date.Day())
		if day.Weekend {
			b.WriteString(weekendStyle.Render(label))
		} else {
			b.WriteString(headerStyle.Render(label))
		}
	}
	b.WriteString("\n")
	b.WriteString(nameStyle.Render(""))
	for day := range calendar.Month(m.year, m.month) {
		b.WriteString(headerStyle.Render(" " + calendar.DayName(day.Index)[:1]))
	}
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("\nNo active drivers.")
		return b.String()
	}
	for ri, row := range m.rows {
		b.WriteString(nameStyle.Render(truncate(row.Driver.Name, 15)))
		for di, cell := range row.Cells {
			t := classifier.DayStatusTreatment(cell.Status)
			sym := " " + t.Symbol
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color))
			if ri == m.row && di == m.day {
				style = style.Inherit(cursorStyle)
			}
			b.WriteString(style.Render(sym))
		}
		fmt.Fprintf(&b, "  %s\n", Tally(row.Counts))
	}

	if drv, cell, ok := m.Selected(); ok {
		status := classifier.DayStatusTreatment(cell.Status).Label
		line := fmt.Sprintf("\n%s on %s (%s): %s", drv.Name, cell.Day, calendar.DayName(cell.Day.Index), status)
		if cell.Notes != nil && *cell.Notes != "" {
			line += " - " + *cell.Notes
		}
		b.WriteString(line)
	}
	return b.String()
}

// Tally summarises a row's status counts in a fixed order.
func Tally(counts map[models.DriverDayStatus]int) string {
	var parts []string
	for _, s := range models.DriverDayStatuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s%d", classifier.DayStatusTreatment(s).Symbol, n))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
