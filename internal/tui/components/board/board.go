package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/classifier"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/utils"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	riskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

const labelWidth = 20

type KeyMap struct {
	Up   key.Binding
	Down key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev trip"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next trip"),
		),
	}
}

// Model draws one day's board and tracks the selected trip. The cursor walks
// trips row by row, in board order.
type Model struct {
	viewport viewport.Model
	keys     KeyMap
	view     dispatch.BoardView
	loaded   bool
	cursor   int
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		keys:     DefaultKeyMap(),
		width:    width,
		height:   height,
	}
}

// SetView replaces the board. The cursor stays on the same trip when it is
// still present.
func (m *Model) SetView(v dispatch.BoardView) {
	var prev int64
	if c, ok := m.Selected(); ok {
		prev = c.Trip.ID
	}
	m.view = v
	m.loaded = true
	m.cursor = 0
	for i, c := range m.cells() {
		if c.Trip.ID == prev {
			m.cursor = i
			break
		}
	}
	m.viewport.SetContent(m.render())
}

// Board returns the view currently drawn.
func (m Model) Board() dispatch.BoardView { return m.view }

func (m Model) Loaded() bool { return m.loaded }

func (m Model) cells() []dispatch.TripCell {
	var out []dispatch.TripCell
	for _, row := range m.view.Rows {
		out = append(out, row.Cells...)
	}
	return out
}

// Selected returns the trip under the cursor.
func (m Model) Selected() (dispatch.TripCell, bool) {
	cells := m.cells()
	if m.cursor < 0 || m.cursor >= len(cells) {
		return dispatch.TripCell{}, false
	}
	return cells[m.cursor], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		n := len(m.cells())
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			m.viewport.SetContent(m.render())
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < n-1 {
				m.cursor++
			}
			m.viewport.SetContent(m.render())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.render())
}

func (m Model) barWidth() int {
	return max(m.width-labelWidth-14, 24)
}

// Bar draws a row's trips in their treatment colours. The selected trip is
// drawn in the selection colour.
func Bar(row dispatch.BoardRow, width int, selected int64) string {
	cells := make([]string, width)
	for i := range cells {
		cells[i] = dimStyle.Render("·")
	}
	for _, c := range row.Cells {
		start, span := c.Box.Columns(width)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Treatment.Color))
		if c.Trip.ID == selected {
			style = selectedStyle
		}
		sym := style.Render(c.Treatment.Symbol)
		for i := start; i < start+span; i++ {
			cells[i] = sym
		}
	}
	return strings.Join(cells, "")
}

func (m Model) render() string {
	if !m.loaded {
		return "Loading…"
	}
	v := m.view
	if !v.Snapshot.Exists() {
		return fmt.Sprintf("No schedule for %s (%s). Press 'g' to generate.", v.Snapshot.Date, v.Snapshot.DayName)
	}

	var selected int64
	if c, ok := m.Selected(); ok {
		selected = c.Trip.ID
	}
	width := m.barWidth()

	var b strings.Builder
	s := v.Board.Summary
	fmt.Fprintf(&b, "%d trips · %d L · %d assigned · %d unassigned · %d conflict\n\n",
		s.TotalTrips, s.TotalVolume, s.Assigned, s.Unassigned, s.Conflict)
	fmt.Fprintf(&b, "%*s  %s\n", labelWidth, "", dimStyle.Render(cli.Ruler(v, width)))
	for _, row := range v.Rows {
		label := labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, truncate(row.Label, labelWidth)))
		tail := dimStyle.Render(fmt.Sprintf(" %dL", row.Summary.TotalVolume))
		if row.Health == classifier.HealthAtRisk {
			tail += riskStyle.Render(" !")
		}
		fmt.Fprintf(&b, "%s  %s%s\n", label, Bar(row, width, selected), tail)
	}

	if c, ok := m.Selected(); ok {
		b.WriteString("\n")
		b.WriteString(Detail(c))
	}
	return b.String()
}

// Detail describes one trip for the footer of the board.
func Detail(c dispatch.TripCell) string {
	t := c.Trip
	tanker, driver := "no tanker", "no driver"
	if t.HasTanker() {
		tanker = t.Tanker.Name
	}
	if t.HasDriver() {
		driver = t.Driver.Name
	}
	line := fmt.Sprintf("#%d %s-%s %s %dL · %s · %s · %s",
		t.ID, utils.ShortTime(t.StartTime), utils.ShortTime(t.EndTime),
		t.Customer.Name, t.Volume, tanker, driver, c.Treatment.Label)
	if len(c.ConflictPeers) > 0 {
		line += riskStyle.Render(fmt.Sprintf(" overlaps %v", c.ConflictPeers))
	}
	if !c.Interactive {
		line += dimStyle.Render(" (read-only)")
	}
	return selectedStyle.Render("▸ ") + line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
