package alerts

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/fleetboard/internal/models"
)

type Item struct {
	Alert models.Alert
}

func (i Item) Title() string {
	icon := "ℹ"
	switch i.Alert.Type {
	case "error":
		icon = "❌"
	case "warning":
		icon = "⚠"
	}
	return fmt.Sprintf("%s %s", icon, i.Alert.Message)
}

func (i Item) Description() string {
	return fmt.Sprintf("%s · %s", i.Alert.Code, i.Alert.Subject())
}

func (i Item) FilterValue() string { return i.Alert.Message }

// Model lists the day's alert feed. The feed is replaced whole on each poll.
type Model struct {
	list list.Model
	date string
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Alerts"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetStatusBarItemName("alert", "alerts")
	return Model{list: l}
}

func (m *Model) SetFeed(feed models.AlertFeed) {
	items := make([]list.Item, len(feed.Alerts))
	for i, a := range feed.Alerts {
		items[i] = Item{Alert: a}
	}
	m.date = feed.Date
	m.list.SetItems(items)
}

func (m Model) Len() int { return len(m.list.Items()) }

func (m Model) Date() string { return m.date }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.date != "" && m.Len() == 0 {
		return "No alerts for " + m.date
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
