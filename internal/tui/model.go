package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/tui/components/alerts"
	"github.com/julianstephens/fleetboard/internal/tui/components/board"
	"github.com/julianstephens/fleetboard/internal/tui/components/roster"
	"github.com/julianstephens/fleetboard/internal/tui/components/week"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// DeliveryFormModel backs the on-demand delivery form. Numeric fields stay
// strings until submit.
type DeliveryFormModel struct {
	CustomerID string
	FuelBlend  string
	Volume     string
	Start      string
	End        string
	Notes      string
	AutoAssign bool
}

type Model struct {
	ctx    context.Context
	engine *dispatch.Engine
	loc    *time.Location
	now    func() time.Time

	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model

	board  board.Model
	roster roster.Model
	week   week.Model
	alerts alerts.Model

	date       string
	dimension  aggregator.Dimension
	weekStart  string
	alertEvery time.Duration
	watch      *alertWatch

	// Each load carries the sequence number it was issued with; results
	// from older loads are dropped. pending is indexed by reloadTarget.
	boardSeq int
	monthSeq int
	weekSeq  int
	pending  [3]bool

	minRest       int
	form          *huh.Form
	deliveryForm  *DeliveryFormModel
	tripToDelete  int64
	status        string
	statusIsError bool
	quitting      bool
	width         int
	height        int
}

type Option func(*Model)

// WithDate opens the board on date instead of today.
func WithDate(date string) Option {
	return func(m *Model) { m.date = date }
}

func WithDimension(d aggregator.Dimension) Option {
	return func(m *Model) { m.dimension = d }
}

func WithLocation(loc *time.Location) Option {
	return func(m *Model) { m.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithAlertRefresh sets how often the alert feed is polled.
func WithAlertRefresh(d time.Duration) Option {
	return func(m *Model) { m.alertEvery = d }
}

func WithMinRestHours(h int) Option {
	return func(m *Model) { m.minRest = h }
}

func New(ctx context.Context, engine *dispatch.Engine, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	m := Model{
		ctx:        ctx,
		engine:     engine,
		loc:        time.Local,
		now:        time.Now,
		state:      constants.StateBoard,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		board:      board.New(0, 0),
		week:       week.New(0, 0),
		alerts:     alerts.New(0, 0),
		dimension:  aggregator.ByTripGroup,
		alertEvery: constants.DefaultAlertRefresh,
		minRest:    constants.DefaultMinRestHours,
		watch:      &alertWatch{},
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.date == "" {
		m.date = m.today()
	}
	t, err := utils.ParseDate(m.date)
	if err != nil {
		m.date = m.today()
		t, _ = utils.ParseDate(m.date)
	}
	m.weekStart = utils.FormatDate(calendar.WeekStart(t))
	m.roster = roster.New(t.Year(), t.Month())

	m.boardSeq, m.monthSeq, m.weekSeq = 1, 1, 1
	m.pending = [3]bool{true, true, true}
	return m
}

func (m Model) today() string {
	return utils.FormatDate(m.now().In(m.loc))
}

func (m Model) Init() tea.Cmd {
	year, month := m.roster.Month()
	return tea.Batch(
		m.spinner.Tick,
		loadBoard(m.ctx, m.engine, m.boardSeq, m.date, m.dimension),
		loadMonth(m.ctx, m.engine, m.monthSeq, year, month),
		loadWeek(m.ctx, m.engine, m.weekSeq, m.weekStart),
		loadAlerts(m.ctx, m.engine, m.date),
		m.watch.start(m.ctx, m.engine, m.date, m.alertEvery),
	)
}

// Close stops background alert polling.
func (m Model) Close() {
	m.watch.stop()
}

// State reports the active view.
func (m Model) State() constants.SessionState { return m.state }

// Date is the day shown on the board.
func (m Model) Date() string { return m.date }

func (m Model) Status() string { return m.status }

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Prev, m.keys.Next, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateBoard:
		keys = append(keys, m.keys.Group)
		if m.engine.CanMutate() {
			keys = append(keys, m.keys.Generate, m.keys.Delivery)
		}
	case constants.StateCalendar:
		if m.engine.CanMutate() {
			keys = append(keys, m.keys.Working, m.keys.Holiday)
		}
	case constants.StateAssignments:
		if m.engine.CanMutate() {
			keys = append(keys, m.keys.AutoAssign)
		}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Prev, m.keys.Next, m.keys.Today}

	var actions []key.Binding
	switch m.state {
	case constants.StateBoard:
		actions = []key.Binding{m.keys.Group, m.keys.Generate, m.keys.Lock, m.keys.Delivery, m.keys.Delete}
	case constants.StateCalendar:
		actions = []key.Binding{m.keys.Working, m.keys.Off, m.keys.Holiday, m.keys.Float}
	case constants.StateAssignments:
		actions = []key.Binding{m.keys.AutoAssign}
	}
	return [][]key.Binding{global, navigation, actions}
}
