package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

var tabOrder = []constants.SessionState{
	constants.StateBoard,
	constants.StateCalendar,
	constants.StateAssignments,
	constants.StateAlerts,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-6, 4)
		m.help.Width = msg.Width
		m.board.SetSize(msg.Width-4, h)
		m.roster.SetSize(msg.Width-4, h)
		m.week.SetSize(msg.Width-4, h)
		m.alerts.SetSize(msg.Width-4, h)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case boardLoadedMsg:
		if msg.seq != m.boardSeq {
			return m, nil
		}
		m.pending[reloadBoard] = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.board.SetView(msg.view)
		return m, nil

	case monthLoadedMsg:
		if msg.seq != m.monthSeq {
			return m, nil
		}
		m.pending[reloadMonth] = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.roster.SetMonth(msg.year, msg.month, msg.rows)
		return m, nil

	case weekLoadedMsg:
		if msg.seq != m.weekSeq {
			return m, nil
		}
		m.pending[reloadWeek] = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.week.SetWeek(msg.week)
		return m, nil

	case alertsMsg:
		var next tea.Cmd
		if msg.polled {
			next = m.watch.next()
		}
		if msg.date != m.date {
			return m, next
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, next
		}
		m.alerts.SetFeed(msg.feed)
		return m, next

	case mutationDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.message)
		}
		var cmds []tea.Cmd
		for _, t := range msg.reload {
			cmds = append(cmds, m.reload(t))
		}
		return m, tea.Batch(cmds...)
	}

	switch m.state {
	case constants.StateDeliveryForm:
		return m.updateDeliveryForm(msg)
	case constants.StateConfirmGenerate, constants.StateConfirmDelete:
		return m.updateConfirm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		m.watch.stop()
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, m.keys.Tab):
		m.state = cycle(m.state, 1)
		return m, nil
	case key.Matches(keyMsg, m.keys.ShiftTab):
		m.state = cycle(m.state, -1)
		return m, nil
	case key.Matches(keyMsg, m.keys.Refresh):
		m.setStatus("")
		return m, m.refreshActive()
	case key.Matches(keyMsg, m.keys.Prev):
		return m, m.step(-1)
	case key.Matches(keyMsg, m.keys.Next):
		return m, m.step(1)
	case key.Matches(keyMsg, m.keys.Today):
		return m, m.jumpToday()
	}

	switch m.state {
	case constants.StateBoard:
		if cmd, handled := m.handleBoardKeys(keyMsg); handled {
			return m, cmd
		}
	case constants.StateCalendar:
		if cmd, handled := m.handleCalendarKeys(keyMsg); handled {
			return m, cmd
		}
	case constants.StateAssignments:
		if key.Matches(keyMsg, m.keys.AutoAssign) {
			return m, m.autoAssign()
		}
	}
	return m.updateActive(msg)
}

func cycle(s constants.SessionState, dir int) constants.SessionState {
	for i, t := range tabOrder {
		if t == s {
			return tabOrder[(i+dir+len(tabOrder))%len(tabOrder)]
		}
	}
	return constants.StateBoard
}

// updateActive forwards msg to the component on screen.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case constants.StateBoard:
		m.board, cmd = m.board.Update(msg)
	case constants.StateCalendar:
		m.roster, cmd = m.roster.Update(msg)
	case constants.StateAssignments:
		m.week, cmd = m.week.Update(msg)
	case constants.StateAlerts:
		m.alerts, cmd = m.alerts.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStatus(s string) {
	m.status, m.statusIsError = s, false
}

func (m *Model) setError(err error) {
	m.status, m.statusIsError = errors.Format(err), true
}

// reload issues a fresh load for one view. Results of earlier loads for the
// same view are dropped on arrival.
func (m *Model) reload(t reloadTarget) tea.Cmd {
	m.pending[t] = true
	switch t {
	case reloadBoard:
		m.boardSeq++
		return tea.Batch(
			loadBoard(m.ctx, m.engine, m.boardSeq, m.date, m.dimension),
			loadAlerts(m.ctx, m.engine, m.date),
		)
	case reloadMonth:
		m.monthSeq++
		year, month := m.roster.Month()
		return loadMonth(m.ctx, m.engine, m.monthSeq, year, month)
	case reloadWeek:
		m.weekSeq++
		return loadWeek(m.ctx, m.engine, m.weekSeq, m.weekStart)
	}
	return nil
}

func (m *Model) refreshActive() tea.Cmd {
	switch m.state {
	case constants.StateCalendar:
		m.engine.Cache().Invalidate(cache.NewKey(cache.RootDriverDays))
		return m.reload(reloadMonth)
	case constants.StateAssignments:
		m.engine.Cache().Invalidate(dispatch.AssignmentsKey(m.weekStart))
		return m.reload(reloadWeek)
	}
	m.engine.Cache().Invalidate(dispatch.ScheduleKey(m.date), dispatch.AlertsKey(m.date))
	return m.reload(reloadBoard)
}

// setDate moves the board to date and points the alert poller at it.
func (m *Model) setDate(date string) tea.Cmd {
	m.date = date
	return tea.Batch(
		m.reload(reloadBoard),
		m.watch.start(m.ctx, m.engine, date, m.alertEvery),
	)
}

// step moves the active view one day, month or week.
func (m *Model) step(dir int) tea.Cmd {
	switch m.state {
	case constants.StateCalendar:
		year, month := m.roster.Month()
		month += time.Month(dir)
		if month < time.January {
			year, month = year-1, time.December
		} else if month > time.December {
			year, month = year+1, time.January
		}
		m.roster.SetMonth(year, month, nil)
		return m.reload(reloadMonth)
	case constants.StateAssignments:
		next, err := utils.AddDays(m.weekStart, dir*constants.DaysPerWeek)
		if err != nil {
			m.setError(err)
			return nil
		}
		m.weekStart = next
		return m.reload(reloadWeek)
	}
	next, err := utils.AddDays(m.date, dir)
	if err != nil {
		m.setError(err)
		return nil
	}
	return m.setDate(next)
}

func (m *Model) jumpToday() tea.Cmd {
	today := m.today()
	t, err := utils.ParseDate(today)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.weekStart = utils.FormatDate(calendar.WeekStart(t))
	m.roster.SetMonth(t.Year(), t.Month(), nil)
	return tea.Batch(m.setDate(today), m.reload(reloadMonth), m.reload(reloadWeek))
}

// canWrite reports whether the session may edit at all, setting a status
// line when it may not.
func (m *Model) canWrite() bool {
	if !m.engine.CanMutate() {
		m.setStatus("⊘ Read-only session")
		return false
	}
	return true
}

// canEditDay additionally refuses edits on a locked day.
func (m *Model) canEditDay() bool {
	if !m.canWrite() {
		return false
	}
	if m.board.Board().Snapshot.IsLocked {
		m.setStatus(fmt.Sprintf("⊘ %s is locked", m.date))
		return false
	}
	return true
}

func (m *Model) handleBoardKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Group):
		m.dimension = m.dimension.Next()
		if m.board.Loaded() {
			snap := m.board.Board().Snapshot
			m.board.SetView(dispatch.Layout(snap, m.dimension, m.engine.Window(), m.engine.CanMutate()))
		}
		return nil, true

	case key.Matches(msg, m.keys.Generate):
		if !m.canEditDay() {
			return nil, true
		}
		if m.board.Board().Snapshot.Exists() {
			m.previousState = m.state
			m.state = constants.StateConfirmGenerate
			return nil, true
		}
		return m.generate(false), true

	case key.Matches(msg, m.keys.Lock):
		if !m.canWrite() || !m.board.Board().Snapshot.Exists() {
			return nil, true
		}
		ctx, e := m.ctx, m.engine
		date, locked := m.date, m.board.Board().Snapshot.IsLocked
		return mutate(func() (string, error) {
			var res models.MessageResult
			var err error
			if locked {
				res, err = e.UnlockSchedule(ctx, date)
			} else {
				res, err = e.LockSchedule(ctx, date)
			}
			return res.Message, err
		}, reloadBoard), true

	case key.Matches(msg, m.keys.Delivery):
		if !m.canEditDay() {
			return nil, true
		}
		m.deliveryForm = &DeliveryFormModel{}
		m.form = NewDeliveryForm(m.deliveryForm, m.date)
		m.previousState = m.state
		m.state = constants.StateDeliveryForm
		return m.form.Init(), true

	case key.Matches(msg, m.keys.Delete):
		cell, ok := m.board.Selected()
		if !ok || !m.canEditDay() {
			return nil, true
		}
		m.tripToDelete = cell.Trip.ID
		m.previousState = m.state
		m.state = constants.StateConfirmDelete
		return nil, true
	}
	return nil, false
}

func (m *Model) generate(overwrite bool) tea.Cmd {
	ctx, e, date := m.ctx, m.engine, m.date
	return mutate(func() (string, error) {
		res, err := e.GenerateSchedule(ctx, date, overwrite)
		return res.Message, err
	}, reloadBoard)
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	var status models.DriverDayStatus
	switch {
	case key.Matches(msg, m.keys.Working):
		status = models.DriverWorking
	case key.Matches(msg, m.keys.Off):
		status = models.DriverOff
	case key.Matches(msg, m.keys.Holiday):
		status = models.DriverHoliday
	case key.Matches(msg, m.keys.Float):
		status = models.DriverFloat
	default:
		return nil, false
	}
	drv, cell, ok := m.roster.Selected()
	if !ok || !m.canWrite() {
		return nil, true
	}
	ctx, e, date := m.ctx, m.engine, cell.Day.String()
	return mutate(func() (string, error) {
		if _, err := e.SetDriverDayStatus(ctx, drv.ID, date, status, nil); err != nil {
			return "", err
		}
		return fmt.Sprintf("✓ %s is %s on %s", drv.Name, status, date), nil
	}, reloadMonth, reloadBoard), true
}

func (m *Model) autoAssign() tea.Cmd {
	if !m.canWrite() {
		return nil
	}
	ctx, e := m.ctx, m.engine
	week, minRest := m.weekStart, m.minRest
	return mutate(func() (string, error) {
		res, err := e.AutoAssign(ctx, week, minRest, false)
		return res.Message, err
	}, reloadWeek, reloadBoard)
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	switch keyMsg.String() {
	case "y", "Y":
		switch m.state {
		case constants.StateConfirmGenerate:
			cmd = m.generate(true)
		case constants.StateConfirmDelete:
			ctx, e, date, id := m.ctx, m.engine, m.date, m.tripToDelete
			cmd = mutate(func() (string, error) {
				if err := e.DeleteTrip(ctx, date, id); err != nil {
					return "", err
				}
				return fmt.Sprintf("✓ Deleted trip #%d", id), nil
			}, reloadBoard)
		}
	case "n", "N", "esc", "q":
	default:
		return m, nil
	}
	m.tripToDelete = 0
	m.state = m.previousState
	return m, cmd
}

func (m Model) updateDeliveryForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.state = m.previousState
		req, err := m.deliveryForm.Request()
		if err != nil {
			m.setError(err)
			return m, tea.Batch(cmds...)
		}
		ctx, e, date := m.ctx, m.engine, m.date
		cmds = append(cmds, mutate(func() (string, error) {
			res, err := e.CreateOnDemandDelivery(ctx, date, req)
			return res.Message, err
		}, reloadBoard))
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}
