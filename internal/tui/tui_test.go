package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service/memory"
)

const tuesday = "2025-06-10"

var secret = []byte("tui-secret")

func dispatcherToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.Issue(models.User{ID: 2, Username: "dispatch", Role: models.RoleDispatcher}, secret, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func newModel(t *testing.T, token string, opts ...Option) (Model, *memory.Service, *dispatch.Engine) {
	t.Helper()
	svc := memory.Seed(secret)
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC) })
	e := dispatch.New(svc, dispatch.WithToken(token))
	if _, err := e.GenerateSchedule(context.Background(), tuesday, false); err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	opts = append([]Option{WithDate(tuesday), WithAlertRefresh(0)}, opts...)
	m := New(context.Background(), e, opts...)
	return m, svc, e
}

// drain runs cmd and feeds the load and mutation results it produces back
// into m until no commands are left. Other messages are dropped.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case boardLoadedMsg, monthLoadedMsg, weekLoadedMsg, alertsMsg, mutationDoneMsg:
			next, more := m.Update(msg)
			m = next.(Model)
			queue = append(queue, more)
		}
	}
	return m
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	year, month := m.roster.Month()
	return drain(t, m, tea.Batch(
		loadBoard(m.ctx, m.engine, m.boardSeq, m.date, m.dimension),
		loadMonth(m.ctx, m.engine, m.monthSeq, year, month),
		loadWeek(m.ctx, m.engine, m.weekSeq, m.weekStart),
		loadAlerts(m.ctx, m.engine, m.date),
	))
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, cmd := m.Update(msg)
		m = drain(t, next.(Model), cmd)
	}
	return m
}

func TestInitialLoad(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	view := m.board.Board()
	if view.Board.Summary.TotalTrips != 4 || view.Board.Summary.TotalVolume != 22000 {
		t.Errorf("board summary = %+v, want 4 trips / 22000 L", view.Board.Summary)
	}
	for i, p := range m.pending {
		if p {
			t.Errorf("pending[%d] = true after load", i)
		}
	}
	if m.week.Week().WeekStart != "2025-06-07" {
		t.Errorf("week start = %q, want 2025-06-07", m.week.Week().WeekStart)
	}
	if m.alerts.Len() == 0 {
		t.Error("alerts feed is empty, want the seeded alerts")
	}
	out := m.View()
	for _, want := range []string{"Tuesday North", "Tuesday South", tuesday, "by trip-group"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestStaleResultsAreDropped(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m.boardSeq = 2

	next, _ := m.Update(boardLoadedMsg{seq: 1, view: dispatch.BoardView{Snapshot: models.ScheduleSnapshot{Date: "2025-01-01"}}})
	m = next.(Model)
	if m.board.Loaded() {
		t.Error("board loaded from a superseded request")
	}
	if !m.pending[reloadBoard] {
		t.Error("board no longer pending after a stale result")
	}

	next, _ = m.Update(alertsMsg{date: "2025-01-01", feed: models.AlertFeed{Date: "2025-01-01", Alerts: []models.Alert{{Code: models.AlertTripConflict}}}})
	m = next.(Model)
	if m.alerts.Len() != 0 {
		t.Errorf("alerts for another day were shown: %d", m.alerts.Len())
	}
}

func TestGroupingToggle(t *testing.T) {
	m, svc, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)
	before := svc.Calls("GetSnapshot")

	m = press(t, m, "v")
	if m.dimension != aggregator.ByTanker {
		t.Fatalf("dimension = %q, want %q", m.dimension, aggregator.ByTanker)
	}
	var labels []string
	for _, row := range m.board.Board().Rows {
		labels = append(labels, row.Label)
	}
	if !strings.Contains(strings.Join(labels, ","), "T-01") {
		t.Errorf("rows = %v, want a T-01 row", labels)
	}
	if m.board.Board().Board.Summary.TotalVolume != 22000 {
		t.Errorf("regrouped volume = %d, want 22000", m.board.Board().Board.Summary.TotalVolume)
	}
	if got := svc.Calls("GetSnapshot"); got != before {
		t.Errorf("regrouping fetched the snapshot again: %d calls, want %d", got, before)
	}
}

func TestStepMovesBoardDate(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	m = press(t, m, "right")
	if m.Date() != "2025-06-11" {
		t.Fatalf("Date() = %q, want 2025-06-11", m.Date())
	}
	if got := m.board.Board().Snapshot.Date; got != "2025-06-11" {
		t.Errorf("board date = %q, want 2025-06-11", got)
	}
	if m.board.Board().Snapshot.Exists() {
		t.Error("2025-06-11 should not have a schedule")
	}

	m = press(t, m, "left", "left")
	if m.Date() != "2025-06-09" {
		t.Errorf("Date() = %q, want 2025-06-09", m.Date())
	}
}

func TestReadOnlySessionCannotWrite(t *testing.T) {
	m, svc, _ := newModel(t, "")
	m = load(t, m)

	m = press(t, m, "g")
	if m.State() != constants.StateBoard {
		t.Errorf("State() = %v, want board", m.State())
	}
	if !strings.Contains(m.Status(), "Read-only") {
		t.Errorf("Status() = %q, want read-only notice", m.Status())
	}
	if got := svc.Calls("GenerateSchedule"); got != 1 {
		t.Errorf("GenerateSchedule calls = %d, want 1", got)
	}
}

func TestLockedDayRefusesEdits(t *testing.T) {
	m, svc, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	m = press(t, m, "L")
	if !m.board.Board().Snapshot.IsLocked {
		t.Fatal("schedule not locked after L")
	}
	for _, k := range []string{"n", "x", "g"} {
		m = press(t, m, k)
		if m.State() != constants.StateBoard {
			t.Errorf("%s: State() = %v, want board", k, m.State())
		}
		if !strings.Contains(m.Status(), "locked") {
			t.Errorf("%s: Status() = %q, want locked notice", k, m.Status())
		}
	}
	if got := svc.Calls("DeleteTrip") + svc.Calls("CreateOnDemandDelivery"); got != 0 {
		t.Errorf("remote writes on a locked day = %d, want 0", got)
	}

	m = press(t, m, "L")
	if m.board.Board().Snapshot.IsLocked {
		t.Error("schedule still locked after second L")
	}
}

func TestRegenerateNeedsConfirmation(t *testing.T) {
	m, svc, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	m = press(t, m, "g")
	if m.State() != constants.StateConfirmGenerate {
		t.Fatalf("State() = %v, want confirm generate", m.State())
	}
	if !strings.Contains(m.View(), "Regenerate") {
		t.Error("confirmation prompt not shown")
	}
	m = press(t, m, "n")
	if m.State() != constants.StateBoard || svc.Calls("GenerateSchedule") != 1 {
		t.Fatalf("declining still generated: state %v, calls %d", m.State(), svc.Calls("GenerateSchedule"))
	}

	m = press(t, m, "g", "y")
	if got := svc.Calls("GenerateSchedule"); got != 2 {
		t.Errorf("GenerateSchedule calls = %d, want 2", got)
	}
	if m.Status() != "Generated 4 trips for "+tuesday {
		t.Errorf("Status() = %q", m.Status())
	}
}

func TestDeleteSelectedTrip(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)
	cell, ok := m.board.Selected()
	if !ok {
		t.Fatal("no trip selected")
	}

	m = press(t, m, "x")
	if m.State() != constants.StateConfirmDelete || m.tripToDelete != cell.Trip.ID {
		t.Fatalf("State() = %v, tripToDelete = %d", m.State(), m.tripToDelete)
	}
	m = press(t, m, "y")
	if m.State() != constants.StateBoard {
		t.Errorf("State() = %v, want board", m.State())
	}
	if got := m.board.Board().Board.Summary.TotalTrips; got != 3 {
		t.Errorf("trips after delete = %d, want 3", got)
	}
	if _, ok := m.board.Selected(); !ok {
		t.Error("cursor lost after delete")
	}
}

func TestDeliveryFormOpensAndCancels(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	m = next.(Model)
	if m.State() != constants.StateDeliveryForm {
		t.Fatalf("State() = %v, want delivery form", m.State())
	}
	m = press(t, m, "esc")
	if m.State() != constants.StateBoard {
		t.Errorf("State() = %v after esc, want board", m.State())
	}
}

func TestCalendarSetsDriverDay(t *testing.T) {
	m, _, e := newModel(t, dispatcherToken(t))
	m = load(t, m)

	m = press(t, m, "tab")
	if m.State() != constants.StateCalendar {
		t.Fatalf("State() = %v, want calendar", m.State())
	}
	drv, cell, ok := m.roster.Selected()
	if !ok {
		t.Fatal("no driver day selected")
	}
	if drv.ID != 17 || cell.Day.String() != "2025-06-01" {
		t.Fatalf("selected %d on %s, want 17 on 2025-06-01", drv.ID, cell.Day)
	}

	m = press(t, m, "H")
	got, err := e.DriverDayStatus(context.Background(), 17, "2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if got != models.DriverHoliday {
		t.Errorf("DriverDayStatus() = %q, want holiday", got)
	}
	_, cell, _ = m.roster.Selected()
	if cell.Status != models.DriverHoliday {
		t.Errorf("grid cell = %q after reload, want holiday", cell.Status)
	}
}

func TestAutoAssignFillsWeek(t *testing.T) {
	m, _, _ := newModel(t, dispatcherToken(t))
	m = load(t, m)

	m = press(t, m, "tab", "tab")
	if m.State() != constants.StateAssignments {
		t.Fatalf("State() = %v, want assignments", m.State())
	}
	m = press(t, m, "a")
	if !strings.HasPrefix(m.Status(), "Assigned") {
		t.Errorf("Status() = %q, want an Assigned message", m.Status())
	}
	if len(m.week.Week().Assignments) == 0 {
		t.Error("no assignments after auto-assign")
	}

	m = press(t, m, "right")
	if m.weekStart != "2025-06-14" {
		t.Errorf("weekStart = %q, want 2025-06-14", m.weekStart)
	}
}

func TestWatchDeliversPolls(t *testing.T) {
	m, _, e := newModel(t, dispatcherToken(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := m.watch.start(ctx, e, tuesday, 10*time.Millisecond)
	msg, ok := cmd().(alertsMsg)
	if !ok {
		t.Fatal("watch returned no alerts message")
	}
	if !msg.polled || msg.date != tuesday || msg.err != nil {
		t.Errorf("alertsMsg = %+v", msg)
	}

	next, follow := m.Update(msg)
	m = next.(Model)
	if m.alerts.Len() == 0 {
		t.Error("polled feed not shown")
	}
	if follow == nil {
		t.Error("no follow-up wait after a polled result")
	}
	m.Close()
}

func TestCycle(t *testing.T) {
	tests := []struct {
		from constants.SessionState
		dir  int
		want constants.SessionState
	}{
		{constants.StateBoard, 1, constants.StateCalendar},
		{constants.StateAlerts, 1, constants.StateBoard},
		{constants.StateBoard, -1, constants.StateAlerts},
		{constants.StateDeliveryForm, 1, constants.StateBoard},
	}
	for _, tt := range tests {
		if got := cycle(tt.from, tt.dir); got != tt.want {
			t.Errorf("cycle(%v, %d) = %v, want %v", tt.from, tt.dir, got, tt.want)
		}
	}
}

func TestDeliveryRequest(t *testing.T) {
	tests := []struct {
		name    string
		form    DeliveryFormModel
		wantErr bool
		check   func(models.OnDemandRequest) bool
	}{
		{
			name: "minimal",
			form: DeliveryFormModel{CustomerID: "2", Volume: "4000"},
			check: func(r models.OnDemandRequest) bool {
				return r.CustomerID == 2 && r.Volume == 4000 && r.FuelBlendID == nil && r.PreferredStartTime == nil
			},
		},
		{
			name: "full",
			form: DeliveryFormModel{CustomerID: " 1 ", FuelBlend: "2", Volume: "1500", Start: "14:00", End: "15:30", Notes: "gate B", AutoAssign: true},
			check: func(r models.OnDemandRequest) bool {
				return r.FuelBlendID != nil && *r.FuelBlendID == 2 && *r.PreferredStartTime == "14:00" &&
					*r.PreferredEndTime == "15:30" && *r.Notes == "gate B" && r.AutoAssign
			},
		},
		{name: "bad customer", form: DeliveryFormModel{CustomerID: "abc", Volume: "10"}, wantErr: true},
		{name: "bad volume", form: DeliveryFormModel{CustomerID: "1", Volume: ""}, wantErr: true},
		{name: "bad blend", form: DeliveryFormModel{CustomerID: "1", Volume: "10", FuelBlend: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.form.Request()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Request() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !tt.check(req) {
				t.Errorf("Request() = %+v", req)
			}
		})
	}
}

func TestFormValidators(t *testing.T) {
	if err := positiveInt("volume", false)("0"); err == nil {
		t.Error("positiveInt accepted 0")
	}
	if err := positiveInt("blend", true)(""); err != nil {
		t.Errorf("optional positiveInt rejected empty: %v", err)
	}
	if err := optionalClock("25:00"); err == nil {
		t.Error("optionalClock accepted 25:00")
	}
	if err := optionalClock("07:30"); err != nil {
		t.Errorf("optionalClock rejected 07:30: %v", err)
	}
}
