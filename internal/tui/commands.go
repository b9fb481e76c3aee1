package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/models"
)

type boardLoadedMsg struct {
	seq  int
	view dispatch.BoardView
	err  error
}

type monthLoadedMsg struct {
	seq   int
	year  int
	month time.Month
	rows  []aggregator.DriverMonth
	err   error
}

type weekLoadedMsg struct {
	seq  int
	week models.WeeklyAssignments
	err  error
}

// alertsMsg carries an alert feed. polled is set on results from the
// background poller.
type alertsMsg struct {
	date   string
	feed   models.AlertFeed
	err    error
	polled bool
}

// mutationDoneMsg reports a finished write. The cache has already been
// invalidated; reload names the views to fetch again.
type mutationDoneMsg struct {
	message string
	err     error
	reload  []reloadTarget
}

type reloadTarget int

const (
	reloadBoard reloadTarget = iota
	reloadMonth
	reloadWeek
)

func loadBoard(ctx context.Context, e *dispatch.Engine, seq int, date string, dim aggregator.Dimension) tea.Cmd {
	return func() tea.Msg {
		v, err := e.Board(ctx, date, dim)
		return boardLoadedMsg{seq: seq, view: v, err: err}
	}
}

func loadMonth(ctx context.Context, e *dispatch.Engine, seq int, year int, month time.Month) tea.Cmd {
	return func() tea.Msg {
		rows, err := e.Month(ctx, year, month)
		return monthLoadedMsg{seq: seq, year: year, month: month, rows: rows, err: err}
	}
}

func loadWeek(ctx context.Context, e *dispatch.Engine, seq int, weekStart string) tea.Cmd {
	return func() tea.Msg {
		w, err := e.WeeklyAssignments(ctx, weekStart)
		return weekLoadedMsg{seq: seq, week: w, err: err}
	}
}

func loadAlerts(ctx context.Context, e *dispatch.Engine, date string) tea.Cmd {
	return func() tea.Msg {
		feed, err := e.Alerts(ctx, date)
		return alertsMsg{date: date, feed: feed, err: err}
	}
}

// mutate runs a write off the update loop and reports its result.
func mutate(do func() (string, error), reload ...reloadTarget) tea.Cmd {
	return func() tea.Msg {
		msg, err := do()
		return mutationDoneMsg{message: msg, err: err, reload: reload}
	}
}

// alertWatch bridges the engine's alert poller into the program. Results are
// handed over on ch and picked up by waitForAlerts.
type alertWatch struct {
	mu     sync.Mutex
	ctx    context.Context
	ch     chan alertsMsg
	cancel context.CancelFunc
	halt   func()
}

// start replaces any running poll with one for date.
func (w *alertWatch) start(ctx context.Context, e *dispatch.Engine, date string, every time.Duration) tea.Cmd {
	w.stop()
	if every <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan alertsMsg, 1)
	halt := e.WatchAlerts(ctx, date, every, func(feed models.AlertFeed, err error) {
		select {
		case ch <- alertsMsg{date: date, feed: feed, err: err, polled: true}:
		case <-ctx.Done():
		}
	})
	w.ctx, w.ch, w.cancel, w.halt = ctx, ch, cancel, halt
	return waitForAlerts(ctx, ch)
}

func (w *alertWatch) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.halt()
	}
	w.ctx, w.ch, w.cancel, w.halt = nil, nil, nil, nil
}

// next waits for the next poll result of the running watch.
func (w *alertWatch) next() tea.Cmd {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ch == nil {
		return nil
	}
	return waitForAlerts(w.ctx, w.ch)
}

func waitForAlerts(ctx context.Context, ch <-chan alertsMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}
