package dispatch

import (
	"context"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/classifier"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/timeline"
)

// TripCell is a classified trip with its timeline placement.
type TripCell struct {
	classifier.TripView
	Box timeline.Box
}

// BoardRow is one aggregated row ready to draw.
type BoardRow struct {
	aggregator.Row
	Cells []TripCell
	// Health is set for trip-group rows only
	Health classifier.Health
}

// BoardView is everything a day view draws.
type BoardView struct {
	Snapshot    models.ScheduleSnapshot
	Board       aggregator.Board
	Rows        []BoardRow
	Ticks       []timeline.Tick
	Interactive bool
}

// Board reads the day's snapshot and lays it out along dim.
func (e *Engine) Board(ctx context.Context, date string, dim aggregator.Dimension) (BoardView, error) {
	snap, err := e.Snapshot(ctx, date)
	if err != nil {
		return BoardView{}, err
	}
	return Layout(snap, dim, e.window, e.CanMutate()), nil
}

// Layout builds a board view from a snapshot without any I/O.
func Layout(snap models.ScheduleSnapshot, dim aggregator.Dimension, w timeline.Window, canMutate bool) BoardView {
	board := aggregator.FromSnapshot(snap, dim)
	view := BoardView{
		Snapshot:    snap,
		Board:       board,
		Ticks:       w.HourTicks(),
		Interactive: classifier.Interactive(snap.IsLocked, canMutate),
	}

	for _, row := range board.AllRows() {
		br := BoardRow{Row: row}
		if row.Group != nil {
			br.Health = classifier.GroupHealth(*row.Group)
		}
		for _, tv := range classifier.ClassifyTrips(row.Trips, snap.IsLocked, canMutate) {
			br.Cells = append(br.Cells, TripCell{TripView: tv, Box: w.Place(tv.Trip.StartTime, tv.Trip.EndTime)})
		}
		view.Rows = append(view.Rows, br)
	}
	return view
}
