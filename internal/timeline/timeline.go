// Package timeline maps wall-clock ranges onto a normalized day window.
package timeline

import (
	"fmt"
	"math"

	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// Window is the visible part of the day, in minutes from midnight.
type Window struct {
	StartMinutes int
	EndMinutes   int
	// MinWidth is the smallest fraction of the window a placed box may occupy
	MinWidth float64
}

// Box is a normalized horizontal placement. Offset and Width are fractions of the window.
type Box struct {
	Offset float64
	Width  float64
	// Valid is false when the range could not be placed; Offset and Width are zero then
	Valid bool
	// ClippedStart and ClippedEnd mark ranges that extend past the window edges
	ClippedStart bool
	ClippedEnd   bool
}

// Tick is an hour mark on the window ruler
type Tick struct {
	Hour   int
	Offset float64
}

// DefaultWindow is the 06:00-22:00 operating day with a 5% minimum width.
func DefaultWindow() Window {
	return Window{
		StartMinutes: constants.TimelineStartHour * 60,
		EndMinutes:   constants.TimelineEndHour * 60,
		MinWidth:     constants.TimelineMinWidth,
	}
}

// NewWindow builds a window between two whole hours.
func NewWindow(startHour, endHour int, minWidth float64) (Window, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return Window{}, fmt.Errorf("invalid timeline window %02d:00-%02d:00", startHour, endHour)
	}
	if minWidth < 0 || minWidth >= 1 {
		return Window{}, fmt.Errorf("minimum width %.2f must be in [0, 1)", minWidth)
	}
	return Window{StartMinutes: startHour * 60, EndMinutes: endHour * 60, MinWidth: minWidth}, nil
}

// Total returns the window length in minutes
func (w Window) Total() int {
	return w.EndMinutes - w.StartMinutes
}

// Place positions a start/end pair (HH:MM or HH:MM:SS) on the window.
// Missing or malformed times yield a zero, invalid Box and never an error.
func (w Window) Place(start, end string) Box {
	if start == "" || end == "" || w.Total() <= 0 {
		return Box{}
	}
	s, err := utils.ParseTimeToMinutes(start)
	if err != nil {
		return Box{}
	}
	e, err := utils.ParseTimeToMinutes(end)
	if err != nil {
		return Box{}
	}
	return w.PlaceMinutes(s, e)
}

// PlaceMinutes positions a range given in minutes from midnight.
//
//	offset = max(0, (start-ws)/total)
//	width  = min(1-offset, max(dur/total, MinWidth))
//
// A range starting at or after the window end is pinned to the right edge
// with the minimum width so it stays visible.
func (w Window) PlaceMinutes(start, end int) Box {
	total := float64(w.Total())
	if total <= 0 {
		return Box{}
	}

	offset := math.Max(0, float64(start-w.StartMinutes)/total)
	if start >= w.EndMinutes {
		offset = 1 - w.MinWidth
	}

	dur := float64(end-start) / total
	width := math.Min(1-offset, math.Max(dur, w.MinWidth))

	return Box{
		Offset:       offset,
		Width:        width,
		Valid:        true,
		ClippedStart: start < w.StartMinutes,
		ClippedEnd:   end > w.EndMinutes || start > w.EndMinutes,
	}
}

// HourTicks returns one tick per whole hour in the window, edges included.
func (w Window) HourTicks() []Tick {
	total := float64(w.Total())
	if total <= 0 {
		return nil
	}
	var ticks []Tick
	for m := w.StartMinutes; m <= w.EndMinutes; m += 60 {
		ticks = append(ticks, Tick{Hour: m / 60, Offset: float64(m-w.StartMinutes) / total})
	}
	return ticks
}

// Columns maps the box onto a row of n terminal cells. Valid boxes always
// cover at least one cell and never run past the row.
func (b Box) Columns(n int) (start, span int) {
	if !b.Valid || n <= 0 {
		return 0, 0
	}
	start = int(math.Round(b.Offset * float64(n)))
	if start >= n {
		start = n - 1
	}
	span = int(math.Round(b.Width * float64(n)))
	if span < 1 {
		span = 1
	}
	if start+span > n {
		span = n - start
	}
	return start, span
}

// End returns Offset+Width
func (b Box) End() float64 {
	return b.Offset + b.Width
}
