package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/julianstephens/fleetboard/internal/classifier"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// TimelineWidth is the number of columns a plain-text timeline bar uses
const TimelineWidth = 48

// Ruler draws the hour marks of the board's window
func Ruler(view dispatch.BoardView, width int) string {
	line := []rune(strings.Repeat(" ", width+3))
	for _, tick := range view.Ticks {
		if tick.Hour%2 != 0 {
			continue
		}
		label := []rune(fmt.Sprintf("%02d", tick.Hour))
		pos := int(tick.Offset * float64(width))
		for i, r := range label {
			if pos+i < len(line) {
				line[pos+i] = r
			}
		}
	}
	return strings.TrimRight(string(line), " ")
}

// Bar draws a row's trips onto one line of width cells. Overlapping trips
// share cells and the later one wins.
func Bar(row dispatch.BoardRow, width int) string {
	cells := []rune(strings.Repeat("·", width))
	for _, c := range row.Cells {
		start, span := c.Box.Columns(width)
		sym := []rune(c.Treatment.Symbol)[0]
		for i := start; i < start+span; i++ {
			cells[i] = sym
		}
	}
	return string(cells)
}

// WriteBoard prints a day board: a header, one timeline bar per row and the
// trip list under each row.
func WriteBoard(w io.Writer, view dispatch.BoardView, showTrips bool) {
	snap := view.Snapshot
	state := "open"
	if snap.IsLocked {
		state = "locked"
	}
	if !snap.Exists() {
		state = "not generated"
	}
	fmt.Fprintf(w, "%s (%s) - %s, grouped by %s\n", snap.Date, snap.DayName, state, view.Board.Dimension)
	s := view.Board.Summary
	fmt.Fprintf(w, "%d trips, %d L; %d assigned, %d unassigned, %d conflict\n\n",
		s.TotalTrips, s.TotalVolume, s.Assigned, s.Unassigned, s.Conflict)

	label := 0
	for _, row := range view.Rows {
		label = max(label, len([]rune(row.Label)))
	}
	label = min(label, 24)
	pad := strings.Repeat(" ", label+2)
	fmt.Fprintf(w, "%s%s\n", pad, Ruler(view, TimelineWidth))

	for _, row := range view.Rows {
		name := truncate(row.Label, label)
		marker := ""
		if row.Health == classifier.HealthAtRisk {
			marker = " !"
		}
		fmt.Fprintf(w, "%-*s  %s %dL%s\n", label, name, Bar(row, TimelineWidth), row.Summary.TotalVolume, marker)
		if !showTrips {
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range row.Cells {
			t := c.Trip
			tanker, driver := "-", "-"
			if t.HasTanker() {
				tanker = t.Tanker.Name
			}
			if t.HasDriver() {
				driver = t.Driver.Name
			}
			peers := ""
			if len(c.ConflictPeers) > 0 {
				peers = fmt.Sprintf(" overlaps %v", c.ConflictPeers)
			}
			fmt.Fprintf(tw, "%s  #%d\t%s-%s\t%s\t%dL\t%s\t%s\t%s%s\n", pad, t.ID,
				utils.ShortTime(t.StartTime), utils.ShortTime(t.EndTime),
				t.Customer.Name, t.Volume, tanker, driver, c.Treatment.Label, peers)
		}
		tw.Flush()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
