package aggregator

import (
	"fmt"
	"time"

	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/models"
)

// DayCell is one driver-day of a month grid. Status is empty when the driver
// has no record for the date.
type DayCell struct {
	Day    calendar.Day
	Status models.DriverDayStatus
	Notes  *string
}

// DriverMonth is one driver's row in the month calendar.
type DriverMonth struct {
	Driver models.DriverRef
	Cells  []DayCell
	Counts map[models.DriverDayStatus]int
}

// DriverMonthRows lays driver-day records out as one row per driver and one
// cell per day of the month. Drivers appear in the given order; records for
// drivers not in the list get a row appended after them.
func DriverMonthRows(days []models.DriverDay, drivers []models.DriverRef, year int, month time.Month) []DriverMonth {
	byDriver := map[int64]map[string]models.DriverDay{}
	var extra []int64
	known := map[int64]bool{}
	for _, d := range drivers {
		known[d.ID] = true
	}
	for _, d := range days {
		if byDriver[d.DriverID] == nil {
			byDriver[d.DriverID] = map[string]models.DriverDay{}
			if !known[d.DriverID] {
				extra = append(extra, d.DriverID)
				known[d.DriverID] = true
			}
		}
		byDriver[d.DriverID][d.Date] = d
	}

	all := append([]models.DriverRef{}, drivers...)
	for _, id := range extra {
		all = append(all, models.DriverRef{ID: id, Name: fmt.Sprintf("Driver #%d", id)})
	}

	rows := make([]DriverMonth, 0, len(all))
	for _, drv := range all {
		row := DriverMonth{Driver: drv, Counts: map[models.DriverDayStatus]int{}}
		for day := range calendar.Month(year, month) {
			cell := DayCell{Day: day}
			if rec, ok := byDriver[drv.ID][day.String()]; ok {
				cell.Status = rec.Status
				cell.Notes = rec.Notes
				row.Counts[rec.Status]++
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}
	return rows
}
