// Package aggregator folds flat trip lists into the rows a schedule view renders.
package aggregator

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

type Dimension string

const (
	ByTripGroup Dimension = "trip-group"
	ByTanker    Dimension = "tanker"
	ByDriver    Dimension = "driver"
)

// Dimensions lists the grouping dimensions in toggle order
var Dimensions = []Dimension{ByTripGroup, ByTanker, ByDriver}

func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case ByTripGroup, ByTanker, ByDriver:
		return d, nil
	case "group", "groups":
		return ByTripGroup, nil
	}
	return "", fmt.Errorf("unknown grouping %q (want trip-group, tanker or driver)", s)
}

// Next returns the dimension after d in toggle order
func (d Dimension) Next() Dimension {
	i := slices.Index(Dimensions, d)
	return Dimensions[(i+1)%len(Dimensions)]
}

// Summary is a pure fold over a trip list.
type Summary struct {
	TotalTrips  int `json:"total_trips"`
	TotalVolume int `json:"total_volume"`
	Assigned    int `json:"assigned_trips"`
	Unassigned  int `json:"unassigned_trips"`
	Conflict    int `json:"conflict_trips"`
}

func Summarize(trips []models.Trip) Summary {
	var s Summary
	for _, t := range trips {
		s.TotalTrips++
		s.TotalVolume += t.Volume
		switch {
		case t.Status.Assigned():
			s.Assigned++
		case t.Status == models.TripUnassigned:
			s.Unassigned++
		case t.Status == models.TripConflict:
			s.Conflict++
		}
	}
	return s
}

// Add combines two summaries
func (s Summary) Add(o Summary) Summary {
	return Summary{
		TotalTrips:  s.TotalTrips + o.TotalTrips,
		TotalVolume: s.TotalVolume + o.TotalVolume,
		Assigned:    s.Assigned + o.Assigned,
		Unassigned:  s.Unassigned + o.Unassigned,
		Conflict:    s.Conflict + o.Conflict,
	}
}

const UnassignedKey = "unassigned"

// Row is one rendered line of a grouped view.
type Row struct {
	Key        string
	Label      string
	ID         int64
	Unassigned bool
	// Group is set for trip-group rows
	Group *models.TripGroup
	// Driver is the row's driver, when known
	Driver  *models.DriverRef
	Trips   []models.Trip
	Summary Summary
}

// Board is a full grouped view of one day.
type Board struct {
	Dimension  Dimension
	Rows       []Row
	Unassigned Row
	Summary    Summary
}

// AllRows returns the grouped rows followed by the unassigned bucket when it has trips
func (b Board) AllRows() []Row {
	if len(b.Unassigned.Trips) == 0 {
		return b.Rows
	}
	return append(slices.Clone(b.Rows), b.Unassigned)
}

func unassignedRow(trips []models.Trip) Row {
	return Row{Key: UnassignedKey, Label: "Unassigned", Unassigned: true, Trips: trips}
}

func finish(d Dimension, rows []Row, unassigned Row) Board {
	b := Board{Dimension: d}
	for i := range rows {
		SortTrips(rows[i].Trips)
		rows[i].Summary = Summarize(rows[i].Trips)
		b.Summary = b.Summary.Add(rows[i].Summary)
	}
	SortTrips(unassigned.Trips)
	unassigned.Summary = Summarize(unassigned.Trips)
	b.Summary = b.Summary.Add(unassigned.Summary)
	b.Rows = rows
	b.Unassigned = unassigned
	return b
}

// GroupByTripGroup places each trip in the first group whose template set holds
// the trip's origin template. Ad-hoc trips and trips from ungrouped templates go
// to the unassigned bucket. Every group gets a row, empty or not.
func GroupByTripGroup(trips []models.Trip, groups []models.TripGroup) Board {
	rows := make([]Row, len(groups))
	for i := range groups {
		g := groups[i]
		rows[i] = Row{
			Key:    fmt.Sprintf("group:%d", g.ID),
			Label:  g.Name,
			ID:     g.ID,
			Group:  &g,
			Driver: g.Driver,
		}
	}

	var loose []models.Trip
	for _, t := range trips {
		idx := -1
		if t.TemplateID != nil {
			idx = slices.IndexFunc(groups, func(g models.TripGroup) bool {
				return g.ContainsTemplate(*t.TemplateID)
			})
		}
		if idx < 0 {
			loose = append(loose, t)
			continue
		}
		rows[idx].Trips = append(rows[idx].Trips, t)
	}

	// Row groups carry the regrouped trips so derived fields match the row
	for i := range rows {
		rows[i].Group.Trips = rows[i].Trips
	}
	return finish(ByTripGroup, rows, unassignedRow(loose))
}

// GroupByTanker buckets trips per tanker. All trips without a tanker share a
// single unassigned row.
func GroupByTanker(trips []models.Trip) Board {
	return groupBy(ByTanker, trips, func(t models.Trip) (int64, string, bool) {
		if !t.HasTanker() {
			return 0, "", false
		}
		return t.Tanker.ID, t.Tanker.Name, true
	})
}

// GroupByDriver buckets one day's trips per driver, with one unassigned row for
// trips that have no driver.
func GroupByDriver(trips []models.Trip) Board {
	b := groupBy(ByDriver, trips, func(t models.Trip) (int64, string, bool) {
		if !t.HasDriver() {
			return 0, "", false
		}
		return t.Driver.ID, t.Driver.Name, true
	})
	for i := range b.Rows {
		b.Rows[i].Driver = &models.DriverRef{ID: b.Rows[i].ID, Name: b.Rows[i].Label}
	}
	return b
}

func groupBy(d Dimension, trips []models.Trip, keyOf func(models.Trip) (int64, string, bool)) Board {
	index := map[int64]int{}
	var rows []Row
	var loose []models.Trip

	for _, t := range trips {
		id, name, ok := keyOf(t)
		if !ok {
			loose = append(loose, t)
			continue
		}
		i, seen := index[id]
		if !seen {
			if name == "" {
				name = fmt.Sprintf("#%d", id)
			}
			i = len(rows)
			index[id] = i
			rows = append(rows, Row{Key: fmt.Sprintf("%s:%d", d, id), Label: name, ID: id})
		}
		rows[i].Trips = append(rows[i].Trips, t)
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return finish(d, rows, unassignedRow(loose))
}

// FromSnapshot builds the board for a snapshot along the given dimension.
func FromSnapshot(s models.ScheduleSnapshot, d Dimension) Board {
	trips := s.Trips()
	switch d {
	case ByTanker:
		return GroupByTanker(trips)
	case ByDriver:
		return GroupByDriver(trips)
	default:
		return GroupByTripGroup(trips, s.TripGroups)
	}
}

// SortTrips orders trips by start time, then ID. Trips with unusable start
// times sort last.
func SortTrips(trips []models.Trip) {
	slices.SortStableFunc(trips, func(a, b models.Trip) int {
		if c := cmp.Compare(startKey(a), startKey(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func startKey(t models.Trip) int {
	start, err := utils.ParseTimeToMinutes(t.StartTime)
	if err != nil {
		return math.MaxInt
	}
	return start
}
