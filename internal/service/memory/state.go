package memory

import (
	"cmp"
	"maps"
	"slices"

	"github.com/julianstephens/fleetboard/internal/models"
)

// Schedule is a stored day as State carries it
type Schedule struct {
	ID     int64
	Date   string
	Locked bool
	Notes  *string
	Trips  []models.Trip
}

// State is everything a dispatcher can change. Reference data (customers,
// tankers, drivers, groups, accounts) comes from the seed and is not part of it.
type State struct {
	Schedules   []Schedule
	DriverDays  []models.DriverDay
	Assignments []models.Assignment
	NextID      int64
}

// State copies out the mutable data, ordered by date and id.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{NextID: s.nextID}
	for _, date := range slices.Sorted(maps.Keys(s.schedules)) {
		sc := s.schedules[date]
		st.Schedules = append(st.Schedules, Schedule{
			ID:     sc.id,
			Date:   sc.date,
			Locked: sc.locked,
			Notes:  sc.notes,
			Trips:  slices.Clone(sc.trips),
		})
	}
	for _, byDate := range s.days {
		for _, d := range byDate {
			st.DriverDays = append(st.DriverDays, d)
		}
	}
	slices.SortFunc(st.DriverDays, func(a, b models.DriverDay) int {
		return cmp.Or(cmp.Compare(a.DriverID, b.DriverID), cmp.Compare(a.Date, b.Date))
	})
	st.Assignments = slices.Clone(s.assignments)
	return st
}

// Restore replaces the mutable data with st. The id counter never moves
// backwards so ids handed out before the restore stay unique.
func (s *Service) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules = make(map[string]*schedule, len(st.Schedules))
	for _, sc := range st.Schedules {
		trips := slices.Clone(sc.Trips)
		refreshStatuses(trips)
		s.schedules[sc.Date] = &schedule{id: sc.ID, date: sc.Date, locked: sc.Locked, notes: sc.Notes, trips: trips}
	}
	s.days = make(map[int64]map[string]models.DriverDay)
	for _, d := range st.DriverDays {
		if s.days[d.DriverID] == nil {
			s.days[d.DriverID] = make(map[string]models.DriverDay)
		}
		s.days[d.DriverID][d.Date] = d
	}
	s.assignments = slices.Clone(st.Assignments)
	s.nextID = max(s.nextID, st.NextID)
}
