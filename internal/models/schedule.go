package models

import "github.com/julianstephens/fleetboard/internal/utils"

// TripGroup is a named bundle of weekly templates driven by one driver.
// Time bounds and volume are derived from Trips on every call.
type TripGroup struct {
	ID            int64      `json:"id" validate:"required"`
	Name          string     `json:"name" validate:"required"`
	DayOfWeek     int        `json:"day_of_week" validate:"gte=0,lte=6"`
	DayName       string     `json:"day_name"`
	Description   *string    `json:"description"`
	Driver        *DriverRef `json:"driver" validate:"omitempty"`
	Trips         []Trip     `json:"trips"`
	TemplateIDs   []int64    `json:"template_ids,omitempty"`
	TemplateCount int        `json:"template_count"`
}

func (g TripGroup) HasDriver() bool { return g.Driver != nil && g.Driver.ID != 0 }

// EarliestStart returns the earliest parseable trip start, or "" when none.
func (g TripGroup) EarliestStart() string {
	best, bestMin := "", 0
	for _, t := range g.Trips {
		m, err := utils.ParseTimeToMinutes(t.StartTime)
		if err != nil {
			continue
		}
		if best == "" || m < bestMin {
			best, bestMin = t.StartTime, m
		}
	}
	return best
}

// LatestEnd returns the latest parseable trip end, or "" when none.
func (g TripGroup) LatestEnd() string {
	best, bestMin := "", 0
	for _, t := range g.Trips {
		m, err := utils.ParseTimeToMinutes(t.EndTime)
		if err != nil {
			continue
		}
		if best == "" || m > bestMin {
			best, bestMin = t.EndTime, m
		}
	}
	return best
}

func (g TripGroup) TotalVolume() int {
	return TotalVolume(g.Trips)
}

// ContainsTemplate reports whether templateID belongs to the group, either
// declared or observed on one of its trips.
func (g TripGroup) ContainsTemplate(templateID int64) bool {
	for _, id := range g.TemplateIDs {
		if id == templateID {
			return true
		}
	}
	for _, t := range g.Trips {
		if t.TemplateID != nil && *t.TemplateID == templateID {
			return true
		}
	}
	return false
}

// UnassignedBucket holds trips that match no trip group (ad-hoc or orphaned).
type UnassignedBucket struct {
	Trips []Trip `json:"trips"`
}

func (b UnassignedBucket) TotalVolume() int { return TotalVolume(b.Trips) }

type ScheduleSummary struct {
	TotalTrips      int `json:"total_trips"`
	AssignedTrips   int `json:"assigned_trips"`
	UnassignedTrips int `json:"unassigned_trips"`
	ConflictTrips   int `json:"conflict_trips"`
	TotalVolume     int `json:"total_volume"`
}

// ScheduleSnapshot is one day's schedule as last read from the service.
// Validation covers the day and its groups; trips inside it are not
// validated so one bad record renders as a placeholder instead of hiding
// the whole day.
type ScheduleSnapshot struct {
	ID         *int64           `json:"id"`
	Date       string           `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	DayOfWeek  int              `json:"day_of_week" validate:"gte=0,lte=6"`
	DayName    string           `json:"day_name"`
	IsLocked   bool             `json:"is_locked"`
	TripGroups []TripGroup      `json:"trip_groups" validate:"dive"`
	Unassigned UnassignedBucket `json:"unassigned_trips"`
	Summary    ScheduleSummary  `json:"summary"`
	Notes      *string          `json:"notes"`
	CreatedAt  *string          `json:"created_at"`
}

// Exists reports whether the service has a persisted schedule for the date
func (s ScheduleSnapshot) Exists() bool { return s.ID != nil }

// Trips returns every trip of the day, grouped ones first.
func (s ScheduleSnapshot) Trips() []Trip {
	n := len(s.Unassigned.Trips)
	for _, g := range s.TripGroups {
		n += len(g.Trips)
	}
	out := make([]Trip, 0, n)
	for _, g := range s.TripGroups {
		out = append(out, g.Trips...)
	}
	return append(out, s.Unassigned.Trips...)
}

// FindTrip looks a trip up by ID
func (s ScheduleSnapshot) FindTrip(id int64) (Trip, bool) {
	for _, t := range s.Trips() {
		if t.ID == id {
			return t, true
		}
	}
	return Trip{}, false
}

type GenerateRequest struct {
	OverwriteExisting bool `json:"overwrite_existing"`
}

type GenerateResult struct {
	ScheduleID   int64  `json:"schedule_id" validate:"required"`
	ScheduleDate string `json:"schedule_date" validate:"required"`
	TripsCreated int    `json:"trips_created"`
	TripsSkipped int    `json:"trips_skipped"`
	Message      string `json:"message"`
}

// MessageResult is the plain {"message": ...} acknowledgement the service returns
type MessageResult struct {
	Message string `json:"message"`
}

// TotalVolume sums trip volumes
func TotalVolume(trips []Trip) int {
	total := 0
	for _, t := range trips {
		total += t.Volume
	}
	return total
}
