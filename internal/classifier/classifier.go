// Package classifier maps server-reported trip and group state onto display treatment.
// It never recomputes conflicts; status comes from the Schedule Service.
package classifier

import (
	"github.com/julianstephens/fleetboard/internal/models"
)

type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

// Treatment is how a status is presented. Color is an ANSI 256 palette index.
type Treatment struct {
	Label    string
	Symbol   string
	Color    string
	Severity Severity
}

var tripTreatments = map[models.TripStatus]Treatment{
	models.TripScheduled:  {Label: "scheduled", Symbol: "●", Color: "42", Severity: SeverityNone},
	models.TripUnassigned: {Label: "unassigned", Symbol: "○", Color: "214", Severity: SeverityWarning},
	models.TripConflict:   {Label: "conflict", Symbol: "✖", Color: "196", Severity: SeverityCritical},
	models.TripCompleted:  {Label: "completed", Symbol: "✓", Color: "245", Severity: SeverityNone},
	models.TripCancelled:  {Label: "cancelled", Symbol: "–", Color: "240", Severity: SeverityInfo},
}

var unknownTreatment = Treatment{Label: "unknown", Symbol: "?", Color: "201", Severity: SeverityWarning}

// TreatmentFor returns the treatment for a trip status. Unknown statuses get a
// distinct placeholder treatment.
func TreatmentFor(status models.TripStatus) Treatment {
	if t, ok := tripTreatments[status]; ok {
		return t
	}
	unknown := unknownTreatment
	if status != "" {
		unknown.Label = string(status)
	}
	return unknown
}

var dayTreatments = map[models.DriverDayStatus]Treatment{
	models.DriverWorking: {Label: "working", Symbol: "W", Color: "42"},
	models.DriverOff:     {Label: "off", Symbol: "O", Color: "240"},
	models.DriverHoliday: {Label: "holiday", Symbol: "H", Color: "75", Severity: SeverityInfo},
	models.DriverFloat:   {Label: "float", Symbol: "F", Color: "183", Severity: SeverityInfo},
}

// DayStatusTreatment returns the calendar cell treatment for a driver day.
// The empty status renders as an unset cell.
func DayStatusTreatment(status models.DriverDayStatus) Treatment {
	if t, ok := dayTreatments[status]; ok {
		return t
	}
	if status == "" {
		return Treatment{Label: "unset", Symbol: "·", Color: "238"}
	}
	return unknownTreatment
}

type Health string

const (
	HealthOK     Health = "ok"
	HealthAtRisk Health = "at_risk"
	HealthEmpty  Health = "empty"
)

// GroupHealth classifies a trip group. A group with no trips is a placeholder
// even when it also lacks a driver.
func GroupHealth(g models.TripGroup) Health {
	switch {
	case len(g.Trips) == 0:
		return HealthEmpty
	case !g.HasDriver():
		return HealthAtRisk
	}
	return HealthOK
}

// Interactive reports whether trips may be edited. A locked schedule is never interactive.
func Interactive(locked, canMutate bool) bool {
	return !locked && canMutate
}

// TripView is a trip annotated for rendering.
type TripView struct {
	Trip        models.Trip
	Treatment   Treatment
	Conflict    bool
	Interactive bool
	// ConflictPeers lists other conflicting trips on the same tanker whose time overlaps
	ConflictPeers []int64
}

// ClassifyTrips annotates every trip. Each trip reported as conflict is marked,
// so both sides of an overlapping pair are highlighted.
func ClassifyTrips(trips []models.Trip, locked, canMutate bool) []TripView {
	interactive := Interactive(locked, canMutate)
	views := make([]TripView, len(trips))
	for i, t := range trips {
		views[i] = TripView{
			Trip:        t,
			Treatment:   TreatmentFor(t.Status),
			Conflict:    t.Status == models.TripConflict,
			Interactive: interactive,
		}
	}

	for i := range views {
		if !views[i].Conflict || !views[i].Trip.HasTanker() {
			continue
		}
		for j := range views {
			if i == j || !views[j].Conflict || !views[j].Trip.HasTanker() {
				continue
			}
			if views[i].Trip.Tanker.ID == views[j].Trip.Tanker.ID && views[i].Trip.Overlaps(views[j].Trip) {
				views[i].ConflictPeers = append(views[i].ConflictPeers, views[j].Trip.ID)
			}
		}
	}
	return views
}

// Counts tallies trips by status
func Counts(trips []models.Trip) map[models.TripStatus]int {
	out := make(map[models.TripStatus]int)
	for _, t := range trips {
		out[t.Status]++
	}
	return out
}
