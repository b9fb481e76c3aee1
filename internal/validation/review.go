package validation

import (
	"fmt"

	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// ConflictType represents the kind of problem found in a schedule snapshot
type ConflictType string

const (
	ConflictReported        ConflictType = "reported_conflict"
	ConflictUnstaffedGroup  ConflictType = "unstaffed_group"
	ConflictUnassignedTrip  ConflictType = "unassigned_trip"
	ConflictInvalidTripTime ConflictType = "invalid_trip_time"
	ConflictNoSchedule      ConflictType = "no_schedule"
)

// Conflict is one problem found in a snapshot
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string
	TripIDs     []int64
	GroupID     int64
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns how many conflicts of type t were found
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No problems detected."
	}

	report := "Problems detected:\n"
	for _, c := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", c.Description)
	}
	return report
}

// ReviewSchedule lists what a dispatcher should look at in a snapshot. Only
// conflicts the service reported are listed as conflicts; overlaps are never
// recomputed here.
func ReviewSchedule(s models.ScheduleSnapshot) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if !s.Exists() {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictNoSchedule,
			Description: fmt.Sprintf("No schedule generated for %s", s.Date),
			Date:        s.Date,
		})
		return result
	}

	for _, g := range s.TripGroups {
		if len(g.Trips) > 0 && !g.HasDriver() {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictUnstaffedGroup,
				Description: fmt.Sprintf("Trip group %q has %d trip(s) but no driver", g.Name, len(g.Trips)),
				Date:        s.Date,
				GroupID:     g.ID,
			})
		}
	}

	for _, t := range s.Trips() {
		label := fmt.Sprintf("Trip #%d (%s)", t.ID, customerLabel(t))
		switch {
		case t.Validate() != nil:
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidTripTime,
				Description: fmt.Sprintf("%s: %v", label, t.Validate()),
				Date:        s.Date,
				TripIDs:     []int64{t.ID},
			})
		case t.Status == models.TripConflict:
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictReported,
				Description: fmt.Sprintf("%s %s-%s is in conflict", label, utils.ShortTime(t.StartTime), utils.ShortTime(t.EndTime)),
				Date:        s.Date,
				TripIDs:     []int64{t.ID},
			})
		case t.Status == models.TripUnassigned || !t.HasTanker() || !t.HasDriver():
			if t.Status == models.TripCancelled || t.Status == models.TripCompleted {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictUnassignedTrip,
				Description: fmt.Sprintf("%s has no %s", label, missing(t)),
				Date:        s.Date,
				TripIDs:     []int64{t.ID},
			})
		}
	}

	return result
}

func customerLabel(t models.Trip) string {
	if t.Customer.Code != "" {
		return t.Customer.Code
	}
	if t.Customer.Name != "" {
		return t.Customer.Name
	}
	return fmt.Sprintf("customer #%d", t.Customer.ID)
}

func missing(t models.Trip) string {
	switch {
	case !t.HasTanker() && !t.HasDriver():
		return "tanker or driver"
	case !t.HasTanker():
		return "tanker"
	case !t.HasDriver():
		return "driver"
	}
	return "assignment"
}
