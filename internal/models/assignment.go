package models

type TripGroupRef struct {
	ID          int64   `json:"id" validate:"required"`
	Name        string  `json:"name"`
	DayOfWeek   int     `json:"day_of_week" validate:"gte=0,lte=6"`
	DayName     string  `json:"day_name"`
	Description *string `json:"description"`
}

// Assignment binds a driver to a trip group for one locale week.
type Assignment struct {
	ID         int64        `json:"id" validate:"required"`
	TripGroup  TripGroupRef `json:"trip_group"`
	Driver     DriverRef    `json:"driver"`
	WeekStart  string       `json:"week_start_date" validate:"required,datetime=2006-01-02"`
	AssignedAt string       `json:"assigned_at,omitempty"`
	Notes      *string      `json:"notes"`
}

type WeeklyAssignments struct {
	WeekStart        string         `json:"week_start_date" validate:"required,datetime=2006-01-02"`
	Assignments      []Assignment   `json:"assignments" validate:"dive"`
	UnassignedGroups []TripGroupRef `json:"unassigned_groups" validate:"dive"`
	AvailableDrivers []DriverRef    `json:"available_drivers" validate:"dive"`
}

// ForDay returns the assignments whose trip group runs on the locale day index
func (w WeeklyAssignments) ForDay(dayIndex int) []Assignment {
	var out []Assignment
	for _, a := range w.Assignments {
		if a.TripGroup.DayOfWeek == dayIndex {
			out = append(out, a)
		}
	}
	return out
}

type AssignmentRequest struct {
	TripGroupID int64   `json:"trip_group_id" validate:"required,gt=0"`
	DriverID    int64   `json:"driver_id" validate:"required,gt=0"`
	WeekStart   string  `json:"week_start_date" validate:"required,datetime=2006-01-02"`
	Notes       *string `json:"notes,omitempty"`
}

type AutoAssignRequest struct {
	WeekStart    string `json:"week_start_date" validate:"required,datetime=2006-01-02"`
	MinRestHours int    `json:"min_rest_hours" validate:"gte=8,lte=24"`
	DryRun       bool   `json:"dry_run"`
}

type UnassignedGroup struct {
	TripGroup TripGroupRef `json:"trip_group"`
	Driver    *DriverRef   `json:"driver"`
	Reason    string       `json:"reason"`
}

type AutoAssignResult struct {
	WeekStart          string            `json:"week_start_date" validate:"required"`
	AssignmentsCreated int               `json:"assignments_created"`
	GroupsUnassigned   int               `json:"groups_unassigned"`
	Assignments        []Assignment      `json:"assignments" validate:"dive"`
	Unassigned         []UnassignedGroup `json:"unassigned"`
	Message            string            `json:"message"`
}
