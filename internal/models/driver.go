package models

type DriverDayStatus string

const (
	DriverWorking DriverDayStatus = "working"
	DriverOff     DriverDayStatus = "off"
	DriverHoliday DriverDayStatus = "holiday"
	DriverFloat   DriverDayStatus = "float"
)

func (s DriverDayStatus) Valid() bool {
	switch s {
	case DriverWorking, DriverOff, DriverHoliday, DriverFloat:
		return true
	}
	return false
}

// DriverDayStatuses lists statuses in display order
var DriverDayStatuses = []DriverDayStatus{DriverWorking, DriverOff, DriverHoliday, DriverFloat}

type Driver struct {
	ID         int64   `json:"id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	EmployeeID *string `json:"employee_id"`
	DriverType string  `json:"driver_type"`
	Phone      *string `json:"contact_phone"`
	IsActive   bool    `json:"is_active"`
}

func (d Driver) Ref() DriverRef { return DriverRef{ID: d.ID, Name: d.Name} }

type DriverPage struct {
	Items   []Driver `json:"items" validate:"dive"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Pages   int      `json:"pages"`
}

// DriverDay is the availability of one driver on one date.
type DriverDay struct {
	ID       int64           `json:"id"`
	DriverID int64           `json:"driver_id" validate:"required"`
	Date     string          `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	Status   DriverDayStatus `json:"status" validate:"required"`
	Notes    *string         `json:"notes"`
}

type DriverDayRequest struct {
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Status DriverDayStatus `json:"status" validate:"required,oneof=working off holiday float"`
	Notes  *string         `json:"notes,omitempty"`
}

type BulkDriverDayRequest struct {
	Dates  []string        `json:"dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	Status DriverDayStatus `json:"status" validate:"required,oneof=working off holiday float"`
}

type BulkResult struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// DriverCalendarEntry is one day in the all-driver schedule listing
type DriverCalendarEntry struct {
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Status DriverDayStatus `json:"status"`
	Notes  *string         `json:"notes"`
}

// DriverCalendar is one driver's entries in the all-driver schedule listing
type DriverCalendar struct {
	DriverName string                `json:"driver_name"`
	DriverType string                `json:"driver_type"`
	Schedules  []DriverCalendarEntry `json:"schedules" validate:"dive"`
}

// Days converts the listing entries of driverID into DriverDay records
func (c DriverCalendar) Days(driverID int64) []DriverDay {
	out := make([]DriverDay, 0, len(c.Schedules))
	for _, e := range c.Schedules {
		out = append(out, DriverDay{DriverID: driverID, Date: e.Date, Status: e.Status, Notes: e.Notes})
	}
	return out
}
