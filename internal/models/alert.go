package models

import "fmt"

type AlertCode string

const (
	AlertUnassignedTrip    AlertCode = "UNASSIGNED_TRIP"
	AlertTripConflict      AlertCode = "TRIP_CONFLICT"
	AlertTankerMaintenance AlertCode = "TANKER_MAINTENANCE"
	AlertDriverNoSchedule  AlertCode = "DRIVER_NO_SCHEDULE"
)

// Alert is an operational warning raised by the service for a day.
type Alert struct {
	Type         string    `json:"type"` // warning, error, info
	Code         AlertCode `json:"code" validate:"required"`
	Message      string    `json:"message"`
	TripID       *int64    `json:"trip_id"`
	TankerID     *int64    `json:"tanker_id"`
	DriverID     *int64    `json:"driver_id"`
	CustomerCode *string   `json:"customer_code"`
}

// Subject names what the alert is about, for list rendering
func (a Alert) Subject() string {
	switch {
	case a.TripID != nil:
		return fmt.Sprintf("trip #%d", *a.TripID)
	case a.TankerID != nil:
		return fmt.Sprintf("tanker #%d", *a.TankerID)
	case a.DriverID != nil:
		return fmt.Sprintf("driver #%d", *a.DriverID)
	}
	return "schedule"
}

type AlertFeed struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	TotalAlerts int     `json:"total_alerts"`
	Alerts      []Alert `json:"alerts" validate:"dive"`
}
