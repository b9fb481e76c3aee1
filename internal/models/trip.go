package models

import (
	"fmt"

	"github.com/julianstephens/fleetboard/internal/utils"
)

type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripUnassigned TripStatus = "unassigned"
	TripConflict   TripStatus = "conflict"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Known reports whether the status is one the service is known to send
func (s TripStatus) Known() bool {
	switch s {
	case TripScheduled, TripUnassigned, TripConflict, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Assigned reports whether a trip in this status counts as assigned
func (s TripStatus) Assigned() bool {
	return s == TripScheduled || s == TripCompleted
}

type CustomerRef struct {
	ID   int64  `json:"id" validate:"required"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type TankerRef struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

type DriverRef struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

type FuelBlendRef struct {
	ID   int64  `json:"id" validate:"required"`
	Code string `json:"code"`
}

type Trip struct {
	ID          int64         `json:"id" validate:"required"`
	ScheduleID  int64         `json:"daily_schedule_id"`
	TemplateID  *int64        `json:"template_id"`
	Customer    CustomerRef   `json:"customer"`
	Tanker      *TankerRef    `json:"tanker" validate:"omitempty"`
	Driver      *DriverRef    `json:"driver" validate:"omitempty"`
	StartTime   string        `json:"start_time"` // HH:MM:SS
	EndTime     string        `json:"end_time"`   // HH:MM:SS
	FuelBlend   *FuelBlendRef `json:"fuel_blend" validate:"omitempty"`
	Volume      int           `json:"volume" validate:"gte=0"`
	IsMobileOp  bool          `json:"is_mobile_op"`
	NeedsReturn bool          `json:"needs_return"`
	Status      TripStatus    `json:"status" validate:"required"`
	Notes       *string       `json:"notes"`
	CreatedAt   string        `json:"created_at,omitempty"`
}

// Minutes returns start and end as minutes from midnight. ok is false when
// either time is missing or malformed.
func (t Trip) Minutes() (start, end int, ok bool) {
	start, err := utils.ParseTimeToMinutes(t.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err = utils.ParseTimeToMinutes(t.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Overlaps reports whether two trips share any time. Trips with unusable times never overlap.
func (t Trip) Overlaps(other Trip) bool {
	s1, e1, ok1 := t.Minutes()
	s2, e2, ok2 := other.Minutes()
	if !ok1 || !ok2 {
		return false
	}
	return s1 < e2 && s2 < e1
}

func (t Trip) HasTanker() bool { return t.Tanker != nil && t.Tanker.ID != 0 }

func (t Trip) HasDriver() bool { return t.Driver != nil && t.Driver.ID != 0 }

// Validate checks the record invariants: start before end and a positive volume.
func (t Trip) Validate() error {
	start, end, ok := t.Minutes()
	if !ok {
		return fmt.Errorf("trip %d: invalid time range %q-%q", t.ID, t.StartTime, t.EndTime)
	}
	if start >= end {
		return fmt.Errorf("trip %d: start %s must be before end %s", t.ID, t.StartTime, t.EndTime)
	}
	if t.Volume <= 0 {
		return fmt.Errorf("trip %d: volume must be positive", t.ID)
	}
	return nil
}

// TripPatch is a partial trip update. Nil fields are left unchanged.
type TripPatch struct {
	CustomerID  *int64      `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	TankerID    *int64      `json:"tanker_id,omitempty" validate:"omitempty,gt=0"`
	DriverID    *int64      `json:"driver_id,omitempty" validate:"omitempty,gt=0"`
	StartTime   *string     `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime     *string     `json:"end_time,omitempty" validate:"omitempty,clock"`
	FuelBlendID *int64      `json:"fuel_blend_id,omitempty" validate:"omitempty,gt=0"`
	Volume      *int        `json:"volume,omitempty" validate:"omitempty,gt=0"`
	IsMobileOp  *bool       `json:"is_mobile_op,omitempty"`
	NeedsReturn *bool       `json:"needs_return,omitempty"`
	Status      *TripStatus `json:"status,omitempty" validate:"omitempty,oneof=scheduled unassigned conflict completed cancelled"`
	Notes       *string     `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p TripPatch) Empty() bool {
	return p == TripPatch{}
}

// TripAssignment sets or clears the tanker and driver of a trip.
type TripAssignment struct {
	TankerID *int64 `json:"tanker_id" validate:"omitempty,gt=0"`
	DriverID *int64 `json:"driver_id" validate:"omitempty,gt=0"`
}
