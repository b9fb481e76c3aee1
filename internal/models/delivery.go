package models

// OnDemandRequest asks the service to slot an extra delivery into a day.
type OnDemandRequest struct {
	CustomerID         int64   `json:"customer_id" validate:"required,gt=0"`
	FuelBlendID        *int64  `json:"fuel_blend_id,omitempty" validate:"omitempty,gt=0"`
	Volume             int     `json:"volume" validate:"required,gt=0"`
	PreferredStartTime *string `json:"preferred_start_time,omitempty" validate:"omitempty,clock"`
	PreferredEndTime   *string `json:"preferred_end_time,omitempty" validate:"omitempty,clock"`
	Notes              *string `json:"notes,omitempty"`
	AutoAssign         bool    `json:"auto_assign"`
}

type OnDemandResult struct {
	Trip           Trip       `json:"trip"`
	AutoAssigned   bool       `json:"auto_assigned"`
	AssignedTanker *TankerRef `json:"assigned_tanker" validate:"omitempty"`
	Message        string     `json:"message"`
}
