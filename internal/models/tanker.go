package models

type TankerStatus string

const (
	TankerActive      TankerStatus = "active"
	TankerMaintenance TankerStatus = "maintenance"
	TankerInactive    TankerStatus = "inactive"
)

type Tanker struct {
	ID           int64          `json:"id" validate:"required"`
	Name         string         `json:"name" validate:"required"`
	Registration *string        `json:"registration"`
	MaxCapacity  int            `json:"max_capacity" validate:"gte=0"`
	DeliveryType string         `json:"delivery_type"`
	Status       TankerStatus   `json:"status"`
	Is3PL        bool           `json:"is_3pl"`
	FuelBlends   []FuelBlendRef `json:"fuel_blends" validate:"dive"`
	IsActive     bool           `json:"is_active"`
}

func (t Tanker) Ref() TankerRef { return TankerRef{ID: t.ID, Name: t.Name} }

// Available reports whether the tanker can take trips today
func (t Tanker) Available() bool {
	return t.IsActive && t.Status != TankerMaintenance && t.Status != TankerInactive
}
