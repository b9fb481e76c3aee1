package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

func positiveInt(field string, optional bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" && optional {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", field)
		}
		return nil
	}
}

func optionalClock(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || utils.ValidateTimeFormat(s) {
		return nil
	}
	return fmt.Errorf("use HH:MM")
}

// NewDeliveryForm builds the on-demand delivery form for date.
func NewDeliveryForm(fm *DeliveryFormModel, date string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("On-demand delivery").
				Description("Adds one trip to "+date),
			huh.NewInput().
				Title("Customer ID").
				Value(&fm.CustomerID).
				Validate(positiveInt("customer", false)),
			huh.NewInput().
				Title("Fuel blend ID").
				Description("Leave empty for the customer's default").
				Value(&fm.FuelBlend).
				Validate(positiveInt("fuel blend", true)),
			huh.NewInput().
				Title("Volume (L)").
				Value(&fm.Volume).
				Validate(positiveInt("volume", false)),
			huh.NewInput().
				Title("Preferred start (HH:MM)").
				Value(&fm.Start).
				Validate(optionalClock),
			huh.NewInput().
				Title("Preferred end (HH:MM)").
				Value(&fm.End).
				Validate(optionalClock),
			huh.NewInput().
				Title("Notes").
				Value(&fm.Notes),
			huh.NewConfirm().
				Title("Pick a tanker automatically?").
				Value(&fm.AutoAssign),
		),
	)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Request turns the form values into a service request.
func (fm DeliveryFormModel) Request() (models.OnDemandRequest, error) {
	customer, err := strconv.ParseInt(strings.TrimSpace(fm.CustomerID), 10, 64)
	if err != nil {
		return models.OnDemandRequest{}, fmt.Errorf("invalid customer id %q", fm.CustomerID)
	}
	volume, err := strconv.Atoi(strings.TrimSpace(fm.Volume))
	if err != nil {
		return models.OnDemandRequest{}, fmt.Errorf("invalid volume %q", fm.Volume)
	}
	req := models.OnDemandRequest{
		CustomerID:         customer,
		Volume:             volume,
		PreferredStartTime: optional(fm.Start),
		PreferredEndTime:   optional(fm.End),
		Notes:              optional(fm.Notes),
		AutoAssign:         fm.AutoAssign,
	}
	if s := strings.TrimSpace(fm.FuelBlend); s != "" {
		blend, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return models.OnDemandRequest{}, fmt.Errorf("invalid fuel blend id %q", fm.FuelBlend)
		}
		req.FuelBlendID = &blend
	}
	return req, nil
}
