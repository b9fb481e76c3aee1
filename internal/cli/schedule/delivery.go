package schedule

import (
	"context"

	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/models"
)

type DeliveryCmd struct {
	Add DeliveryAddCmd `cmd:"" help:"Add an on-demand delivery to a day."`
}

type DeliveryAddCmd struct {
	Customer   int64  `arg:"" help:"Customer ID."`
	Volume     int    `arg:"" help:"Volume in litres."`
	Date       string `help:"Delivery date." short:"d"`
	Blend      int64  `help:"Fuel blend ID."`
	From       string `help:"Preferred window start (HH:MM)."`
	To         string `help:"Preferred window end (HH:MM)."`
	Notes      string `help:"Delivery notes."`
	AutoAssign bool   `help:"Let the service pick a compatible tanker." default:"true" negatable:""`
}

func (c *DeliveryAddCmd) Request() models.OnDemandRequest {
	return models.OnDemandRequest{
		CustomerID:         c.Customer,
		FuelBlendID:        cli.OptionalID(c.Blend),
		Volume:             c.Volume,
		PreferredStartTime: cli.OptionalString(c.From),
		PreferredEndTime:   cli.OptionalString(c.To),
		Notes:              cli.OptionalString(c.Notes),
		AutoAssign:         c.AutoAssign,
	}
}

func (c *DeliveryAddCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.CreateOnDemandDelivery(context.Background(), date, c.Request())
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s\n", res.Message)
	if res.AssignedTanker != nil {
		ctx.Printf("  tanker: %s\n", res.AssignedTanker.Name)
	}
	return nil
}
