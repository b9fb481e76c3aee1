package schedule

import (
	"context"
	"errors"

	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/models"
)

type TripCmd struct {
	Update TripUpdateCmd `cmd:"" help:"Edit a trip's times, volume, status or notes."`
	Assign TripAssignCmd `cmd:"" help:"Set the tanker and driver of a trip."`
	Delete TripDeleteCmd `cmd:"" help:"Delete a trip."`
}

type TripUpdateCmd struct {
	ID     int64  `arg:"" help:"Trip ID."`
	Date   string `help:"Schedule date the trip belongs to." short:"d"`
	Start  string `help:"New start time (HH:MM)."`
	End    string `help:"New end time (HH:MM)."`
	Volume int    `help:"New volume in litres."`
	Status string `help:"New status (scheduled, unassigned, completed, cancelled)."`
	Notes  string `help:"Replace the trip notes."`
}

func (c *TripUpdateCmd) patch() models.TripPatch {
	var p models.TripPatch
	p.StartTime = cli.OptionalString(c.Start)
	p.EndTime = cli.OptionalString(c.End)
	p.Notes = cli.OptionalString(c.Notes)
	if c.Volume != 0 {
		v := c.Volume
		p.Volume = &v
	}
	if c.Status != "" {
		s := models.TripStatus(c.Status)
		p.Status = &s
	}
	return p
}

func (c *TripUpdateCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	trip, err := ctx.Engine.UpdateTrip(context.Background(), date, c.ID, c.patch())
	if err != nil {
		return err
	}
	ctx.Printf("✓ Trip #%d is now %s\n", trip.ID, trip.Status)
	return nil
}

type TripAssignCmd struct {
	ID     int64  `arg:"" help:"Trip ID."`
	Date   string `help:"Schedule date the trip belongs to." short:"d"`
	Tanker int64  `help:"Tanker ID. Omit to clear." short:"t"`
	Driver int64  `help:"Driver ID. Omit to clear." short:"r"`
}

func (c *TripAssignCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	trip, err := ctx.Engine.AssignTrip(context.Background(), date, c.ID, cli.OptionalID(c.Tanker), cli.OptionalID(c.Driver))
	if err != nil {
		return err
	}
	ctx.Printf("✓ Trip #%d is now %s\n", trip.ID, trip.Status)
	if trip.Status == models.TripConflict {
		ctx.Println("  ⚠ the tanker is already busy at that time")
	}
	return nil
}

type TripDeleteCmd struct {
	ID   int64  `arg:"" help:"Trip ID."`
	Date string `help:"Schedule date the trip belongs to." short:"d"`
	Yes  bool   `help:"Do not ask for confirmation." short:"y"`
}

func (c *TripDeleteCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		return errors.New("deleting a trip cannot be undone; pass --yes to confirm")
	}
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	if err := ctx.Engine.DeleteTrip(context.Background(), date, c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Trip #%d deleted\n", c.ID)
	return nil
}
