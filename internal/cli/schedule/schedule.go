package schedule

import (
	"context"
	"fmt"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/cli"
)

type ScheduleCmd struct {
	Show     ShowCmd     `cmd:"" help:"Show a day's schedule on a timeline." default:"withargs"`
	Generate GenerateCmd `cmd:"" help:"Generate a day's trips from the weekly templates."`
	Lock     LockCmd     `cmd:"" help:"Lock a day against edits."`
	Unlock   UnlockCmd   `cmd:"" help:"Unlock a day."`
	Check    CheckCmd    `cmd:"" help:"Review a day for unstaffed groups, conflicts and bad trips."`
}

type ShowCmd struct {
	Date  string `arg:"" optional:"" help:"Date (YYYY-MM-DD, today, tomorrow, +N)."`
	By    string `help:"Group rows by trip-group, tanker or driver." default:"trip-group" short:"b"`
	Trips bool   `help:"List the trips under each row." default:"true" negatable:""`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	dim, err := aggregator.ParseDimension(c.By)
	if err != nil {
		return err
	}
	view, err := ctx.Engine.Board(context.Background(), date, dim)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	cli.WriteBoard(ctx.Writer(), view, c.Trips)
	return nil
}

type GenerateCmd struct {
	Date      string `arg:"" optional:"" help:"Date to generate."`
	Overwrite bool   `help:"Replace an existing schedule for the day." short:"f"`
}

func (c *GenerateCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.GenerateSchedule(context.Background(), date, c.Overwrite)
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s\n", res.Message)
	if res.TripsSkipped > 0 {
		ctx.Printf("  %d template(s) skipped\n", res.TripsSkipped)
	}
	return nil
}

type LockCmd struct {
	Date string `arg:"" optional:"" help:"Date to lock."`
}

func (c *LockCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.LockSchedule(context.Background(), date)
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s\n", res.Message)
	return nil
}

type UnlockCmd struct {
	Date string `arg:"" optional:"" help:"Date to unlock."`
}

func (c *UnlockCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.UnlockSchedule(context.Background(), date)
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s\n", res.Message)
	return nil
}

type CheckCmd struct {
	Date string `arg:"" optional:"" help:"Date to review."`
}

func (c *CheckCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.Review(context.Background(), date)
	if err != nil {
		return err
	}
	ctx.Printf("%s", res.FormatReport())
	return nil
}
