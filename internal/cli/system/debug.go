package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/errors"
)

// DebugCmd prints raw Schedule Service payloads, skipping the cache
type DebugCmd struct {
	Config   DebugConfigCmd   `cmd:"" help:"Dump the effective settings as JSON (secrets redacted)."`
	Snapshot DebugSnapshotCmd `cmd:"" help:"Dump a day's schedule snapshot as JSON."`
	Trip     DebugTripCmd     `cmd:"" help:"Dump one trip as JSON."`
	Week     DebugWeekCmd     `cmd:"" help:"Dump a week's driver assignments as JSON."`
	Alerts   DebugAlertsCmd   `cmd:"" help:"Dump a day's alert feed as JSON."`
}

const redacted = "[redacted]"

func dump(ctx *cli.Context, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	ctx.Println(string(b))
	return nil
}

type DebugConfigCmd struct{}

func (cmd *DebugConfigCmd) Run(ctx *cli.Context) error {
	cfg := *ctx.Config
	if cfg.Token != "" {
		cfg.Token = redacted
	}
	if cfg.Notify.AMQPURL != "" {
		cfg.Notify.AMQPURL = redacted
	}
	cfg.Dev.Secret = redacted
	return dump(ctx, cfg)
}

type DebugSnapshotCmd struct {
	Date string `arg:"" optional:"" help:"Day to dump (YYYY-MM-DD, today, +N)."`
}

func (cmd *DebugSnapshotCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(cmd.Date)
	if err != nil {
		return err
	}
	snap, err := ctx.Service.GetSnapshot(context.Background(), date)
	if err != nil {
		return err
	}
	return dump(ctx, snap)
}

type DebugTripCmd struct {
	ID int64 `arg:"" help:"Trip ID."`
}

func (cmd *DebugTripCmd) Run(ctx *cli.Context) error {
	if cmd.ID <= 0 {
		return errors.Invalid("id", "trip id must be positive")
	}
	trip, err := ctx.Service.GetTrip(context.Background(), cmd.ID)
	if err != nil {
		return err
	}
	return dump(ctx, trip)
}

type DebugWeekCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week; it is moved back to Saturday."`
}

func (cmd *DebugWeekCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(cmd.Date)
	if err != nil {
		return err
	}
	week, err := calendar.NormalizeWeek(date)
	if err != nil {
		return err
	}
	w, err := ctx.Service.GetWeeklyAssignments(context.Background(), week)
	if err != nil {
		return err
	}
	return dump(ctx, w)
}

type DebugAlertsCmd struct {
	Date string `arg:"" optional:"" help:"Day to dump (YYYY-MM-DD, today, +N)."`
}

func (cmd *DebugAlertsCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(cmd.Date)
	if err != nil {
		return err
	}
	feed, err := ctx.Service.GetAlerts(context.Background(), date)
	if err != nil {
		return err
	}
	return dump(ctx, feed)
}
