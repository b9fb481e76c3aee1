package alerts

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/models"
)

type AlertsCmd struct {
	Date  string        `arg:"" optional:"" help:"Date to report on (defaults to today)."`
	Watch bool          `help:"Keep refreshing until interrupted." short:"w"`
	Every time.Duration `help:"Refresh interval for --watch (defaults to the configured alert refresh)."`
}

func (c *AlertsCmd) interval(ctx *cli.Context) time.Duration {
	switch {
	case c.Every > 0:
		return c.Every
	case ctx.Config != nil && ctx.Config.AlertRefresh > 0:
		return ctx.Config.AlertRefresh
	}
	return time.Minute
}

func (c *AlertsCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	bg := context.Background()
	feed, err := ctx.Engine.Alerts(bg, date)
	if err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}
	WriteFeed(ctx, date, feed)
	if !c.Watch {
		return nil
	}

	sigCtx, stop := signal.NotifyContext(bg, os.Interrupt)
	defer stop()
	stopWatch := ctx.Engine.WatchAlerts(sigCtx, date, c.interval(ctx), func(f models.AlertFeed, err error) {
		if err != nil {
			ctx.Printf("⚠ refresh failed: %v\n", err)
			return
		}
		ctx.Println()
		WriteFeed(ctx, date, f)
	})
	defer stopWatch()
	<-sigCtx.Done()
	return nil
}

func WriteFeed(ctx *cli.Context, date string, feed models.AlertFeed) {
	if len(feed.Alerts) == 0 {
		ctx.Printf("No alerts for %s\n", date)
		return
	}
	ctx.Printf("%d alert(s) for %s\n", len(feed.Alerts), date)
	tw := tabwriter.NewWriter(ctx.Writer(), 0, 0, 2, ' ', 0)
	for _, a := range feed.Alerts {
		icon := "ℹ"
		switch a.Type {
		case "error":
			icon = "❌"
		case "warning":
			icon = "⚠"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", icon, a.Code, a.Subject(), a.Message)
	}
	tw.Flush()
}
