package system

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/notifier"
)

// NotifyCmd sends a test outcome through the configured notification sinks
type NotifyCmd struct {
	Message string `arg:"" optional:"" help:"Message to send." default:"fleetboard notifications are working"`
	Fail    bool   `help:"Send it as a failure outcome."`
	DryRun  bool   `help:"Print the notification instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	o := cache.Outcome{Operation: "notify test", Message: c.Message, At: time.Now()}
	if c.Fail {
		o.Err = errors.New(c.Message)
	}
	if c.DryRun {
		ctx.Println("[DryRun] " + notifier.Text(o))
		return nil
	}
	if ctx.Notifier == nil {
		return errors.New("no notification sinks configured")
	}
	if err := ctx.Notifier.Notify(context.Background(), o); err != nil {
		return err
	}
	ctx.Println("✓ Notification sent")
	return nil
}
