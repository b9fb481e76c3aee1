package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/tui"
	"github.com/julianstephens/fleetboard/internal/utils"
)

// TuiCmd opens the interactive dispatch board
type TuiCmd struct {
	Date    string `arg:"" optional:"" help:"Day to open on (defaults to today)."`
	By      string `help:"Initial grouping: trip-group, tanker or driver." default:"trip-group" enum:"trip-group,tanker,driver"`
	MinRest int    `help:"Minimum rest hours used by auto-assign (8-24)." default:"12"`
}

// options translates flags and config into model options.
func (c *TuiCmd) options(ctx *cli.Context) ([]tui.Option, error) {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return nil, err
	}
	dim, err := aggregator.ParseDimension(c.By)
	if err != nil {
		return nil, err
	}
	opts := []tui.Option{tui.WithDate(date), tui.WithDimension(dim), tui.WithMinRestHours(c.MinRest)}
	if ctx.Config != nil {
		loc, err := utils.LoadLocation(ctx.Config.Timezone)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tui.WithLocation(loc), tui.WithAlertRefresh(ctx.Config.AlertRefresh))
	}
	return opts, nil
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	opts, err := c.options(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := tui.New(runCtx, ctx.Engine, opts...)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
