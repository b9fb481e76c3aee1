package assignments

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/models"
)

type AssignCmd struct {
	Show  AssignShowCmd  `cmd:"" help:"Show the week's driver assignments." default:"withargs"`
	Add   AssignAddCmd   `cmd:"" help:"Assign a driver to a trip group for a week."`
	Rm    AssignRmCmd    `cmd:"" help:"Remove an assignment."`
	Auto  AssignAutoCmd  `cmd:"" help:"Let the service fill the week's unassigned groups."`
	Clear AssignClearCmd `cmd:"" help:"Remove every assignment of a week."`
}

type AssignShowCmd struct {
	Week string `arg:"" optional:"" help:"Any date in the week (defaults to this week)."`
}

func (c *AssignShowCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Week)
	if err != nil {
		return err
	}
	week, err := ctx.Engine.WeeklyAssignments(context.Background(), date)
	if err != nil {
		return err
	}
	WriteWeek(ctx, week)
	return nil
}

// WriteWeek prints the week day by day, Saturday first.
func WriteWeek(ctx *cli.Context, week models.WeeklyAssignments) {
	ctx.Printf("Week of %s\n", week.WeekStart)
	tw := tabwriter.NewWriter(ctx.Writer(), 0, 0, 2, ' ', 0)
	for i := range constants.DaysPerWeek {
		for _, a := range week.ForDay(i) {
			fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\n", calendar.DayName(i), a.ID, a.TripGroup.Name, a.Driver.Name)
		}
	}
	tw.Flush()
	if len(week.UnassignedGroups) > 0 {
		ctx.Println("Unassigned groups:")
		for _, g := range week.UnassignedGroups {
			ctx.Printf("  %s (%s)\n", g.Name, calendar.DayName(g.DayOfWeek))
		}
	}
	if len(week.AvailableDrivers) > 0 {
		ctx.Printf("%d driver(s) available\n", len(week.AvailableDrivers))
	}
}

type AssignAddCmd struct {
	Group  int64  `arg:"" help:"Trip group ID."`
	Driver int64  `arg:"" help:"Driver ID."`
	Week   string `help:"Any date in the week (defaults to this week)." short:"w"`
	Notes  string `help:"Assignment notes."`
}

func (c *AssignAddCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Week)
	if err != nil {
		return err
	}
	a, err := ctx.Engine.CreateAssignment(context.Background(), c.Group, c.Driver, date, cli.OptionalString(c.Notes))
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s drives %s for the week of %s (#%d)\n", a.Driver.Name, a.TripGroup.Name, a.WeekStart, a.ID)
	return nil
}

type AssignRmCmd struct {
	ID   int64  `arg:"" help:"Assignment ID."`
	Week string `help:"Any date in the assignment's week." short:"w"`
}

func (c *AssignRmCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Week)
	if err != nil {
		return err
	}
	if err := ctx.Engine.DeleteAssignment(context.Background(), c.ID, date); err != nil {
		return err
	}
	ctx.Printf("✓ Assignment #%d removed\n", c.ID)
	return nil
}

type AssignAutoCmd struct {
	Week    string `arg:"" optional:"" help:"Any date in the week."`
	MinRest int    `help:"Minimum rest hours between shifts (8-24)." default:"12"`
	DryRun  bool   `help:"Show the proposal without saving it." short:"n"`
}

func (c *AssignAutoCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Week)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.AutoAssign(context.Background(), date, c.MinRest, c.DryRun)
	if err != nil {
		return err
	}
	ctx.Printf("%s\n", res.Message)
	tw := tabwriter.NewWriter(ctx.Writer(), 0, 0, 2, ' ', 0)
	for _, a := range res.Assignments {
		fmt.Fprintf(tw, "  +\t%s\t%s\t%s\n", calendar.DayName(a.TripGroup.DayOfWeek), a.TripGroup.Name, a.Driver.Name)
	}
	for _, u := range res.Unassigned {
		fmt.Fprintf(tw, "  -\t%s\t%s\t%s\n", calendar.DayName(u.TripGroup.DayOfWeek), u.TripGroup.Name, u.Reason)
	}
	return tw.Flush()
}

type AssignClearCmd struct {
	Week string `arg:"" optional:"" help:"Any date in the week."`
	Yes  bool   `help:"Do not ask for confirmation." short:"y"`
}

func (c *AssignClearCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		return errors.New("clearing a week removes every assignment; pass --yes to confirm")
	}
	date, err := ctx.ResolveDate(c.Week)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.ClearWeekAssignments(context.Background(), date)
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s\n", res.Message)
	return nil
}
