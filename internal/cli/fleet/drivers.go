package fleet

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/classifier"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/utils"
)

type DriverCmd struct {
	List   DriverListCmd   `cmd:"" help:"List active drivers." default:"1"`
	Status DriverStatusCmd `cmd:"" help:"Show or set a driver's status for a day."`
	Bulk   DriverBulkCmd   `cmd:"" help:"Set one status on many days in a single request."`
	Month  DriverMonthCmd  `cmd:"" help:"Show the month calendar for one or all drivers."`
}

type DriverListCmd struct{}

func (c *DriverListCmd) Run(ctx *cli.Context) error {
	drivers, err := ctx.Engine.Drivers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list drivers: %w", err)
	}
	if len(drivers) == 0 {
		ctx.Println("No active drivers")
		return nil
	}
	tw := tabwriter.NewWriter(ctx.Writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMPLOYEE\tTYPE")
	for _, d := range drivers {
		emp := "-"
		if d.EmployeeID != nil {
			emp = *d.EmployeeID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Name, emp, d.DriverType)
	}
	return tw.Flush()
}

type DriverStatusCmd struct {
	Driver int64  `arg:"" help:"Driver ID."`
	Date   string `arg:"" optional:"" help:"Date (defaults to today)."`
	Set    string `help:"Status to set: working, off, holiday or float."`
	Notes  string `help:"Notes for the day."`
}

func (c *DriverStatusCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	bg := context.Background()
	if c.Set == "" {
		status, err := ctx.Engine.DriverDayStatus(bg, c.Driver, date)
		if err != nil {
			return err
		}
		t := classifier.DayStatusTreatment(status)
		ctx.Printf("Driver #%d on %s: %s %s\n", c.Driver, date, t.Symbol, t.Label)
		return nil
	}
	day, err := ctx.Engine.SetDriverDayStatus(bg, c.Driver, date, models.DriverDayStatus(c.Set), cli.OptionalString(c.Notes))
	if err != nil {
		return err
	}
	ctx.Printf("✓ Driver #%d is %s on %s\n", c.Driver, day.Status, day.Date)
	return nil
}

type DriverBulkCmd struct {
	Driver int64    `arg:"" help:"Driver ID."`
	Status string   `arg:"" help:"Status: working, off, holiday or float."`
	Dates  []string `arg:"" help:"Dates or ranges (2025-06-10..2025-06-14), comma or space separated."`
}

func (c *DriverBulkCmd) Run(ctx *cli.Context) error {
	dates, err := ctx.ResolveDates(c.Dates)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.BulkSetDriverDayStatus(context.Background(), c.Driver, dates, models.DriverDayStatus(c.Status))
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s (%d created, %d updated)\n", res.Message, res.Created, res.Updated)
	return nil
}

type DriverMonthCmd struct {
	Driver int64  `arg:"" optional:"" help:"Driver ID; all active drivers when omitted."`
	Month  string `help:"Month as YYYY-MM (defaults to the current month)." short:"m"`
}

func (c *DriverMonthCmd) yearMonth(ctx *cli.Context) (int, time.Month, error) {
	if c.Month == "" {
		t, err := utils.ParseDate(ctx.Today())
		if err != nil {
			return 0, 0, err
		}
		return t.Year(), t.Month(), nil
	}
	t, err := time.Parse("2006-01", c.Month)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", c.Month)
	}
	return t.Year(), t.Month(), nil
}

func (c *DriverMonthCmd) Run(ctx *cli.Context) error {
	year, month, err := c.yearMonth(ctx)
	if err != nil {
		return err
	}
	bg := context.Background()
	var rows []aggregator.DriverMonth
	if c.Driver != 0 {
		row, err := ctx.Engine.DriverMonth(bg, c.Driver, year, month)
		if err != nil {
			return err
		}
		rows = []aggregator.DriverMonth{row}
	} else if rows, err = ctx.Engine.Month(bg, year, month); err != nil {
		return err
	}
	WriteMonth(ctx, year, month, rows)
	return nil
}

// WriteMonth prints one line per driver with a symbol per day. Weekend
// columns are separated so Saturday-first weeks stay readable.
func WriteMonth(ctx *cli.Context, year int, month time.Month, rows []aggregator.DriverMonth) {
	ctx.Printf("%s %d\n", month, year)

	name := 10
	for _, r := range rows {
		name = max(name, len([]rune(r.Driver.Name)))
	}
	var head strings.Builder
	for day := range calendar.Month(year, month) {
		if day.Index == 0 && day.Date.Day() != 1 {
			head.WriteString(" ")
		}
		head.WriteString(calendar.DayName(day.Index)[:1])
	}
	ctx.Printf("%-*s  %s\n", name, "", head.String())

	for _, r := range rows {
		var line strings.Builder
		for _, cell := range r.Cells {
			if cell.Day.Index == 0 && cell.Day.Date.Day() != 1 {
				line.WriteString(" ")
			}
			line.WriteString(classifier.DayStatusTreatment(cell.Status).Symbol)
		}
		ctx.Printf("%-*s  %s  W%d O%d H%d F%d\n", name, r.Driver.Name, line.String(),
			r.Counts[models.DriverWorking], r.Counts[models.DriverOff],
			r.Counts[models.DriverHoliday], r.Counts[models.DriverFloat])
	}
}
