package fleet

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/julianstephens/fleetboard/internal/cli"
)

type TankersCmd struct {
	Compatible TankersCompatibleCmd `cmd:"" help:"List tankers able to serve a customer."`
}

type TankersCompatibleCmd struct {
	Customer int64 `arg:"" help:"Customer ID."`
	Trip     int64 `help:"Trip ID; excludes tankers busy at the trip's time."`
	All      bool  `help:"Include tankers that are not currently available."`
}

func (c *TankersCompatibleCmd) Run(ctx *cli.Context) error {
	tankers, err := ctx.Engine.CompatibleTankers(context.Background(), c.Customer, cli.OptionalID(c.Trip))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(ctx.Writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAPACITY\tTYPE\tSTATUS\tBLENDS")
	shown := 0
	for _, t := range tankers {
		if !c.All && !t.Available() {
			continue
		}
		blends := make([]string, 0, len(t.FuelBlends))
		for _, b := range t.FuelBlends {
			blends = append(blends, b.Code)
		}
		fmt.Fprintf(tw, "%d\t%s\t%dL\t%s\t%s\t%s\n", t.ID, t.Name, t.MaxCapacity, t.DeliveryType, t.Status, strings.Join(blends, ","))
		shown++
	}
	if shown == 0 {
		ctx.Println("No compatible tankers")
		return nil
	}
	return tw.Flush()
}
