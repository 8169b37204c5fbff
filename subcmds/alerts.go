// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
	"github.com/bvk/pricebot/timerange"
)

type Alerts struct {
	cmdutil.ClientFlags

	robot string

	beginTime, endTime string
}

func (c *Alerts) Synopsis() string {
	return "Alerts prints a robot's recent alert history"
}

func (c *Alerts) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("alerts", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.robot, "robot", "default", "name of the robot to list")
	fset.StringVar(&c.beginTime, "begin-time", "", "begin time for the alert history")
	fset.StringVar(&c.endTime, "end-time", "", "end time for the alert history")
	return fset, cli.CmdFunc(c.run)
}

func (c *Alerts) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	now := time.Now()
	parseTime := func(s string) (time.Time, error) {
		if d, err := time.ParseDuration(s); err == nil {
			return now.Add(d), nil
		}
		if v, err := time.Parse("2006-01-02", s); err == nil {
			return v, nil
		}
		return time.Parse(time.RFC3339, s)
	}

	var period timerange.Range
	if len(c.beginTime) > 0 {
		v, err := parseTime(c.beginTime)
		if err != nil {
			return err
		}
		period.Begin = v
	}
	if len(c.endTime) > 0 {
		v, err := parseTime(c.endTime)
		if err != nil {
			return err
		}
		period.End = v
	}

	req := &api.AlertListRequest{
		Robot:  c.robot,
		Period: &period,
	}
	resp, err := cmdutil.Post[api.AlertListResponse](ctx, &c.ClientFlags, api.AlertListPath, req)
	if err != nil {
		return err
	}

	if len(resp.Alerts) == 0 {
		fmt.Printf("robot %q has no alerts\n", c.robot)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tTICKER\tDIRECTION\tTARGET\tPRICE\tDWELL\t\n")
	for _, a := range resp.Alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			a.At.Local().Format("2006-01-02 15:04"), a.Ticker, a.Direction,
			a.TargetPrice.StringFixed(2), a.Price.StringFixed(2),
			alert.FormatDwell(a.DwellSeconds))
	}
	return tw.Flush()
}
