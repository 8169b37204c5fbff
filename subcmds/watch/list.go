// Copyright (c) 2023 BVK Chaitanya

package watch

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
)

type List struct {
	cmdutil.ClientFlags

	robot string
}

func (c *List) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.robot, "robot", "default", "name of the robot to list")
	return fset, cli.CmdFunc(c.run)
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	req := &api.WatchListRequest{
		Robot: c.robot,
	}
	resp, err := cmdutil.Post[api.WatchListResponse](ctx, &c.ClientFlags, api.WatchListPath, req)
	if err != nil {
		return err
	}

	if len(resp.Tickers) == 0 {
		fmt.Printf("robot %q has no watched tickers\n", c.robot)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "TICKER\tDIRECTION\tTARGET\tSTATUS\tDWELL\tLAST PRICE\t\n")
	for _, t := range resp.Tickers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.Ticker, t.Direction, t.TargetPrice.StringFixed(2),
			t.Status, alert.FormatDwell(t.DwellSeconds), t.LastPrice.StringFixed(2))
	}
	return tw.Flush()
}

func (c *List) Synopsis() string {
	return "Prints a robot's watch-list with dwell progress"
}
