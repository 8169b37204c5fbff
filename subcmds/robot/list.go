// Copyright (c) 2023 BVK Chaitanya

package robot

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
)

type List struct {
	cmdutil.ClientFlags
}

func (c *List) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	req := &api.RobotListRequest{}
	resp, err := cmdutil.Post[api.RobotListResponse](ctx, &c.ClientFlags, api.RobotListPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tSTATE\tTICKERS\t\n")
	for _, r := range resp.Robots {
		state := r.State
		if r.ManualFlag {
			state = state + " (manual)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", r.Name, state, r.NumTickers)
	}
	return tw.Flush()
}

func (c *List) Synopsis() string {
	return "Prints robot names and states"
}
