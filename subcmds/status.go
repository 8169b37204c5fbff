// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Synopsis() string {
	return "Status prints a summary of the session and all robots"
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, &api.StatusRequest{})
	if err != nil {
		return err
	}

	fmt.Printf("Uptime: %s\n", resp.Uptime)
	if resp.SessionOpen {
		fmt.Printf("Session: open\n")
	} else {
		fmt.Printf("Session: closed, next open at %s\n", resp.NextOpen.Local().Format(time.RFC1123))
	}

	if len(resp.Robots) == 0 {
		fmt.Printf("No robots\n")
		return nil
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
