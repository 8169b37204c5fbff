// Copyright (c) 2023 BVK Chaitanya

package robot

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
)

type Pause struct {
	cmdutil.ClientFlags
}

func (c *Pause) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pause", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Pause) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (robot name) argument")
	}
	req := &api.RobotPauseRequest{
		Name: args[0],
	}
	resp, err := cmdutil.Post[api.RobotPauseResponse](ctx, &c.ClientFlags, api.RobotPausePath, req)
	if err != nil {
		return err
	}
	fmt.Printf("robot %q is now %s\n", args[0], resp.FinalState)
	return nil
}

func (c *Pause) Synopsis() string {
	return "Pauses a robot; it won't resume on restarts"
}
