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

type Cancel struct {
	cmdutil.ClientFlags
}

func (c *Cancel) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("cancel", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Cancel) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (robot name) argument")
	}
	req := &api.RobotCancelRequest{
		Name: args[0],
	}
	resp, err := cmdutil.Post[api.RobotCancelResponse](ctx, &c.ClientFlags, api.RobotCancelPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("robot %q is now %s\n", args[0], resp.FinalState)
	return nil
}

func (c *Cancel) Synopsis() string {
	return "Cancels a robot permanently"
}
