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

type Add struct {
	cmdutil.ClientFlags
}

func (c *Add) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Add) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (robot name) argument")
	}
	req := &api.RobotAddRequest{
		Name: args[0],
	}
	if _, err := cmdutil.Post[api.RobotAddResponse](ctx, &c.ClientFlags, api.RobotAddPath, req); err != nil {
		return err
	}
	fmt.Printf("robot %q is created and started\n", args[0])
	return nil
}

func (c *Add) Synopsis() string {
	return "Creates a new robot and starts it"
}
