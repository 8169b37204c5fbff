// Copyright (c) 2023 BVK Chaitanya

package watch

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
)

type Remove struct {
	cmdutil.ClientFlags

	robot string
}

func (c *Remove) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("remove", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.robot, "robot", "default", "name of the robot watching the ticker")
	return fset, cli.CmdFunc(c.run)
}

func (c *Remove) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (ticker) argument")
	}
	req := &api.WatchRemoveRequest{
		Robot:  c.robot,
		Ticker: args[0],
	}
	if _, err := cmdutil.Post[api.WatchRemoveResponse](ctx, &c.ClientFlags, api.WatchRemovePath, req); err != nil {
		return err
	}
	fmt.Printf("robot %q is no longer watching %s\n", c.robot, args[0])
	return nil
}

func (c *Remove) Synopsis() string {
	return "Removes a ticker from a robot's watch-list"
}
