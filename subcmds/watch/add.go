// Copyright (c) 2023 BVK Chaitanya

package watch

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
)

type Add struct {
	cmdutil.ClientFlags

	robot string
}

func (c *Add) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.robot, "robot", "default", "name of the robot watching the ticker")
	return fset, cli.CmdFunc(c.run)
}

func (c *Add) CommandHelp() string {
	return `

Command "add" puts a ticker on a robot's watch-list. The robot polls the
ticker price while the trading session is open and sends a notification when
the price stays in the trigger zone past the dwell threshold.

For BUY entries the trigger zone is at or above the target price; for SELL
entries it is at or below. For example:

  $ pricebot watch add --robot=curto PETR4 BUY 35.50

`
}

func (c *Add) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("this command takes three (ticker, direction, price) arguments")
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid target price %q: %w", args[2], err)
	}
	req := &api.WatchAddRequest{
		Robot:       c.robot,
		Ticker:      args[0],
		Direction:   args[1],
		TargetPrice: price,
	}
	resp, err := cmdutil.Post[api.WatchAddResponse](ctx, &c.ClientFlags, api.WatchAddPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("robot %q is watching %s\n", c.robot, resp.Ticker)
	return nil
}

func (c *Add) Synopsis() string {
	return "Adds a ticker to a robot's watch-list"
}
