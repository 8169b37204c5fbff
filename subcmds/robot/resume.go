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

type Resume struct {
	cmdutil.ClientFlags
}

func (c *Resume) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("resume", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Resume) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (robot name) argument")
	}
	req := &api.RobotResumeRequest{
		Name: args[0],
	}
	resp, err := cmdutil.Post[api.RobotResumeResponse](ctx, &c.ClientFlags, api.RobotResumePath, req)
	if err != nil {
		return err
	}
	fmt.Printf("robot %q is now %s\n", args[0], resp.FinalState)
	return nil
}

func (c *Resume) Synopsis() string {
	return "Resumes a paused robot"
}
