// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/envfile"
	"github.com/bvk/pricebot/subcmds"
	"github.com/bvk/pricebot/subcmds/db"
	"github.com/bvk/pricebot/subcmds/robot"
	"github.com/bvk/pricebot/subcmds/watch"
)

func main() {
	// Variables from the env file become PRICEBOT_* defaults for flags like
	// connect-port.
	if err := envfile.UpdateEnv("pricebot.env", envfile.VariableNamePrefix("PRICEBOT_")); err != nil {
		log.Fatal(err)
	}

	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Set),
		new(db.Edit),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	robotCmds := []cli.Command{
		new(robot.List),
		new(robot.Add),
		new(robot.Pause),
		new(robot.Resume),
		new(robot.Cancel),
	}

	watchCmds := []cli.Command{
		new(watch.Add),
		new(watch.Remove),
		new(watch.List),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Setup),
		new(subcmds.Alerts),
		cli.CommandGroup("robot", robotCmds...),
		cli.CommandGroup("watch", watchCmds...),
		cli.CommandGroup("db", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
