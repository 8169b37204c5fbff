// Copyright (c) 2026 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/api"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

func (s *Server) addTelegramCommands(ctx context.Context) error {
	cmds := []struct {
		name, purpose string
		handler       cli.CmdFunc
	}{
		{"status", "Prints session and robot summary", s.cmdStatus},
		{"watch", "Lists watched tickers: /watch <robot>", s.cmdWatch},
		{"add", "Watches a ticker: /add <robot> <ticker> <BUY|SELL> <price>", s.cmdAdd},
		{"remove", "Removes a ticker: /remove <robot> <ticker>", s.cmdRemove},
		{"alerts", "Prints recent alerts: /alerts <robot>", s.cmdAlerts},
	}
	for _, c := range cmds {
		if err := s.telegram.AddCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return fmt.Errorf("could not add telegram command %q: %w", c.name, err)
		}
	}
	return nil
}

func (s *Server) cmdStatus(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	resp, err := s.doStatus(ctx, &api.StatusRequest{})
	if err != nil {
		return err
	}
	if resp.SessionOpen {
		fmt.Fprintln(stdout, "Session is open")
	} else {
		fmt.Fprintf(stdout, "Session is closed, next open at %s\n", resp.NextOpen.Format(time.RFC1123))
	}
	for _, r := range resp.Robots {
		fmt.Fprintf(stdout, "%s: %s with %d tickers\n", r.Name, r.State, r.NumTickers)
	}
	if len(resp.Robots) == 0 {
		fmt.Fprintln(stdout, "No robots")
	}
	return nil
}

func (s *Server) cmdWatch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /watch <robot>")
	}
	stdout := cli.Stdout(ctx)
	resp, err := s.doWatchList(ctx, &api.WatchListRequest{Robot: args[0]})
	if err != nil {
		return err
	}
	if len(resp.Tickers) == 0 {
		fmt.Fprintln(stdout, "Watch-list is empty")
		return nil
	}
	for _, t := range resp.Tickers {
		fmt.Fprintf(stdout, "%s %s %s: %s dwell %s last %s\n",
			t.Ticker, t.Direction, t.TargetPrice.StringFixed(2),
			t.Status, alert.FormatDwell(t.DwellSeconds), t.LastPrice.StringFixed(2))
	}
	return nil
}

func (s *Server) cmdAdd(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: /add <robot> <ticker> <BUY|SELL> <price>")
	}
	price, err := decimal.NewFromString(args[3])
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[3], err)
	}
	resp, err := s.doWatchAdd(ctx, &api.WatchAddRequest{
		Robot:       args[0],
		Ticker:      args[1],
		Direction:   args[2],
		TargetPrice: price,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Watching %s\n", resp.Ticker)
	return nil
}

func (s *Server) cmdRemove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: /remove <robot> <ticker>")
	}
	if _, err := s.doWatchRemove(ctx, &api.WatchRemoveRequest{Robot: args[0], Ticker: args[1]}); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Removed %s\n", args[1])
	return nil
}

func (s *Server) cmdAlerts(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /alerts <robot>")
	}
	stdout := cli.Stdout(ctx)
	resp, err := s.doAlertList(ctx, &api.AlertListRequest{Robot: args[0]})
	if err != nil {
		return err
	}
	if len(resp.Alerts) == 0 {
		fmt.Fprintln(stdout, "No alerts")
		return nil
	}
	for _, a := range resp.Alerts {
		fmt.Fprintf(stdout, "%s %s %s at %s after %s\n",
			a.At.Format("2006-01-02 15:04"), a.Ticker, a.Direction,
			a.Price.StringFixed(2), alert.FormatDwell(a.DwellSeconds))
	}
	return nil
}
