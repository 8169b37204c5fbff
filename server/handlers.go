// Copyright (c) 2026 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/job"
	"github.com/bvkgo/kv"
)

func (s *Server) robotItems(ctx context.Context) ([]*api.RobotListResponseItem, error) {
	var items []*api.RobotListResponseItem
	scan := func(ctx context.Context, _ kv.Reader, jd *job.JobData) error {
		if jd.Typename != robotTypename {
			return nil
		}
		item := &api.RobotListResponseItem{
			Name:       jd.UID,
			State:      string(jd.State),
			ManualFlag: jd.Flags&ManualFlag != 0,
		}
		if r, ok := s.robotMap.Load(jd.UID); ok {
			item.NumTickers = len(r.StatusSnapshot())
		}
		items = append(items, item)
		return nil
	}
	if err := s.runner.Scan(ctx, nil, scan); err != nil {
		return nil, fmt.Errorf("could not scan robot jobs: %w", err)
	}
	return items, nil
}

func (s *Server) doRobotList(ctx context.Context, req *api.RobotListRequest) (*api.RobotListResponse, error) {
	items, err := s.robotItems(ctx)
	if err != nil {
		return nil, err
	}
	return &api.RobotListResponse{Robots: items}, nil
}

// doRobotAdd creates a new robot job and starts it right away.
func (s *Server) doRobotAdd(ctx context.Context, req *api.RobotAddRequest) (*api.RobotAddResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := s.runner.Add(ctx, nil, req.Name, robotTypename); err != nil {
		return nil, err
	}
	r, err := s.getRobot(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.runner.Resume(ctx, req.Name, s.makeJobFunc(r), s.closeCtx); err != nil {
		return nil, fmt.Errorf("could not start robot %q: %w", req.Name, err)
	}
	return &api.RobotAddResponse{}, nil
}

func (s *Server) doRobotResume(ctx context.Context, req *api.RobotResumeRequest) (*api.RobotResumeResponse, error) {
	r, err := s.getRobot(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.runner.Resume(ctx, req.Name, s.makeJobFunc(r), s.closeCtx); err != nil {
		return nil, err
	}
	if err := s.runner.UpdateFlags(ctx, nil, req.Name, 0); err != nil {
		return nil, fmt.Errorf("could not clear manual flag: %w", err)
	}
	jd, err := s.runner.Get(ctx, nil, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.RobotResumeResponse{FinalState: string(jd.State)}, nil
}

func (s *Server) doRobotPause(ctx context.Context, req *api.RobotPauseRequest) (*api.RobotPauseResponse, error) {
	if err := s.runner.Pause(ctx, req.Name); err != nil {
		return nil, err
	}
	// Robots paused by hand must stay paused across server restarts.
	if err := s.runner.UpdateFlags(ctx, nil, req.Name, ManualFlag); err != nil {
		return nil, fmt.Errorf("could not set manual flag: %w", err)
	}
	jd, err := s.runner.Get(ctx, nil, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.RobotPauseResponse{FinalState: string(jd.State)}, nil
}

func (s *Server) doRobotCancel(ctx context.Context, req *api.RobotCancelRequest) (*api.RobotCancelResponse, error) {
	state, err := s.runner.Cancel(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.RobotCancelResponse{FinalState: string(state)}, nil
}

// doWatchAdd adds a ticker to a robot's watch-list. The robot job is created
// and started automatically when it doesn't exist yet.
func (s *Server) doWatchAdd(ctx context.Context, req *api.WatchAddRequest) (*api.WatchAddResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}

	if _, err := s.runner.Get(ctx, nil, req.Robot); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if _, err := s.doRobotAdd(ctx, &api.RobotAddRequest{Name: req.Robot}); err != nil {
			return nil, err
		}
	}

	r, err := s.getRobot(req.Robot)
	if err != nil {
		return nil, err
	}

	entry := &gobs.WatchEntry{
		Ticker:      s.source.Normalize(req.Ticker),
		Direction:   req.Direction,
		TargetPrice: req.TargetPrice,
	}
	if err := r.AddTicker(ctx, entry); err != nil {
		return nil, err
	}
	return &api.WatchAddResponse{Ticker: entry.Ticker}, nil
}

func (s *Server) doWatchRemove(ctx context.Context, req *api.WatchRemoveRequest) (*api.WatchRemoveResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	r, err := s.getRobot(req.Robot)
	if err != nil {
		return nil, err
	}
	if err := r.RemoveTicker(ctx, s.source.Normalize(req.Ticker)); err != nil {
		return nil, err
	}
	return &api.WatchRemoveResponse{}, nil
}

func (s *Server) doWatchList(ctx context.Context, req *api.WatchListRequest) (*api.WatchListResponse, error) {
	r, err := s.getRobot(req.Robot)
	if err != nil {
		return nil, err
	}
	resp := new(api.WatchListResponse)
	for _, ts := range r.StatusSnapshot() {
		resp.Tickers = append(resp.Tickers, &api.WatchListResponseItem{
			Ticker:       ts.Ticker,
			Direction:    ts.Direction,
			TargetPrice:  ts.TargetPrice,
			Status:       string(ts.Status),
			InZone:       ts.InZone,
			DwellSeconds: ts.DwellSeconds,
			LastPrice:    ts.LastPrice,
			LastSeen:     ts.LastSeen,
		})
	}
	return resp, nil
}

func (s *Server) doAlertList(ctx context.Context, req *api.AlertListRequest) (*api.AlertListResponse, error) {
	r, err := s.getRobot(req.Robot)
	if err != nil {
		return nil, err
	}
	resp := new(api.AlertListResponse)
	for _, rec := range r.Alerts() {
		if req.Period != nil && !req.Period.InRange(rec.At) {
			continue
		}
		resp.Alerts = append(resp.Alerts, &api.AlertListResponseItem{
			At:           rec.At,
			Ticker:       rec.Ticker,
			Direction:    rec.Direction,
			TargetPrice:  rec.TargetPrice,
			Price:        rec.Price,
			DwellSeconds: rec.DwellSeconds,
		})
	}
	return resp, nil
}

func (s *Server) doStatus(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	items, err := s.robotItems(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &api.StatusResponse{
		Uptime:      time.Since(s.start).Truncate(time.Second).String(),
		SessionOpen: s.window.In(now),
		NextOpen:    s.window.NextOpen(now),
		Robots:      items,
	}, nil
}
