// Copyright (c) 2026 BVK Chaitanya

package server

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/job"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

// closedWindow returns session clock times that are guaranteed to be closed
// right now, so that test robots sleep instead of polling for prices.
func closedWindow() (open, close string) {
	if time.Now().UTC().Hour() == 0 {
		return "23:00", "23:59"
	}
	return "00:00", "00:01"
}

func TestServer(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	open, close := closedWindow()
	s, err := New(ctx, db, nil /* secrets */, &Options{
		SessionZone:  "UTC",
		SessionOpen:  open,
		SessionClose: close,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := s.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
	}()

	// Adding a ticker creates and starts the robot automatically.
	addResp, err := s.doWatchAdd(ctx, &api.WatchAddRequest{
		Robot:       "alpha",
		Ticker:      "PETR4",
		Direction:   "BUY",
		TargetPrice: decimal.NewFromFloat(35.50),
	})
	if err != nil {
		t.Fatal(err)
	}
	if addResp.Ticker != "PETR4.SA" {
		t.Fatalf("want normalized ticker PETR4.SA, got %q", addResp.Ticker)
	}

	listResp, err := s.doRobotList(ctx, &api.RobotListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(listResp.Robots) != 1 {
		t.Fatalf("want one robot, got %d", len(listResp.Robots))
	}
	if v := listResp.Robots[0]; v.Name != "alpha" || v.State != gobs.RUNNING {
		t.Fatalf("want robot alpha in state RUNNING, got %q in %q", v.Name, v.State)
	}

	watchResp, err := s.doWatchList(ctx, &api.WatchListRequest{Robot: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(watchResp.Tickers) != 1 {
		t.Fatalf("want one watched ticker, got %d", len(watchResp.Tickers))
	}
	if v := watchResp.Tickers[0]; v.Ticker != "PETR4.SA" || v.Direction != "BUY" {
		t.Fatalf("unexpected watch entry %+v", v)
	}

	pauseResp, err := s.doRobotPause(ctx, &api.RobotPauseRequest{Name: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if pauseResp.FinalState != gobs.PAUSED {
		t.Fatalf("want state PAUSED, got %q", pauseResp.FinalState)
	}

	// Manually paused robots are flagged so restarts won't resume them.
	jd, err := s.runner.Get(ctx, nil, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if jd.Flags&ManualFlag == 0 {
		t.Fatalf("want manual flag on paused robot")
	}

	resumeResp, err := s.doRobotResume(ctx, &api.RobotResumeRequest{Name: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if resumeResp.FinalState != gobs.RUNNING {
		t.Fatalf("want state RUNNING, got %q", resumeResp.FinalState)
	}
	if jd, err = s.runner.Get(ctx, nil, "alpha"); err != nil {
		t.Fatal(err)
	}
	if jd.Flags&ManualFlag != 0 {
		t.Fatalf("manual flag must be cleared on resume")
	}

	statusResp, err := s.doStatus(ctx, &api.StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if statusResp.SessionOpen {
		t.Fatalf("session must be closed in tests")
	}
	if len(statusResp.Robots) != 1 {
		t.Fatalf("want one robot in status, got %d", len(statusResp.Robots))
	}

	cancelResp, err := s.doRobotCancel(ctx, &api.RobotCancelRequest{Name: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if cancelResp.FinalState != gobs.CANCELED {
		t.Fatalf("want state CANCELED, got %q", cancelResp.FinalState)
	}
}

func TestServerResume(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	open, close := closedWindow()
	opts := &Options{
		SessionZone:  "UTC",
		SessionOpen:  open,
		SessionClose: close,
	}

	s, err := New(ctx, db, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.doRobotAdd(ctx, &api.RobotAddRequest{Name: "auto"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.doRobotAdd(ctx, &api.RobotAddRequest{Name: "manual"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.doRobotPause(ctx, &api.RobotPauseRequest{Name: "manual"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// A new server over the same database resumes only the robots that were
	// running and not manually paused.
	s, err = New(ctx, db, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	states := make(map[string]job.State)
	listResp, err := s.doRobotList(ctx, &api.RobotListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range listResp.Robots {
		states[v.Name] = job.State(v.State)
	}
	if states["auto"] != job.RUNNING {
		t.Fatalf("robot auto must be resumed, got %q", states["auto"])
	}
	if states["manual"] != job.PAUSED {
		t.Fatalf("robot manual must stay paused, got %q", states["manual"])
	}
}
