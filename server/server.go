// Copyright (c) 2026 BVK Chaitanya

// Package server hosts price alert robots behind an http api. It owns the
// shared job runner, the price source, the state store and the notification
// channels, and hands them to the robots it creates.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/api"
	"github.com/bvk/pricebot/ctxutil"
	"github.com/bvk/pricebot/httputil"
	"github.com/bvk/pricebot/job"
	"github.com/bvk/pricebot/prices"
	"github.com/bvk/pricebot/pushover"
	"github.com/bvk/pricebot/robot"
	"github.com/bvk/pricebot/session"
	"github.com/bvk/pricebot/store"
	"github.com/bvk/pricebot/syncmap"
	"github.com/bvk/pricebot/telegram"
	"github.com/bvkgo/kv"
)

// ManualFlag marks jobs that users have paused explicitly. They are not
// resumed automatically when the server restarts.
const ManualFlag uint64 = 0x1 << 0

const robotTypename = "robot.Robot"

type Server struct {
	closeCtx   context.Context
	closeCause context.CancelCauseFunc

	cg ctxutil.CloseGroup

	opts Options

	db kv.Database

	runner *job.Runner

	window *session.Window

	source *prices.YahooClient

	state store.Store

	notifier alert.Notifier

	telegram *telegram.Client

	robotMap syncmap.Map[string, *robot.Robot]

	start time.Time
}

func New(ctx context.Context, db kv.Database, secrets *Secrets, opts *Options) (_ *Server, status error) {
	if secrets == nil {
		secrets = new(Secrets)
	}
	if opts == nil {
		opts = new(Options)
	}
	if err := opts.Check(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	window, err := session.New(opts.SessionZone, opts.SessionOpen, opts.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("could not create session window: %w", err)
	}

	source, err := prices.NewYahooClient(&prices.Options{ExchangeSuffix: opts.ExchangeSuffix})
	if err != nil {
		return nil, fmt.Errorf("could not create price source: %w", err)
	}

	var state store.Store = store.NewLocalStore(db)
	if secrets.Remote != nil {
		remote, err := store.NewRemoteStore(secrets.Remote)
		if err != nil {
			return nil, fmt.Errorf("could not create remote state store: %w", err)
		}
		state = store.NewFallbackStore(remote, state)
	}

	s := &Server{
		opts:   *opts,
		db:     db,
		runner: job.NewRunner(db),
		window: window,
		source: source,
		state:  state,
		start:  time.Now(),
	}
	s.closeCtx, s.closeCause = context.WithCancelCause(context.Background())
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	var notifiers alert.Multi
	if secrets.Email != nil {
		email, err := alert.NewEmailNotifier(secrets.Email)
		if err != nil {
			return nil, fmt.Errorf("could not create email notifier: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	if secrets.Pushover != nil {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		notifiers = append(notifiers, alert.NewTextNotifier("pushover", client))
	}
	if secrets.Telegram != nil {
		client, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		s.telegram = client
		notifiers = append(notifiers, alert.NewTextNotifier("telegram", client))
	}
	s.notifier = notifiers

	return s, nil
}

func (s *Server) Close() {
	s.closeCause(os.ErrClosed)
	s.cg.Close()
	if s.telegram != nil {
		s.telegram.Close()
	}
	s.robotMap.Range(func(name string, r *robot.Robot) bool {
		r.Close()
		return true
	})
}

// Start resumes robots that were running before the last shutdown and
// registers the telegram bot commands.
func (s *Server) Start(ctx context.Context) error {
	if s.telegram != nil {
		if err := s.addTelegramCommands(ctx); err != nil {
			return fmt.Errorf("could not register telegram commands: %w", err)
		}
	}

	if s.opts.NoResume {
		return nil
	}

	var uids []string
	scan := func(ctx context.Context, _ kv.Reader, jd *job.JobData) error {
		if jd.Typename != robotTypename {
			return nil
		}
		if job.IsDone(jd.State) || jd.Flags&ManualFlag != 0 {
			return nil
		}
		uids = append(uids, jd.UID)
		return nil
	}
	if err := s.runner.Scan(ctx, nil, scan); err != nil {
		return fmt.Errorf("could not scan for resumable robots: %w", err)
	}

	for _, uid := range uids {
		r, err := s.getRobot(uid)
		if err != nil {
			return fmt.Errorf("could not recreate robot %q: %w", uid, err)
		}
		if err := s.runner.Resume(ctx, uid, s.makeJobFunc(r), s.closeCtx); err != nil {
			return fmt.Errorf("could not resume robot %q: %w", uid, err)
		}
	}
	return nil
}

// Stop pauses all running robots, saving their job states so that the next
// Start resumes them.
func (s *Server) Stop(ctx context.Context) error {
	return s.runner.PauseAll(ctx)
}

func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.RobotListPath:   httputil.PostJSONHandler(s.doRobotList),
		api.RobotAddPath:    httputil.PostJSONHandler(s.doRobotAdd),
		api.RobotResumePath: httputil.PostJSONHandler(s.doRobotResume),
		api.RobotPausePath:  httputil.PostJSONHandler(s.doRobotPause),
		api.RobotCancelPath: httputil.PostJSONHandler(s.doRobotCancel),
		api.WatchAddPath:    httputil.PostJSONHandler(s.doWatchAdd),
		api.WatchRemovePath: httputil.PostJSONHandler(s.doWatchRemove),
		api.WatchListPath:   httputil.PostJSONHandler(s.doWatchList),
		api.AlertListPath:   httputil.PostJSONHandler(s.doAlertList),
		api.StatusPath:      httputil.PostJSONHandler(s.doStatus),
		api.UpdatesPath:     http.HandlerFunc(s.doUpdates),
	}
}

// getRobot returns the robot instance with the given name, creating it on
// first use. Robot instances are shared between the job runner and the
// request handlers.
func (s *Server) getRobot(name string) (*robot.Robot, error) {
	if r, ok := s.robotMap.Load(name); ok {
		return r, nil
	}
	r, err := robot.New(name, s.state, s.source, s.notifier, s.window, &robot.Options{
		PollInterval:    s.opts.PollInterval,
		DwellThreshold:  s.opts.DwellThreshold,
		MaxAlertHistory: s.opts.MaxAlertHistory,
		Invert:          s.opts.Invert,
		PauseOnExit:     s.opts.PauseOnExit,
	})
	if err != nil {
		return nil, err
	}
	if old, loaded := s.robotMap.LoadOrStore(name, r); loaded {
		r.Close()
		return old, nil
	}
	return r, nil
}

func (s *Server) makeJobFunc(r *robot.Robot) job.Func {
	return func(ctx context.Context) error {
		return r.Run(ctx)
	}
}
