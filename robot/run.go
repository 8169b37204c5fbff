// Copyright (c) 2026 BVK Chaitanya

package robot

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/ctxutil"
	"github.com/bvk/pricebot/gobs"
)

// Run polls prices till the context is canceled. Outside the trading
// window the robot sleeps; inside it runs one Step per poll interval.
func (r *Robot) Run(ctx context.Context) error {
	r.runtimeLock.Lock()
	defer r.runtimeLock.Unlock()

	slog.Info("starting robot", "robot", r, "poll-interval", r.opts.PollInterval, "dwell-threshold", r.opts.DwellThreshold)

	for ctx.Err() == nil {
		now := time.Now()

		if r.window != nil && !r.window.In(now) {
			d := r.window.UntilOpen(now)
			if d > time.Hour {
				d = time.Hour
			}
			slog.Info("trading session is closed", "robot", r, "next-open", r.window.NextOpen(now), "sleeping", d)
			ctxutil.Sleep(ctx, d)
			continue
		}

		r.sessionNotice(ctx, now)

		if err := r.Step(ctx, now); err != nil {
			log.Printf("could not complete poll cycle for %v (will retry): %v", r, err)
		}

		ctxutil.Sleep(ctx, r.opts.PollInterval)
	}

	return context.Cause(ctx)
}

// sessionNotice runs the once-a-day session-open chores: clear the dwell
// accumulators left over from the previous session, drop stale idempotency
// records and announce the day's watch-list.
func (r *Robot) sessionNotice(ctx context.Context, now time.Time) {
	if r.window == nil {
		return
	}
	day := r.window.Day(now)

	r.mu.Lock()
	// The persisted marker is what makes the notice once-per-day across
	// restarts and instances, so adopt the store copy before deciding.
	if err := r.reconcileLocked(ctx); err != nil {
		log.Printf("could not reconcile before session-open notice for %v (ignored): %v", r, err)
	}
	if r.state.SessionNoticeDay == day {
		r.mu.Unlock()
		return
	}
	r.state.SessionNoticeDay = day

	for _, t := range r.state.Tracking {
		t.InZone = false
		t.EnteredAt = time.Time{}
		t.DwellSeconds = 0
		t.Status = string(MONITORING)
	}
	for id, at := range r.state.FiredEvents {
		if now.Sub(at) > 7*24*time.Hour {
			delete(r.state.FiredEvents, id)
		}
	}

	watchlist := make([]*gobs.WatchEntry, len(r.state.Watchlist))
	copy(watchlist, r.state.Watchlist)

	if err := r.saveLocked(ctx); err != nil {
		log.Printf("could not save session-open state for %v (ignored): %v", r, err)
	}
	r.mu.Unlock()

	slog.Info("trading session is open", "robot", r, "day", day, "num-tickers", len(watchlist))
	if r.notifier != nil {
		if err := r.notifier.Send(ctx, now, alert.SessionOpenMessage(r.name, now, watchlist)); err != nil {
			log.Printf("could not deliver session-open notice for %v (ignored): %v", r, err)
		}
	}
}
