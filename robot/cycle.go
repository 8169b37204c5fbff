// Copyright (c) 2026 BVK Chaitanya

package robot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/gobs"
	"github.com/shopspring/decimal"
)

// Step runs one poll cycle: reconcile with the store, poll prices for the
// watch-list, update dwell accounting, fire and retire due tickers and save
// the state row back.
func (r *Robot) Step(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A failed reconcile must not freeze the dwell accounting; the cycle
	// proceeds on the last-known local state and the next cycle retries.
	if err := r.reconcileLocked(ctx); err != nil {
		log.Printf("could not reconcile robot state for %v (continuing with local state): %v", r, err)
	}

	if len(r.state.Watchlist) == 0 {
		slog.Info("watch-list is empty, nothing to poll", "robot", r)
		return nil
	}

	event := &CycleEvent{
		At:       now,
		Robot:    r.name,
		Prices:   make(map[string]decimal.Decimal),
		Statuses: make(map[string]Status),
	}

	var due []*gobs.WatchEntry
	for _, w := range slices.Clone(r.state.Watchlist) {
		price, err := r.source.GetCurrentPrice(ctx, w.Ticker)
		if err != nil {
			log.Printf("could not fetch price for %q (skipping this cycle): %v", w.Ticker, err)
			continue
		}
		event.Prices[w.Ticker] = price

		if r.trackLocked(w, price, now) {
			due = append(due, w)
		}
	}

	for _, w := range due {
		fired, err := r.fireLocked(ctx, w, now)
		if err != nil {
			log.Printf("could not fire alert for %q (will retry): %v", w.Ticker, err)
			continue
		}
		if fired {
			event.Fired = append(event.Fired, w.Ticker)
		}
		if err := r.retireLocked(ctx, w.Ticker); err != nil {
			log.Printf("could not retire fired ticker %q (will retry): %v", w.Ticker, err)
		}
	}

	for _, w := range r.state.Watchlist {
		if t, ok := r.state.Tracking[w.Ticker]; ok {
			event.Statuses[w.Ticker] = Status(t.Status)
		}
	}
	r.topic.Send(event)

	return r.saveLocked(ctx)
}

// trackLocked advances the dwell-time state machine of one ticker with a
// new price observation. Returns true once the accumulated dwell reaches
// the threshold.
func (r *Robot) trackLocked(w *gobs.WatchEntry, price decimal.Decimal, now time.Time) bool {
	t, ok := r.state.Tracking[w.Ticker]
	if !ok {
		t = &gobs.TickerState{Status: string(MONITORING)}
		r.state.Tracking[w.Ticker] = t
	}
	t.LastPrice = price
	t.LastSeen = now

	if !r.inZone(w, price) {
		if t.InZone {
			slog.Info("price left the trigger zone", "robot", r, "ticker", w.Ticker, "price", price, "target", w.TargetPrice, "dwell", t.DwellSeconds)
		}
		t.InZone = false
		t.EnteredAt = time.Time{}
		if !r.opts.PauseOnExit {
			// Dwell time is a streak; leaving the zone resets it.
			t.DwellSeconds = 0
		}
		t.Status = string(MONITORING)
		return false
	}

	if !t.InZone {
		t.InZone = true
		t.EnteredAt = now
		slog.Info("price entered the trigger zone", "robot", r, "ticker", w.Ticker, "price", price, "target", w.TargetPrice)
	}
	t.Status = string(INZONE)

	// Dwell is credited per observed cycle, never from wall-clock gaps, so a
	// stalled robot cannot fire from time it never watched.
	t.DwellSeconds += int64(r.opts.PollInterval / time.Second)

	return t.DwellSeconds >= int64(r.opts.DwellThreshold/time.Second)
}

// fireLocked records and delivers the alert for a due ticker. Returns false
// without delivering when the same trigger already fired today, here or on
// another instance.
func (r *Robot) fireLocked(ctx context.Context, w *gobs.WatchEntry, now time.Time) (bool, error) {
	day := now.UTC().Format("2006-01-02")
	if r.window != nil {
		day = r.window.Day(now)
	}
	id := r.eventID(w, day)

	t := r.state.Tracking[w.Ticker]
	t.Status = string(FIRED)

	if _, ok := r.state.FiredEvents[id]; ok {
		slog.Info("alert already fired today, not notifying again", "robot", r, "ticker", w.Ticker, "event", id)
		return false, nil
	}

	// Another instance may have claimed this event after our reconcile, so
	// check the store copy right before claiming.
	if fresh, err := r.store.Load(ctx, r.name); err == nil {
		for eid, at := range fresh.FiredEvents {
			if _, ok := r.state.FiredEvents[eid]; !ok {
				r.state.FiredEvents[eid] = at
			}
		}
		if _, ok := fresh.FiredEvents[id]; ok {
			slog.Info("alert was fired by another instance, not notifying again", "robot", r, "ticker", w.Ticker, "event", id)
			return false, nil
		}
	}

	rec := &gobs.AlertRecord{
		At:           now,
		Ticker:       w.Ticker,
		Direction:    w.Direction,
		TargetPrice:  w.TargetPrice,
		Price:        t.LastPrice,
		DwellSeconds: t.DwellSeconds,
		EventID:      id,
	}
	prevAlerts := r.state.Alerts
	r.state.FiredEvents[id] = now
	r.state.Alerts = append(prevAlerts, rec)

	// Claim the event in the store before notifying, so a concurrent
	// instance observes it and stays quiet. A failed claim must leave no
	// local trace, otherwise the next cycle would see the event as fired
	// and retire the ticker without ever notifying.
	if err := r.store.Save(ctx, r.name, r.state); err != nil {
		delete(r.state.FiredEvents, id)
		r.state.Alerts = prevAlerts
		return false, fmt.Errorf("could not record fired event %q: %w", id, err)
	}
	if n := len(r.state.Alerts) - r.opts.MaxAlertHistory; n > 0 {
		r.state.Alerts = slices.Delete(r.state.Alerts, 0, n)
	}

	slog.Info("alert fired", "robot", r, "ticker", w.Ticker, "price", rec.Price, "target", rec.TargetPrice, "dwell", rec.DwellSeconds)
	if r.notifier != nil {
		if err := r.notifier.Send(ctx, now, alert.TriggerMessage(r.name, rec)); err != nil {
			log.Printf("could not deliver alert %q on all channels (event stays claimed): %v", id, err)
		}
	}
	return true, nil
}

// reconcileLocked merges the store copy of the state row into the local
// copy. The store is authoritative for watch-list membership; the local
// copy is authoritative for dwell tracking.
func (r *Robot) reconcileLocked(ctx context.Context) error {
	remote, err := r.store.Load(ctx, r.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// First run: create the state row.
			if err := r.store.Save(ctx, r.name, r.state); err != nil {
				return fmt.Errorf("could not create state row: %w", err)
			}
			return nil
		}
		return err
	}

	merged := newState()

	for _, w := range remote.Watchlist {
		if status, ok := r.retired[w.Ticker]; ok && status.IsRetiring() {
			// We fired and retired this ticker; the store copy is stale.
			continue
		}
		merged.Watchlist = append(merged.Watchlist, w)
		if t, ok := r.state.Tracking[w.Ticker]; ok {
			merged.Tracking[w.Ticker] = t
		} else {
			merged.Tracking[w.Ticker] = &gobs.TickerState{Status: string(MONITORING)}
		}
	}

	// Forget retired tickers once the store stops carrying them.
	for ticker := range r.retired {
		if !slices.ContainsFunc(remote.Watchlist, func(w *gobs.WatchEntry) bool { return w.Ticker == ticker }) {
			delete(r.retired, ticker)
		}
	}

	merged.Alerts = mergeAlerts(remote.Alerts, r.state.Alerts, r.opts.MaxAlertHistory)
	for id, at := range remote.FiredEvents {
		merged.FiredEvents[id] = at
	}
	for id, at := range r.state.FiredEvents {
		merged.FiredEvents[id] = at
	}

	merged.SessionNoticeDay = r.state.SessionNoticeDay
	if remote.SessionNoticeDay > merged.SessionNoticeDay {
		merged.SessionNoticeDay = remote.SessionNoticeDay
	}

	if len(merged.Watchlist) != 0 {
		r.selfEmptied = false
	}
	r.state = merged
	return nil
}

func mergeAlerts(a, b []*gobs.AlertRecord, max int) []*gobs.AlertRecord {
	seen := make(map[string]bool)
	var merged []*gobs.AlertRecord
	for _, rec := range append(slices.Clone(a), b...) {
		if rec.EventID != "" && seen[rec.EventID] {
			continue
		}
		seen[rec.EventID] = true
		merged = append(merged, rec)
	}
	slices.SortFunc(merged, func(x, y *gobs.AlertRecord) int {
		return x.At.Compare(y.At)
	})
	if n := len(merged) - max; n > 0 {
		merged = slices.Delete(merged, 0, n)
	}
	return merged
}

// saveLocked writes the state row back, unless doing so could wipe a
// populated store copy with an empty watch-list that this robot did not
// empty itself.
func (r *Robot) saveLocked(ctx context.Context) error {
	if len(r.state.Watchlist) == 0 && !r.selfEmptied {
		slog.Info("skipping save of empty watch-list", "robot", r)
		return nil
	}
	return r.store.Save(ctx, r.name, r.state)
}
