// Copyright (c) 2026 BVK Chaitanya

// Package robot implements dwell-time price alert robots. A robot polls
// current prices for a watch-list of tickers, measures how long each ticker
// stays inside its trigger zone and fires a notification once the in-zone
// dwell crosses the configured threshold. Fired tickers are retired from
// the watch-list.
package robot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/prices"
	"github.com/bvk/pricebot/session"
	"github.com/bvk/pricebot/store"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

type Options struct {
	// PollInterval is the delay between price poll cycles. It is also the
	// amount of dwell credited for every in-zone cycle.
	PollInterval time.Duration

	// DwellThreshold is the accumulated in-zone time at which an alert
	// fires.
	DwellThreshold time.Duration

	// MaxAlertHistory bounds the number of alert records kept in the state
	// row.
	MaxAlertHistory int

	// Invert flips the trigger zones, for stop-loss style robots: BUY
	// entries trigger at or below the target and SELL entries at or above.
	Invert bool

	// PauseOnExit keeps the accumulated dwell when the price leaves the
	// zone, instead of resetting it to zero.
	PauseOnExit bool
}

func (v *Options) setDefaults() {
	if v.PollInterval == 0 {
		v.PollInterval = time.Minute
	}
	if v.DwellThreshold == 0 {
		v.DwellThreshold = 5 * time.Minute
	}
	if v.MaxAlertHistory == 0 {
		v.MaxAlertHistory = 20
	}
}

func (v *Options) Check() error {
	if v.PollInterval < 0 || v.DwellThreshold < 0 {
		return fmt.Errorf("poll interval and dwell threshold cannot be negative")
	}
	return nil
}

// CycleEvent summarizes one completed poll cycle. Events are published on
// the robot's topic for the live updates feed.
type CycleEvent struct {
	At time.Time

	Robot string

	Prices map[string]decimal.Decimal

	Statuses map[string]Status

	Fired []string
}

type Robot struct {
	runtimeLock sync.Mutex

	name string

	opts Options

	store store.Store

	source prices.Source

	notifier alert.Notifier

	window *session.Window

	topic *topic.Topic[*CycleEvent]

	mu sync.Mutex

	state *gobs.RobotState

	// retired holds tickers this robot has fired and retired, till the
	// remote watch-list stops carrying them. Reconciliation never
	// resurrects these.
	retired map[string]Status

	// selfEmptied is set when this robot retires the last ticker of its own
	// watch-list. Only then is an empty watch-list allowed to be saved.
	selfEmptied bool
}

func New(name string, s store.Store, source prices.Source, notifier alert.Notifier, window *session.Window, opts *Options) (*Robot, error) {
	if name == "" {
		return nil, fmt.Errorf("robot name cannot be empty")
	}
	if opts == nil {
		opts = new(Options)
	}
	if err := opts.Check(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	r := &Robot{
		name:     name,
		opts:     *opts,
		store:    s,
		source:   source,
		notifier: notifier,
		window:   window,
		topic:    topic.New[*CycleEvent](),
		state:    newState(),
		retired:  make(map[string]Status),
	}
	return r, nil
}

func newState() *gobs.RobotState {
	return &gobs.RobotState{
		Tracking:    make(map[string]*gobs.TickerState),
		FiredEvents: make(map[string]time.Time),
	}
}

func (r *Robot) String() string {
	return "robot:" + r.name
}

func (r *Robot) Name() string {
	return r.name
}

// Close releases the live updates topic.
func (r *Robot) Close() {
	r.topic.Close()
}

// Subscribe returns a receiver for cycle events. The caller must close the
// receiver.
func (r *Robot) Subscribe() (*topic.Receiver[*CycleEvent], error) {
	recv, err := topic.Subscribe(r.topic, 1, true /* includeRecent */)
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to cycle events: %w", err)
	}
	return recv, nil
}

// eventID is the idempotency key for an alert. Two instances observing the
// same trigger on the same calendar day compute the same key.
func (r *Robot) eventID(w *gobs.WatchEntry, day string) string {
	return strings.Join([]string{w.Ticker, w.Direction, w.TargetPrice.String(), day}, "|")
}

// inZone reports whether the price is inside the trigger zone for the given
// watch entry. Comparisons are non-strict: a price exactly at the target is
// inside the zone.
func (r *Robot) inZone(w *gobs.WatchEntry, price decimal.Decimal) bool {
	wantAbove := w.Direction == "BUY"
	if r.opts.Invert {
		wantAbove = !wantAbove
	}
	if wantAbove {
		return price.GreaterThanOrEqual(w.TargetPrice)
	}
	return price.LessThanOrEqual(w.TargetPrice)
}

func checkEntry(w *gobs.WatchEntry) error {
	if w.Ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if w.Direction != "BUY" && w.Direction != "SELL" {
		return fmt.Errorf("direction must be BUY or SELL, not %q", w.Direction)
	}
	if !w.TargetPrice.IsPositive() {
		return fmt.Errorf("target price must be positive")
	}
	return nil
}

// AddTicker adds a watch entry to the robot's watch-list and saves the
// state row. Adding a ticker that is already watched updates its direction
// and target price in place.
func (r *Robot) AddTicker(ctx context.Context, w *gobs.WatchEntry) error {
	if err := checkEntry(w); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.retired, w.Ticker)

	i := slices.IndexFunc(r.state.Watchlist, func(e *gobs.WatchEntry) bool {
		return e.Ticker == w.Ticker
	})
	if i >= 0 {
		r.state.Watchlist[i] = w
	} else {
		r.state.Watchlist = append(r.state.Watchlist, w)
	}
	if _, ok := r.state.Tracking[w.Ticker]; !ok {
		r.state.Tracking[w.Ticker] = &gobs.TickerState{Status: string(MONITORING)}
	}
	r.selfEmptied = false

	if err := r.store.Save(ctx, r.name, r.state); err != nil {
		return fmt.Errorf("could not save state with new ticker %q: %w", w.Ticker, err)
	}
	return nil
}

// RemoveTicker retires a single ticker from the watch-list. The rest of the
// state row is untouched.
func (r *Robot) RemoveTicker(ctx context.Context, ticker string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.state.Watchlist, func(e *gobs.WatchEntry) bool {
		return e.Ticker == ticker
	})
	if i < 0 {
		return fmt.Errorf("ticker %q is not watched", ticker)
	}
	return r.retireLocked(ctx, ticker)
}

// retireLocked removes one ticker locally and from the store. Callers must
// hold r.mu.
func (r *Robot) retireLocked(ctx context.Context, ticker string) error {
	r.retired[ticker] = REMOVING
	if err := r.store.DeleteTicker(ctx, r.name, ticker); err != nil {
		return fmt.Errorf("could not retire ticker %q: %w", ticker, err)
	}
	r.retired[ticker] = REMOVED

	r.state.Watchlist = slices.DeleteFunc(r.state.Watchlist, func(e *gobs.WatchEntry) bool {
		return e.Ticker == ticker
	})
	delete(r.state.Tracking, ticker)
	if len(r.state.Watchlist) == 0 {
		r.selfEmptied = true
	}
	return nil
}

// TickerStatus describes one watched ticker for status reporting.
type TickerStatus struct {
	Ticker      string
	Direction   string
	TargetPrice decimal.Decimal

	Status Status

	InZone       bool
	DwellSeconds int64
	LastPrice    decimal.Decimal
	LastSeen     time.Time
}

// StatusSnapshot returns a copy of the current per-ticker tracking data.
func (r *Robot) StatusSnapshot() []*TickerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*TickerStatus
	for _, w := range r.state.Watchlist {
		ts := &TickerStatus{
			Ticker:      w.Ticker,
			Direction:   w.Direction,
			TargetPrice: w.TargetPrice,
			Status:      MONITORING,
		}
		if t, ok := r.state.Tracking[w.Ticker]; ok {
			ts.Status = Status(t.Status)
			ts.InZone = t.InZone
			ts.DwellSeconds = t.DwellSeconds
			ts.LastPrice = t.LastPrice
			ts.LastSeen = t.LastSeen
		}
		result = append(result, ts)
	}
	return result
}

// Alerts returns a copy of the recorded alert history, newest first.
func (r *Robot) Alerts() []*gobs.AlertRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*gobs.AlertRecord, 0, len(r.state.Alerts))
	for i := len(r.state.Alerts) - 1; i >= 0; i-- {
		rec := *r.state.Alerts[i]
		result = append(result, &rec)
	}
	return result
}
