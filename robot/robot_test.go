// Copyright (c) 2026 BVK Chaitanya

package robot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/session"
	"github.com/bvk/pricebot/store"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

type fakeSource struct {
	mu     sync.Mutex
	prices map[string]string
}

func (f *fakeSource) set(ticker, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[ticker] = price
}

func (f *fakeSource) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %q", symbol)
	}
	return decimal.RequireFromString(p), nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []*alert.Message
}

func (f *fakeNotifier) Send(ctx context.Context, at time.Time, msg *alert.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func newTestRobot(t *testing.T, opts *Options) (*Robot, *fakeSource, *fakeNotifier, *store.LocalStore) {
	t.Helper()

	s := store.NewLocalStore(kvmemdb.New())
	src := &fakeSource{prices: make(map[string]string)}
	n := &fakeNotifier{}

	r, err := New("curto", s, src, n, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r, src, n, s
}

func watch(ticker, direction, target string) *gobs.WatchEntry {
	return &gobs.WatchEntry{
		Ticker:      ticker,
		Direction:   direction,
		TargetPrice: decimal.RequireFromString(target),
	}
}

var base = time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

// steps runs n poll cycles spaced a minute apart starting at base.
func steps(t *testing.T, r *Robot, from time.Time, n int) time.Time {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := r.Step(ctx, from); err != nil {
			t.Fatal(err)
		}
		from = from.Add(time.Minute)
	}
	return from
}

func tickerStatus(t *testing.T, r *Robot, ticker string) *TickerStatus {
	t.Helper()
	for _, ts := range r.StatusSnapshot() {
		if ts.Ticker == ticker {
			return ts
		}
	}
	t.Fatalf("ticker %q is not in the status snapshot", ticker)
	return nil
}

func TestDwellAccumulation(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")

	steps(t, r, base, 3)

	ts := tickerStatus(t, r, "PETR4.SA")
	if ts.Status != INZONE {
		t.Errorf("status: got %s, want %s", ts.Status, INZONE)
	}
	if ts.DwellSeconds != 180 {
		t.Errorf("dwell after 3 in-zone cycles: got %d, want 180", ts.DwellSeconds)
	}
}

func TestZoneExitResetsDwell(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}

	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 2)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 120 {
		t.Fatalf("dwell: got %d, want 120", ts.DwellSeconds)
	}

	src.set("PETR4.SA", "99.99")
	now = steps(t, r, now, 1)
	ts := tickerStatus(t, r, "PETR4.SA")
	if ts.Status != MONITORING || ts.DwellSeconds != 0 {
		t.Errorf("after zone exit: got status %s dwell %d, want %s dwell 0", ts.Status, ts.DwellSeconds, MONITORING)
	}

	// Dwell restarts from scratch on re-entry.
	src.set("PETR4.SA", "100.5")
	steps(t, r, now, 1)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 60 {
		t.Errorf("dwell after re-entry: got %d, want 60", ts.DwellSeconds)
	}
}

func TestPauseOnExitKeepsDwell(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, &Options{PauseOnExit: true})

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}

	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 2)

	src.set("PETR4.SA", "99")
	now = steps(t, r, now, 1)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 120 {
		t.Errorf("paused dwell: got %d, want 120", ts.DwellSeconds)
	}

	src.set("PETR4.SA", "101")
	steps(t, r, now, 1)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 180 {
		t.Errorf("resumed dwell: got %d, want 180", ts.DwellSeconds)
	}
}

func TestZoneBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("AAAA.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	if err := r.AddTicker(ctx, watch("BBBB.SA", "SELL", "50")); err != nil {
		t.Fatal(err)
	}

	// Prices exactly at the targets are inside both zones.
	src.set("AAAA.SA", "100")
	src.set("BBBB.SA", "50.00")
	steps(t, r, base, 1)

	if ts := tickerStatus(t, r, "AAAA.SA"); ts.Status != INZONE {
		t.Errorf("buy at target: got %s, want %s", ts.Status, INZONE)
	}
	if ts := tickerStatus(t, r, "BBBB.SA"); ts.Status != INZONE {
		t.Errorf("sell at target: got %s, want %s", ts.Status, INZONE)
	}
}

func TestZoneDirections(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("AAAA.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	if err := r.AddTicker(ctx, watch("BBBB.SA", "SELL", "50")); err != nil {
		t.Fatal(err)
	}

	// Buy zone is above the target; sell zone is below.
	src.set("AAAA.SA", "99.99")
	src.set("BBBB.SA", "50.01")
	steps(t, r, base, 1)

	if ts := tickerStatus(t, r, "AAAA.SA"); ts.Status != MONITORING {
		t.Errorf("buy below target: got %s, want %s", ts.Status, MONITORING)
	}
	if ts := tickerStatus(t, r, "BBBB.SA"); ts.Status != MONITORING {
		t.Errorf("sell above target: got %s, want %s", ts.Status, MONITORING)
	}
}

func TestInvertedZones(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, &Options{Invert: true})

	if err := r.AddTicker(ctx, watch("AAAA.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}

	// Inverted buy zone is below the target, stop-loss style.
	src.set("AAAA.SA", "99")
	steps(t, r, base, 1)
	if ts := tickerStatus(t, r, "AAAA.SA"); ts.Status != INZONE {
		t.Errorf("inverted buy below target: got %s, want %s", ts.Status, INZONE)
	}
}

func TestFireAndRetire(t *testing.T) {
	ctx := context.Background()
	r, src, n, s := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")

	// Five one-minute cycles hit the five-minute threshold.
	steps(t, r, base, 5)

	if n.count() != 1 {
		t.Fatalf("notifications: got %d, want 1", n.count())
	}
	if got := len(r.StatusSnapshot()); got != 0 {
		t.Fatalf("watch-list after fire: got %d entries, want 0", got)
	}

	alerts := r.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("alert records: got %d, want 1", len(alerts))
	}
	if alerts[0].DwellSeconds != 300 {
		t.Errorf("recorded dwell: got %d, want 300", alerts[0].DwellSeconds)
	}

	// The state row survives with the fired event, minus the ticker.
	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 0 {
		t.Errorf("stored watch-list: got %#v, want empty", state.Watchlist)
	}
	if len(state.FiredEvents) != 1 {
		t.Errorf("stored fired events: got %d, want 1", len(state.FiredEvents))
	}
}

func TestFireIsIdempotentForTheDay(t *testing.T) {
	ctx := context.Background()
	r, src, n, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 5)
	if n.count() != 1 {
		t.Fatalf("notifications: got %d, want 1", n.count())
	}

	// The same trigger re-added on the same day retires quietly.
	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	steps(t, r, now, 5)

	if n.count() != 1 {
		t.Errorf("notifications after re-add: got %d, want still 1", n.count())
	}
	if got := len(r.StatusSnapshot()); got != 0 {
		t.Errorf("re-added ticker must still retire, watch-list has %d entries", got)
	}
}

func TestFireClaimedByAnotherInstance(t *testing.T) {
	ctx := context.Background()
	r, src, n, s := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 4)

	// Another instance claims the event in the store just before our fifth
	// cycle crosses the threshold.
	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	id := strings.Join([]string{"PETR4.SA", "BUY", "100", now.UTC().Format("2006-01-02")}, "|")
	state.FiredEvents[id] = now
	if err := s.Save(ctx, "curto", state); err != nil {
		t.Fatal(err)
	}

	steps(t, r, now, 1)

	if n.count() != 0 {
		t.Errorf("notifications: got %d, want 0 when another instance claimed the event", n.count())
	}
	if got := len(r.StatusSnapshot()); got != 0 {
		t.Errorf("ticker must retire even without notifying, watch-list has %d entries", got)
	}
}

func TestReconcileMembership(t *testing.T) {
	ctx := context.Background()
	r, src, _, s := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("AAAA.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("AAAA.SA", "101")
	src.set("CCCC.SA", "10")
	now := steps(t, r, base, 2)

	// Another writer replaces the store watch-list: drops nothing, adds a
	// new ticker.
	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	state.Watchlist = append(state.Watchlist, watch("CCCC.SA", "SELL", "20"))
	if err := s.Save(ctx, "curto", state); err != nil {
		t.Fatal(err)
	}

	steps(t, r, now, 1)

	// The new ticker is adopted and the local dwell survives reconciliation.
	if ts := tickerStatus(t, r, "CCCC.SA"); ts.Status != INZONE {
		t.Errorf("adopted ticker status: got %s, want %s", ts.Status, INZONE)
	}
	if ts := tickerStatus(t, r, "AAAA.SA"); ts.DwellSeconds != 180 {
		t.Errorf("local dwell after reconcile: got %d, want 180", ts.DwellSeconds)
	}
}

func TestRetiredTickerIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	r, src, _, s := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 5)

	// A stale writer puts the fired ticker back in the store row.
	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	state.Watchlist = append(state.Watchlist, watch("PETR4.SA", "BUY", "100"))
	if err := s.Save(ctx, "curto", state); err != nil {
		t.Fatal(err)
	}

	steps(t, r, now, 1)

	if got := len(r.StatusSnapshot()); got != 0 {
		t.Errorf("retired ticker must not come back, watch-list has %d entries", got)
	}
}

func TestEmptyWatchlistSaveGuard(t *testing.T) {
	ctx := context.Background()
	r, _, _, s := newTestRobot(t, nil)

	// The store carries a populated row that this robot has not loaded.
	state := &gobs.RobotState{
		Watchlist:   []*gobs.WatchEntry{watch("PETR4.SA", "BUY", "100")},
		Tracking:    map[string]*gobs.TickerState{"PETR4.SA": {Status: string(MONITORING)}},
		FiredEvents: make(map[string]time.Time),
	}
	if err := s.Save(ctx, "curto", state); err != nil {
		t.Fatal(err)
	}

	// Saving our empty snapshot is skipped, so the row survives.
	if err := r.saveLocked(ctx); err != nil {
		t.Fatal(err)
	}
	stored, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Watchlist) != 1 {
		t.Fatalf("populated row was wiped by an empty save: %#v", stored.Watchlist)
	}

	// A robot that emptied its own watch-list may save the empty row.
	r.selfEmptied = true
	if err := r.saveLocked(ctx); err != nil {
		t.Fatal(err)
	}
	stored, err = s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Watchlist) != 0 {
		t.Fatalf("self-emptied watch-list was not saved: %#v", stored.Watchlist)
	}
}

func TestSkippedPriceKeepsState(t *testing.T) {
	ctx := context.Background()
	r, src, _, _ := newTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 2)

	// A failed price fetch skips the cycle without touching the dwell.
	src.mu.Lock()
	delete(src.prices, "PETR4.SA")
	src.mu.Unlock()
	now = steps(t, r, now, 1)

	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 120 {
		t.Errorf("dwell after a skipped cycle: got %d, want 120", ts.DwellSeconds)
	}

	src.set("PETR4.SA", "101")
	steps(t, r, now, 1)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 180 {
		t.Errorf("dwell after recovery: got %d, want 180", ts.DwellSeconds)
	}
}

// flakyStore wraps a store and fails a set number of operations, standing
// in for a transient remote outage.
type flakyStore struct {
	store.Store

	mu        sync.Mutex
	failLoads int
	failSaves int
}

func (f *flakyStore) fail(loads, saves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoads, f.failSaves = loads, saves
}

func (f *flakyStore) Load(ctx context.Context, robot string) (*gobs.RobotState, error) {
	f.mu.Lock()
	fail := f.failLoads > 0
	if fail {
		f.failLoads--
	}
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("transient store outage")
	}
	return f.Store.Load(ctx, robot)
}

func (f *flakyStore) Save(ctx context.Context, robot string, state *gobs.RobotState) error {
	f.mu.Lock()
	fail := f.failSaves > 0
	if fail {
		f.failSaves--
	}
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("transient store outage")
	}
	return f.Store.Save(ctx, robot, state)
}

func newFlakyTestRobot(t *testing.T, opts *Options) (*Robot, *fakeSource, *fakeNotifier, *flakyStore) {
	t.Helper()

	s := &flakyStore{Store: store.NewLocalStore(kvmemdb.New())}
	src := &fakeSource{prices: make(map[string]string)}
	n := &fakeNotifier{}

	r, err := New("curto", s, src, n, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r, src, n, s
}

func TestFailedFireClaimRetriesNextCycle(t *testing.T) {
	ctx := context.Background()
	r, src, n, s := newFlakyTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 4)

	// The store goes down while the fifth cycle tries to claim the fired
	// event; both the claim and the end-of-cycle save fail.
	s.fail(0, 2)
	if err := r.Step(ctx, now); err == nil {
		t.Fatal("a cycle with a failing store must report the save error")
	}
	now = now.Add(time.Minute)
	if n.count() != 0 {
		t.Fatalf("notifications during the outage: got %d, want 0", n.count())
	}
	if got := len(r.StatusSnapshot()); got != 1 {
		t.Fatalf("ticker must not retire while unclaimed, watch-list has %d entries", got)
	}

	// The store recovers; the next cycle claims the event and notifies.
	steps(t, r, now, 1)
	if n.count() != 1 {
		t.Fatalf("notifications after recovery: got %d, want 1", n.count())
	}
	if got := len(r.StatusSnapshot()); got != 0 {
		t.Fatalf("watch-list after fire: got %d entries, want 0", got)
	}
	if alerts := r.Alerts(); len(alerts) != 1 {
		t.Fatalf("alert records: got %d, want 1", len(alerts))
	}
}

func TestReconcileFailureDoesNotFreezeDwell(t *testing.T) {
	ctx := context.Background()
	r, src, _, s := newFlakyTestRobot(t, nil)

	if err := r.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	src.set("PETR4.SA", "101")
	now := steps(t, r, base, 2)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 120 {
		t.Fatalf("dwell: got %d, want 120", ts.DwellSeconds)
	}

	// A failed state load must not abort the cycle; prices keep getting
	// polled against the last-known local state.
	s.fail(1, 0)
	steps(t, r, now, 1)
	if ts := tickerStatus(t, r, "PETR4.SA"); ts.DwellSeconds != 180 {
		t.Errorf("dwell after a failed reconcile: got %d, want 180", ts.DwellSeconds)
	}
}

func TestSessionNoticeOncePerDayAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(kvmemdb.New())
	w, err := session.New("UTC", "00:00", "23:59")
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{prices: make(map[string]string)}

	n1 := &fakeNotifier{}
	r1, err := New("curto", s, src, n1, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r1.AddTicker(ctx, watch("PETR4.SA", "BUY", "100")); err != nil {
		t.Fatal(err)
	}
	r1.sessionNotice(ctx, base)
	if n1.count() != 1 {
		t.Fatalf("session notices: got %d, want 1", n1.count())
	}
	r1.Close()

	// A fresh instance over the same row on the same day finds the
	// persisted marker and stays quiet.
	n2 := &fakeNotifier{}
	r2, err := New("curto", s, src, n2, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r2.Close)
	r2.sessionNotice(ctx, base)
	if n2.count() != 0 {
		t.Errorf("session notices from the second instance: got %d, want 0", n2.count())
	}

	// The next trading day notifies again.
	r2.sessionNotice(ctx, base.Add(24*time.Hour))
	if n2.count() != 1 {
		t.Errorf("session notices on the next day: got %d, want 1", n2.count())
	}
}
