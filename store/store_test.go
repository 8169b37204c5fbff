// Copyright (c) 2026 BVK Chaitanya

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bvk/pricebot/gobs"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func testState() *gobs.RobotState {
	return &gobs.RobotState{
		Watchlist: []*gobs.WatchEntry{
			{Ticker: "PETR4.SA", Direction: "BUY", TargetPrice: decimal.NewFromInt(38)},
			{Ticker: "VALE3.SA", Direction: "SELL", TargetPrice: decimal.NewFromInt(60)},
		},
		Tracking: map[string]*gobs.TickerState{
			"PETR4.SA": {Status: "MONITORING"},
			"VALE3.SA": {Status: "IN_ZONE", InZone: true, DwellSeconds: 120},
		},
		FiredEvents: make(map[string]time.Time),
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(kvmemdb.New())

	if _, err := s.Load(ctx, "curto"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("load of missing robot: got %v, want os.ErrNotExist", err)
	}

	if err := s.Save(ctx, "curto", testState()); err != nil {
		t.Fatal(err)
	}

	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 2 {
		t.Fatalf("watchlist size: got %d, want 2", len(state.Watchlist))
	}
	if v := state.Tracking["VALE3.SA"]; v == nil || v.DwellSeconds != 120 {
		t.Fatalf("tracking state for VALE3.SA not restored: %#v", v)
	}

	if err := s.DeleteTicker(ctx, "curto", "PETR4.SA"); err != nil {
		t.Fatal(err)
	}
	state, err = s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 1 || state.Watchlist[0].Ticker != "VALE3.SA" {
		t.Fatalf("watchlist after delete: %#v", state.Watchlist)
	}
	if _, ok := state.Tracking["PETR4.SA"]; ok {
		t.Errorf("tracking entry for deleted ticker must be removed")
	}
	if _, ok := state.Tracking["VALE3.SA"]; !ok {
		t.Errorf("tracking entry for surviving ticker must remain")
	}
}

// fakeRemote implements just enough of the PostgREST key-value table API
// for the remote store client.
type fakeRemote struct {
	rows map[string]json.RawMessage

	ndeletes int
}

func (f *fakeRemote) handler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := r.URL.Query().Get("k")
		v, ok := f.rows[key]
		if !ok {
			fmt.Fprintf(w, "[]")
			return
		}
		fmt.Fprintf(w, `[{"v":%s}]`, v)
	case http.MethodPost:
		var rows []struct {
			K string          `json:"k"`
			V json.RawMessage `json:"v"`
		}
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, row := range rows {
			f.rows["eq."+row.K] = row.V
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		f.ndeletes++
		http.Error(w, "row deletes are disabled", http.StatusForbidden)
	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()

	fake := &fakeRemote{rows: make(map[string]json.RawMessage)}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer server.Close()

	s, err := NewRemoteStore(&RemoteOptions{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(ctx, "curto"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("load of missing robot: got %v, want os.ErrNotExist", err)
	}

	if err := s.Save(ctx, "curto", testState()); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.rows["eq.curto_przo_v1"]; !ok {
		t.Fatalf("row key: got %v, want curto_przo_v1", fake.rows)
	}

	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 2 {
		t.Fatalf("watchlist size: got %d, want 2", len(state.Watchlist))
	}
	if !state.Watchlist[0].TargetPrice.Equal(decimal.NewFromInt(38)) {
		t.Errorf("target price: got %s, want 38", state.Watchlist[0].TargetPrice)
	}

	if err := s.DeleteTicker(ctx, "curto", "VALE3.SA"); err != nil {
		t.Fatal(err)
	}
	state, err = s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 1 || state.Watchlist[0].Ticker != "PETR4.SA" {
		t.Fatalf("watchlist after delete: %#v", state.Watchlist)
	}
	if fake.ndeletes != 0 {
		t.Errorf("client issued %d row deletes, want none", fake.ndeletes)
	}
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()

	fake := &fakeRemote{rows: make(map[string]json.RawMessage)}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))

	remote, err := NewRemoteStore(&RemoteOptions{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatal(err)
	}
	mirror := NewLocalStore(kvmemdb.New())
	s := NewFallbackStore(remote, mirror)

	if err := s.Save(ctx, "curto", testState()); err != nil {
		t.Fatal(err)
	}

	// A load through the fallback refreshes the mirror.
	if _, err := s.Load(ctx, "curto"); err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.Load(ctx, "curto"); err != nil {
		t.Fatalf("mirror was not refreshed: %v", err)
	}

	// With the remote gone, loads are served from the mirror.
	server.Close()
	state, err := s.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 2 {
		t.Fatalf("watchlist size from mirror: got %d, want 2", len(state.Watchlist))
	}

	// Saves also survive a remote outage through the mirror.
	state.Watchlist = state.Watchlist[:1]
	if err := s.Save(ctx, "curto", state); err != nil {
		t.Fatal(err)
	}
	state, err = mirror.Load(ctx, "curto")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Watchlist) != 1 {
		t.Fatalf("watchlist size after outage save: got %d, want 1", len(state.Watchlist))
	}
}

func TestDeleteTickerMissingLeavesRow(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(kvmemdb.New())

	if err := s.Save(ctx, "curto", testState()); err != nil {
		t.Fatal(err)
	}

	// Deleting a ticker the row doesn't carry, or an empty one, leaves the
	// stored watch-list untouched.
	for _, ticker := range []string{"", "XXXX.SA"} {
		if err := s.DeleteTicker(ctx, "curto", ticker); err != nil {
			t.Fatal(err)
		}
		state, err := s.Load(ctx, "curto")
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Watchlist) != 2 {
			t.Fatalf("watchlist after deleting %q: got %d entries, want 2", ticker, len(state.Watchlist))
		}
		if len(state.Tracking) != 2 {
			t.Fatalf("tracking after deleting %q: got %d entries, want 2", ticker, len(state.Tracking))
		}
	}
}
