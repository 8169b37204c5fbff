// Copyright (c) 2026 BVK Chaitanya

package session

import (
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	w, err := New("Europe/Lisbon", "14:00", "21:00")
	if err != nil {
		t.Fatal(err)
	}

	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		t.Fatal(err)
	}

	// 2026-08-26 is a Wednesday.
	wed := func(h, m int) time.Time {
		return time.Date(2026, 8, 26, h, m, 0, 0, loc)
	}

	if !w.In(wed(14, 0)) {
		t.Errorf("window must be open at the open time")
	}
	if !w.In(wed(17, 30)) {
		t.Errorf("window must be open mid-session")
	}
	if w.In(wed(21, 0)) {
		t.Errorf("window must be closed at the close time")
	}
	if w.In(wed(13, 59)) {
		t.Errorf("window must be closed before the open time")
	}

	sat := time.Date(2026, 8, 29, 15, 0, 0, 0, loc)
	if w.In(sat) {
		t.Errorf("window must be closed on weekends")
	}
}

func TestNextOpen(t *testing.T) {
	w, err := New("Europe/Lisbon", "14:00", "21:00")
	if err != nil {
		t.Fatal(err)
	}

	loc, _ := time.LoadLocation("Europe/Lisbon")

	// Before the open on a weekday opens the same day.
	at := time.Date(2026, 8, 26, 9, 0, 0, 0, loc)
	want := time.Date(2026, 8, 26, 14, 0, 0, 0, loc)
	if v := w.NextOpen(at); !v.Equal(want) {
		t.Errorf("next open at %v: got %v, want %v", at, v, want)
	}

	// After the close on a Friday opens on the following Monday.
	at = time.Date(2026, 8, 28, 22, 0, 0, 0, loc)
	want = time.Date(2026, 8, 31, 14, 0, 0, 0, loc)
	if v := w.NextOpen(at); !v.Equal(want) {
		t.Errorf("next open at %v: got %v, want %v", at, v, want)
	}

	// Inside the window the next open is now.
	at = time.Date(2026, 8, 26, 15, 0, 0, 0, loc)
	if v := w.NextOpen(at); !v.Equal(at) {
		t.Errorf("next open inside the window: got %v, want %v", v, at)
	}
	if d := w.UntilOpen(at); d != 0 {
		t.Errorf("until open inside the window: got %v, want 0", d)
	}
}

func TestNewChecks(t *testing.T) {
	if _, err := New("No/Such-Zone", "14:00", "21:00"); err == nil {
		t.Errorf("bad zone must fail")
	}
	if _, err := New("UTC", "21:00", "14:00"); err == nil {
		t.Errorf("open after close must fail")
	}
	if _, err := New("UTC", "25:00", "26:00"); err == nil {
		t.Errorf("out of range clock must fail")
	}
}
