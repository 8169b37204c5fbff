// Copyright (c) 2026 BVK Chaitanya

// Package session defines the market trading window. Robots only poll for
// prices while the window is open; outside the window they sleep till the
// next open.
package session

import (
	"fmt"
	"time"
)

// Window represents a daily trading window in a fixed time zone. The window
// is open on weekdays between the Open and Close clock times.
type Window struct {
	loc *time.Location

	openHour, openMin   int
	closeHour, closeMin int
}

// New creates a trading window. Clock times are given as "HH:MM" strings in
// the named time zone, e.g. New("Europe/Lisbon", "14:00", "21:00").
func New(zone, open, close string) (*Window, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("could not load time zone %q: %w", zone, err)
	}
	oh, om, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("invalid open time: %w", err)
	}
	ch, cm, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("invalid close time: %w", err)
	}
	if oh*60+om >= ch*60+cm {
		return nil, fmt.Errorf("open time %q is not before close time %q", open, close)
	}
	w := &Window{
		loc:       loc,
		openHour:  oh,
		openMin:   om,
		closeHour: ch,
		closeMin:  cm,
	}
	return w, nil
}

func parseClock(s string) (hour, min int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("could not parse clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("clock time %q is out of range", s)
	}
	return hour, min, nil
}

// In returns true if t falls inside the trading window.
func (w *Window) In(t time.Time) bool {
	t = t.In(w.loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= w.openHour*60+w.openMin && mins < w.closeHour*60+w.closeMin
}

// NextOpen returns the next window opening at or after t. If t is already
// inside the window, t itself is returned.
func (w *Window) NextOpen(t time.Time) time.Time {
	if w.In(t) {
		return t
	}
	t = t.In(w.loc)
	open := time.Date(t.Year(), t.Month(), t.Day(), w.openHour, w.openMin, 0, 0, w.loc)
	for open.Before(t) || open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
		open = time.Date(open.Year(), open.Month(), open.Day(), w.openHour, w.openMin, 0, 0, w.loc)
	}
	return open
}

// UntilOpen returns how long from t till the window opens. Returns zero when
// the window is already open.
func (w *Window) UntilOpen(t time.Time) time.Duration {
	if w.In(t) {
		return 0
	}
	return w.NextOpen(t).Sub(t)
}

// Day returns the calendar day of t in the window's time zone as a
// YYYY-MM-DD string. Idempotency keys and the session-open notice use this
// day, so the same instant always maps to the same day regardless of the
// host time zone.
func (w *Window) Day(t time.Time) string {
	return t.In(w.loc).Format("2006-01-02")
}
