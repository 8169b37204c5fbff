// Copyright (c) 2026 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchEntry is one ticker under watch with its trigger parameters.
type WatchEntry struct {
	Ticker string

	// Direction is "BUY" or "SELL". BUY entries are in the trigger zone when
	// the market price is at or above the target price; SELL entries when the
	// price is at or below it.
	Direction string

	TargetPrice decimal.Decimal
}

// TickerState holds the dwell-time tracking data for a single watched
// ticker. Dwell time is counted in poll cycles, not wall-clock time, so a
// stalled robot never accumulates dwell while it isn't observing prices.
type TickerState struct {
	Status string

	InZone bool

	// DwellSeconds is the accumulated in-zone time. It grows by the poll
	// interval on every cycle the price stays inside the trigger zone and
	// resets to zero the moment the price leaves the zone.
	DwellSeconds int64

	// EnteredAt records when the current in-zone streak began. It is reset
	// along with DwellSeconds and is only informational.
	EnteredAt time.Time

	LastPrice decimal.Decimal
	LastSeen  time.Time
}

// AlertRecord describes one fired alert. Robots keep a bounded history of
// these in their state row.
type AlertRecord struct {
	At time.Time

	Ticker      string
	Direction   string
	TargetPrice decimal.Decimal
	Price       decimal.Decimal

	DwellSeconds int64

	// EventID is the idempotency key for the alert, derived from the ticker,
	// direction, target price and the calendar day the alert fired.
	EventID string
}

// RobotState is the complete durable state of one robot. It is saved as a
// single row keyed by the robot name, both in the remote store and in the
// local mirror.
type RobotState struct {
	Watchlist []*WatchEntry

	// Tracking maps a ticker to its dwell-time state. Entries here always
	// correspond to a Watchlist entry, except for tickers that are in the
	// middle of being retired.
	Tracking map[string]*TickerState

	Alerts []*AlertRecord

	// FiredEvents maps alert EventIDs to their fire time. Used to suppress
	// duplicate notifications for the same trigger on the same day.
	FiredEvents map[string]time.Time

	// SessionNoticeDay is the last calendar day (YYYY-MM-DD) the robot sent
	// its session-open notice and cleared the per-day accumulators.
	SessionNoticeDay string

	ModifiedAt time.Time
}
