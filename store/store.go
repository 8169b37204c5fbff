// Copyright (c) 2026 BVK Chaitanya

// Package store persists robot state. Each robot owns a single state row
// keyed by the robot name. The primary copy lives in a remote key-value
// table; a local mirror keeps the robot running through remote outages.
//
// There is deliberately no way to delete a whole state row. Retiring a
// ticker is a field-level operation that rewrites the row without that
// ticker; everything else in the row survives.
package store

import (
	"context"

	"github.com/bvk/pricebot/gobs"
)

type Store interface {
	// Load returns the state row for a robot. Returns os.ErrNotExist when
	// the robot has no row yet.
	Load(ctx context.Context, robot string) (*gobs.RobotState, error)

	// Save replaces the robot's state row with the given value.
	Save(ctx context.Context, robot string, state *gobs.RobotState) error

	// DeleteTicker removes a single ticker from the robot's watch-list and
	// tracking data and saves the row back. The rest of the row is
	// untouched.
	DeleteTicker(ctx context.Context, robot, ticker string) error
}

// dropTicker removes one ticker from the state in place.
func dropTicker(state *gobs.RobotState, ticker string) {
	watchlist := state.Watchlist[:0]
	for _, w := range state.Watchlist {
		if w.Ticker != ticker {
			watchlist = append(watchlist, w)
		}
	}
	state.Watchlist = watchlist
	delete(state.Tracking, ticker)
}
