// Copyright (c) 2026 BVK Chaitanya

package server

import "time"

type Options struct {
	// NoResume skips the automatic resume of previously running robots at
	// startup.
	NoResume bool

	// PollInterval and DwellThreshold apply to every robot hosted by this
	// server.
	PollInterval   time.Duration
	DwellThreshold time.Duration

	MaxAlertHistory int

	// Invert and PauseOnExit configure the dwell state machine, see the
	// robot package.
	Invert      bool
	PauseOnExit bool

	// Trading session window. Robots only poll while the session is open.
	SessionZone  string
	SessionOpen  string
	SessionClose string

	// ExchangeSuffix is appended to bare tickers, e.g. "SA" for B3 listings
	// on Yahoo Finance.
	ExchangeSuffix string
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
	if v.SessionZone == "" {
		v.SessionZone = "Europe/Lisbon"
	}
	if v.SessionOpen == "" {
		v.SessionOpen = "14:00"
	}
	if v.SessionClose == "" {
		v.SessionClose = "21:00"
	}
	if v.ExchangeSuffix == "" {
		v.ExchangeSuffix = "SA"
	}
}

func (v *Options) Check() error {
	return nil
}
