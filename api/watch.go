// Copyright (c) 2026 BVK Chaitanya

package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const WatchAddPath = "/watch/add"

type WatchAddRequest struct {
	Robot string

	Ticker string

	// Direction is "BUY" or "SELL".
	Direction string

	TargetPrice decimal.Decimal
}

type WatchAddResponse struct {
	// Ticker is the normalized form of the requested ticker.
	Ticker string
}

const WatchRemovePath = "/watch/remove"

type WatchRemoveRequest struct {
	Robot string

	Ticker string
}

type WatchRemoveResponse struct {
}

const WatchListPath = "/watch/list"

type WatchListRequest struct {
	Robot string
}

type WatchListResponseItem struct {
	Ticker      string
	Direction   string
	TargetPrice decimal.Decimal

	Status string

	InZone       bool
	DwellSeconds int64

	LastPrice decimal.Decimal
	LastSeen  time.Time
}

type WatchListResponse struct {
	Tickers []*WatchListResponseItem
}
