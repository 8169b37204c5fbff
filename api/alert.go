// Copyright (c) 2026 BVK Chaitanya

package api

import (
	"time"

	"github.com/bvk/pricebot/timerange"
	"github.com/shopspring/decimal"
)

const AlertListPath = "/alert/list"

type AlertListRequest struct {
	Robot string

	// Period when non-nil restricts the response to alerts fired within the
	// range.
	Period *timerange.Range
}

type AlertListResponseItem struct {
	At time.Time

	Ticker      string
	Direction   string
	TargetPrice decimal.Decimal
	Price       decimal.Decimal

	DwellSeconds int64
}

type AlertListResponse struct {
	Alerts []*AlertListResponseItem
}
