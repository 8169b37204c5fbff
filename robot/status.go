// Copyright (c) 2026 BVK Chaitanya

package robot

// Status is the tracking status of one watched ticker.
type Status string

const (
	// MONITORING tickers are being polled, with the price outside the
	// trigger zone.
	MONITORING Status = "MONITORING"

	// INZONE tickers have the price inside the trigger zone and are
	// accumulating dwell time.
	INZONE Status = "IN_ZONE"

	// FIRED tickers have crossed the dwell threshold and their alert has
	// been recorded.
	FIRED Status = "FIRED"

	// REMOVING tickers are fired and are being retired from the remote
	// watch-list.
	REMOVING Status = "REMOVING"

	// REMOVED tickers are retired. They are dropped from the watch-list and
	// never resurrected by reconciliation.
	REMOVED Status = "REMOVED"
)

// IsRetiring returns true for tickers that must not be resurrected when the
// remote watch-list still carries them.
func (s Status) IsRetiring() bool {
	return s == REMOVING || s == REMOVED
}

// Label returns the human-facing rendering of a status for chat and status
// command output.
func (s Status) Label() string {
	switch s {
	case MONITORING:
		return "🔍 Monitoring"
	case INZONE:
		return "🎯 In zone"
	case FIRED:
		return "🚨 Fired"
	case REMOVING:
		return "🧹 Removing"
	case REMOVED:
		return "✅ Removed"
	}
	return string(s)
}
