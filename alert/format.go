// Copyright (c) 2026 BVK Chaitanya

package alert

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/bvk/pricebot/gobs"
)

// FormatDwell renders an in-zone duration for notification texts.
func FormatDwell(seconds int64) string {
	m, s := seconds/60, seconds%60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dmin %02ds", m, s)
}

func actionWord(direction string) string {
	if direction == "SELL" {
		return "sell"
	}
	return "buy"
}

// TriggerMessage builds the notification for a fired alert.
func TriggerMessage(robot string, rec *gobs.AlertRecord) *Message {
	subject := fmt.Sprintf("[%s] %s alert: %s at %s", robot, rec.Direction, rec.Ticker, rec.Price)

	var text strings.Builder
	fmt.Fprintf(&text, "Ticker %s held the %s zone for %s.\n", rec.Ticker, actionWord(rec.Direction), FormatDwell(rec.DwellSeconds))
	fmt.Fprintf(&text, "Current price: %s\n", rec.Price)
	fmt.Fprintf(&text, "Target price: %s\n", rec.TargetPrice)
	fmt.Fprintf(&text, "Fired at: %s\n", rec.At.Format("2006-01-02 15:04:05 MST"))

	var h strings.Builder
	fmt.Fprintf(&h, "<html><body>")
	fmt.Fprintf(&h, "<h3>%s</h3>", html.EscapeString(subject))
	fmt.Fprintf(&h, "<p>Ticker <b>%s</b> held the %s zone for <b>%s</b>.</p>", html.EscapeString(rec.Ticker), actionWord(rec.Direction), FormatDwell(rec.DwellSeconds))
	fmt.Fprintf(&h, "<table border=\"1\" cellpadding=\"4\">")
	fmt.Fprintf(&h, "<tr><td>Current price</td><td>%s</td></tr>", rec.Price)
	fmt.Fprintf(&h, "<tr><td>Target price</td><td>%s</td></tr>", rec.TargetPrice)
	fmt.Fprintf(&h, "<tr><td>Fired at</td><td>%s</td></tr>", rec.At.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&h, "</table>")
	fmt.Fprintf(&h, "</body></html>")

	return &Message{
		Subject: subject,
		Text:    text.String(),
		HTML:    h.String(),
	}
}

// SessionOpenMessage builds the once-a-day notice sent when the robot finds
// the trading session open for the first time that day.
func SessionOpenMessage(robot string, at time.Time, watchlist []*gobs.WatchEntry) *Message {
	subject := fmt.Sprintf("[%s] session open, watching %d tickers", robot, len(watchlist))

	var text strings.Builder
	fmt.Fprintf(&text, "Session opened at %s.\n", at.Format("2006-01-02 15:04 MST"))
	if len(watchlist) == 0 {
		fmt.Fprintf(&text, "Watch-list is empty.\n")
	}
	for _, w := range watchlist {
		fmt.Fprintf(&text, "%s: %s at %s\n", w.Ticker, actionWord(w.Direction), w.TargetPrice)
	}

	return &Message{
		Subject: subject,
		Text:    text.String(),
	}
}
