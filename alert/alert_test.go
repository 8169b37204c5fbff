// Copyright (c) 2026 BVK Chaitanya

package alert

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bvk/pricebot/gobs"
	"github.com/shopspring/decimal"
)

type fakeTexter struct {
	msgs []string
	err  error
}

func (f *fakeTexter) SendMessage(ctx context.Context, at time.Time, msg string) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestTextNotifier(t *testing.T) {
	ctx := context.Background()

	texter := &fakeTexter{}
	n := NewTextNotifier("test", texter)

	msg := &Message{Subject: "subject line", Text: "body"}
	if err := n.Send(ctx, time.Now(), msg); err != nil {
		t.Fatal(err)
	}
	if len(texter.msgs) != 1 {
		t.Fatalf("messages sent: got %d, want 1", len(texter.msgs))
	}
	if !strings.HasPrefix(texter.msgs[0], "subject line\n") {
		t.Errorf("subject must lead the text: %q", texter.msgs[0])
	}
}

func TestMultiContinuesOnFailure(t *testing.T) {
	ctx := context.Background()

	bad := &fakeTexter{err: fmt.Errorf("channel down")}
	good := &fakeTexter{}
	m := Multi{
		NewTextNotifier("bad", bad),
		NewTextNotifier("good", good),
	}

	err := m.Send(ctx, time.Now(), &Message{Subject: "s", Text: "t"})
	if err == nil {
		t.Fatal("failed channel must be reported")
	}
	if len(good.msgs) != 1 {
		t.Fatalf("good channel must still receive the message, got %d", len(good.msgs))
	}
}

func TestTriggerMessage(t *testing.T) {
	rec := &gobs.AlertRecord{
		At:           time.Date(2026, 8, 26, 15, 5, 0, 0, time.UTC),
		Ticker:       "PETR4.SA",
		Direction:    "BUY",
		TargetPrice:  decimal.NewFromInt(38),
		Price:        decimal.RequireFromString("38.52"),
		DwellSeconds: 300,
	}
	msg := TriggerMessage("curto", rec)

	if !strings.Contains(msg.Subject, "PETR4.SA") || !strings.Contains(msg.Subject, "BUY") {
		t.Errorf("subject must name the ticker and direction: %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "5min 00s") {
		t.Errorf("text must carry the dwell duration: %q", msg.Text)
	}
	if !strings.Contains(msg.HTML, "38.52") {
		t.Errorf("html must carry the fired price: %q", msg.HTML)
	}
}

func TestFormatDwell(t *testing.T) {
	cases := map[int64]string{
		0:   "0s",
		45:  "45s",
		60:  "1min 00s",
		300: "5min 00s",
		754: "12min 34s",
	}
	for in, want := range cases {
		if got := FormatDwell(in); got != want {
			t.Errorf("dwell %d: got %q, want %q", in, got, want)
		}
	}
}
