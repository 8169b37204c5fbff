// Copyright (c) 2026 BVK Chaitanya

// Package alert delivers robot notifications over one or more channels.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Message is a notification with plain-text and optional HTML renderings.
// Channels pick whichever rendering they can carry.
type Message struct {
	Subject string

	Text string

	HTML string
}

type Notifier interface {
	Send(ctx context.Context, at time.Time, msg *Message) error
}

// Texter is a plain-text channel, like a telegram bot or a pushover client.
type Texter interface {
	SendMessage(ctx context.Context, at time.Time, msg string) error
}

// TextNotifier adapts a plain-text channel to the Notifier interface. The
// subject becomes the first line of the message.
type TextNotifier struct {
	name string

	texter Texter
}

func NewTextNotifier(name string, texter Texter) *TextNotifier {
	return &TextNotifier{name: name, texter: texter}
}

func (n *TextNotifier) Send(ctx context.Context, at time.Time, msg *Message) error {
	text := msg.Text
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + text
	}
	if err := n.texter.SendMessage(ctx, at, text); err != nil {
		return fmt.Errorf("could not send message over %q: %w", n.name, err)
	}
	return nil
}

// Multi fans a message out to all channels. Every channel is attempted even
// when earlier ones fail; failures are joined into the returned error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, at time.Time, msg *Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, at, msg); err != nil {
			log.Printf("could not deliver alert %q on a channel (continuing with others): %v", msg.Subject, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
