// Copyright (c) 2026 BVK Chaitanya

package alert

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

type EmailOptions struct {
	// Host and Port locate the SMTP submission endpoint.
	Host string `json:"host"`
	Port int    `json:"port"`

	Username string `json:"username"`
	Password string `json:"password"`

	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
}

func (v *EmailOptions) setDefaults() {
	if v.Port == 0 {
		v.Port = 587
	}
	if v.Username == "" {
		v.Username = v.From
	}
	if v.From == "" {
		v.From = v.Username
	}
}

func (v *EmailOptions) Check() error {
	if v.Host == "" {
		return fmt.Errorf("smtp host cannot be empty")
	}
	if v.From == "" && v.Username == "" {
		return fmt.Errorf("from address cannot be empty")
	}
	if len(v.Recipients) == 0 {
		return fmt.Errorf("recipients list cannot be empty")
	}
	return nil
}

// EmailNotifier sends alerts over SMTP as multipart/alternative messages
// carrying both the plain-text and HTML renderings.
type EmailNotifier struct {
	opts EmailOptions
}

func NewEmailNotifier(opts *EmailOptions) (*EmailNotifier, error) {
	if err := opts.Check(); err != nil {
		return nil, err
	}
	opts.setDefaults()
	return &EmailNotifier{opts: *opts}, nil
}

func (n *EmailNotifier) Send(ctx context.Context, at time.Time, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const boundary = "pricebot-alert-boundary"

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", n.opts.From)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(n.opts.Recipients, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", at.Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	fmt.Fprintf(&sb, "\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	fmt.Fprintf(&sb, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&sb, "%s\r\n", msg.Text)

	if msg.HTML != "" {
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		fmt.Fprintf(&sb, "Content-Type: text/html; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&sb, "%s\r\n", msg.HTML)
	}
	fmt.Fprintf(&sb, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", n.opts.Host, n.opts.Port)
	auth := smtp.PlainAuth("", n.opts.Username, n.opts.Password, n.opts.Host)
	if err := smtp.SendMail(addr, auth, n.opts.From, n.opts.Recipients, []byte(sb.String())); err != nil {
		return fmt.Errorf("could not send mail through %q: %w", addr, err)
	}
	return nil
}
