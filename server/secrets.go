// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/pushover"
	"github.com/bvk/pricebot/store"
	"github.com/bvk/pricebot/telegram"
)

type Secrets struct {
	// Remote configures the remote state store. When nil, robot state lives
	// only in the local database.
	Remote *store.RemoteOptions `json:"remote"`

	// Email configures the SMTP alert channel.
	Email *alert.EmailOptions `json:"email"`

	Pushover *pushover.Keys `json:"pushover"`

	Telegram *telegram.Secrets `json:"telegram"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("invalid secrets file %q: %w", fpath, err)
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Remote != nil {
		if err := v.Remote.Check(); err != nil {
			return err
		}
	}
	if v.Email != nil {
		if err := v.Email.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}
