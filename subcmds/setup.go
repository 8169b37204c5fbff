// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bvk/pricebot/alert"
	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/pushover"
	"github.com/bvk/pricebot/server"
	"github.com/bvk/pricebot/store"
	"github.com/bvk/pricebot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"golang.org/x/term"
)

type Setup struct {
	dataDir     string
	secretsPath string
	skipTesting bool
}

func (c *Setup) Synopsis() string {
	return "Setup prints and/or configures the pricebot daemon"
}

func (c *Setup) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return fset, cli.CmdFunc(c.run)
}

func (c *Setup) CommandHelp() string {
	return `

Command "setup" helps users configure the remote state store and the
notification channels. Command prints current config when run without any
arguments.

REMOTE STORE PARAMETERS

Remote store parameters are optional. They enable sharing robot state rows
with other instances through a PostgREST key-value table:

  $ pricebot setup remote-url=https://xyzzy.supabase.co/rest/v1 remote-key=awja5ue...ito7svf

EMAIL PARAMETERS

Email parameters enable alert delivery over SMTP:

  $ pricebot setup email-host=smtp.gmail.com email-username=someone@gmail.com email-password=apppassword email-to=someone@gmail.com

PUSHOVER PARAMETERS

Pushover keys are optional. They are required to receive notifications to the
mobile phones:

  $ pricebot setup pushover-app=awja5ue...ito7svf pushover-user=uscjs2...tvp4kv

TELEGRAM PARAMETERS

Telegram parameters enable alerts and bot commands through a Telegram bot:

  $ pricebot setup telegram-token=USCJS2...TVP4KV telegram-owner=username
`
}

func (c *Setup) run(ctx context.Context, args []string) error {
	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".pricebot")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if len(args) == 0 {
			return fmt.Errorf("pricebot is not configured")
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := server.SecretsFromFile(c.secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("pricebot is not configured")
		}
	}

	if len(args) == 0 {
		js, _ := json.MarshalIndent(secrets, "", "  ")
		fmt.Printf("%s\n", js)
		return nil
	}

	if secrets == nil {
		secrets = &server.Secrets{}
	}

	validKeys := []string{
		"remote-url", "remote-key",
		"email-host", "email-username", "email-password", "email-to",
		"pushover-app", "pushover-user",
		"telegram-token", "telegram-owner",
	}
	kvMap := make(map[string]string)
	// Parse config values from the command-line.
	for _, arg := range args {
		before, after, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("invalid config argument %q", arg)
		}
		if !slices.Contains(validKeys, before) {
			return fmt.Errorf("invalid/unrecognized config item key %q", before)
		}
		if v, ok := kvMap[before]; ok && v != after {
			return fmt.Errorf("config item key %q is found with different values", before)
		}
		kvMap[before] = after
	}

	remoteURL := kvMap["remote-url"]
	remoteKey := kvMap["remote-key"]
	if len(remoteURL) != 0 || len(remoteKey) != 0 {
		if len(remoteURL) == 0 || len(remoteKey) == 0 {
			return fmt.Errorf(`both "remote-url" and "remote-key" parameters are required`)
		}
		secrets.Remote = &store.RemoteOptions{
			BaseURL: remoteURL,
			APIKey:  remoteKey,
		}
		if !c.skipTesting {
			// Attempt to read a probe row to validate the credentials.
			remote, err := store.NewRemoteStore(secrets.Remote)
			if err != nil {
				return err
			}
			if _, err := remote.Load(ctx, "setup-probe"); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("could not read from the remote store: %w", err)
			}
		}
	}

	emailHost := kvMap["email-host"]
	emailUser := kvMap["email-username"]
	if len(emailHost) != 0 || len(emailUser) != 0 {
		if len(emailHost) == 0 || len(emailUser) == 0 {
			return fmt.Errorf(`both "email-host" and "email-username" parameters are required`)
		}
		recipients := []string{emailUser}
		if to := kvMap["email-to"]; len(to) != 0 {
			recipients = strings.Split(to, ",")
		}
		secrets.Email = &alert.EmailOptions{
			Host:       emailHost,
			Username:   emailUser,
			Password:   kvMap["email-password"],
			From:       emailUser,
			Recipients: recipients,
		}
		if _, err := alert.NewEmailNotifier(secrets.Email); err != nil {
			return err
		}
	}

	pushoverApp := kvMap["pushover-app"]
	pushoverUser := kvMap["pushover-user"]
	if len(pushoverUser) != 0 || len(pushoverApp) != 0 {
		if len(pushoverApp) == 0 || len(pushoverUser) == 0 {
			return fmt.Errorf(`both "pushover-app" and "pushover-user" parameters are required`)
		}
		secrets.Pushover = &pushover.Keys{
			ApplicationKey: pushoverApp,
			UserKey:        pushoverUser,
		}
		if !c.skipTesting {
			// Attempt to authenticate with pushover to validate the keys.
			client, err := pushover.New(secrets.Pushover)
			if err != nil {
				return err
			}
			if err := client.SendMessage(ctx, time.Now(), "Test message from Pushover config setup; please ignore."); err != nil {
				return err
			}
		}
	}

	telegramToken := kvMap["telegram-token"]
	telegramOwner := kvMap["telegram-owner"]
	if len(telegramToken) != 0 || len(telegramOwner) != 0 {
		if len(telegramToken) == 0 || len(telegramOwner) == 0 {
			return fmt.Errorf(`both "telegram-token" and "telegram-owner" parameters are required`)
		}
		secrets.Telegram = &telegram.Secrets{
			BotToken: telegramToken,
			OwnerID:  telegramOwner,
		}
		if !c.skipTesting {
			func() {
				fmt.Println("Start a chat with the telegram bot and then press any key")
				// switch stdin into 'raw' mode
				oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
				if err != nil {
					log.Fatal(err)
				}
				defer term.Restore(int(os.Stdin.Fd()), oldState)

				b := make([]byte, 1)
				if _, err := os.Stdin.Read(b); err != nil {
					log.Fatal(err)
				}
			}()

			// Attempt to authenticate with telegram to validate the token.
			client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
			if err != nil {
				return err
			}
			client.Close()
		}
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.secretsPath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}
