// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/pricebot/cli"
	"github.com/bvk/pricebot/ctxutil"
	"github.com/bvk/pricebot/daemonize"
	"github.com/bvk/pricebot/httputil"
	"github.com/bvk/pricebot/server"
	"github.com/bvk/pricebot/sglog"
	"github.com/bvk/pricebot/subcmds/cmdutil"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof  bool
	noResume bool

	invert      bool
	pauseOnExit bool

	pollInterval   time.Duration
	dwellThreshold time.Duration

	sessionZone  string
	sessionOpen  string
	sessionClose string

	exchangeSuffix string

	secretsPath string
	dataDir     string
}

func (c *Run) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noResume, "no-resume", false, "when true old robots aren't resumed automatically")
	fset.BoolVar(&c.invert, "invert", false, "when true trigger zones are flipped, for stop-loss alerts")
	fset.BoolVar(&c.pauseOnExit, "pause-on-exit", false, "when true dwell is kept, not reset, when price leaves the zone")
	fset.DurationVar(&c.pollInterval, "poll-interval", 0, "delay between price poll cycles")
	fset.DurationVar(&c.dwellThreshold, "dwell-threshold", 0, "in-zone time after which alerts fire")
	fset.StringVar(&c.sessionZone, "session-zone", "", "time zone of the trading session")
	fset.StringVar(&c.sessionOpen, "session-open", "", "session opening time as HH:MM")
	fset.StringVar(&c.sessionClose, "session-close", "", "session closing time as HH:MM")
	fset.StringVar(&c.exchangeSuffix, "exchange-suffix", "", "suffix appended to bare tickers")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	return fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs pricebot in foreground or background"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the pricebot service. Pricebot service scans the database
for existing robots and resumes them automatically.

SECRETS FILE

Notification channels and the remote state store require credentials. Users
are expected to create a secrets file with the credentials in JSON format. A
example secrets file format is given below:

    {
        "remote":{
            "base_url":"https://xyzzy.supabase.co/rest/v1",
            "api_key":"111111111"
        },
        "email":{
            "host":"smtp.gmail.com",
            "username":"someone@gmail.com",
            "password":"2222222222",
            "recipients":["someone@gmail.com"]
        },
        "telegram":{
            "token":"3333333333",
            "owner":"someone"
        }
    }

All sections are optional. Robots only use the channels that are configured.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".pricebot")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	secrets := new(server.Secrets)
	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	if _, err := os.Stat(c.secretsPath); err == nil {
		if secrets, err = server.SecretsFromFile(c.secretsPath); err != nil {
			return err
		}
	}

	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.IP),
		Port: c.Port,
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			if !c.restart {
				return false, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
			}
			return true, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, "PRICEBOT_DAEMONIZE", check); err != nil {
			return err
		}

		logsDir := filepath.Join(dataDir, "logs")
		if err := os.MkdirAll(logsDir, 0700); err != nil {
			return fmt.Errorf("could not create logs directory %q: %w", logsDir, err)
		}
		backend := sglog.NewBackend(&sglog.Options{
			LogDirs: []string{logsDir},
		})
		defer backend.Close()
		slog.SetDefault(slog.New(backend.Handler()))
	}

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	log.Printf("using data directory %s and secrets file %s", dataDir, c.secretsPath)

	lockPath := filepath.Join(dataDir, "pricebot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			log.Printf("waiting for the previous instance to shutdown")
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	// Start other services.
	sopts := &server.Options{
		NoResume:       c.noResume,
		PollInterval:   c.pollInterval,
		DwellThreshold: c.dwellThreshold,
		Invert:         c.invert,
		PauseOnExit:    c.pauseOnExit,
		SessionZone:    c.sessionZone,
		SessionOpen:    c.sessionOpen,
		SessionClose:   c.sessionClose,
		ExchangeSuffix: c.exchangeSuffix,
	}
	bot, err := server.New(ctx, db, secrets, sopts)
	if err != nil {
		return err
	}
	defer bot.Close()

	// Add pricebot api handlers
	botAPIs := bot.HandlerMap()
	for k, v := range botAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range botAPIs {
			s.RemoveHandler(k)
		}
	}()

	if err := bot.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := bot.Stop(context.Background()); err != nil {
			log.Printf("could not stop all robots (ignored): %v", err)
		}
	}()

	// Wait for the signals

	log.Printf("started pricebot server at %s", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	log.Printf("pricebot server is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
