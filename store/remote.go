// Copyright (c) 2026 BVK Chaitanya

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/bvk/pricebot/gobs"
	"golang.org/x/time/rate"
)

type RemoteOptions struct {
	// BaseURL is the REST endpoint serving the key-value table, e.g.
	// "https://example.supabase.co/rest/v1".
	BaseURL string `json:"base_url"`

	// APIKey is sent as both the apikey header and the bearer token.
	APIKey string `json:"api_key"`

	// Table is the key-value table name.
	Table string `json:"table"`

	// KeySuffix is appended to the robot name to form the row key. Bumping
	// the suffix versions the row format without clobbering old rows.
	KeySuffix string `json:"key_suffix"`

	HttpClientTimeout time.Duration `json:"-"`
}

func (v *RemoteOptions) setDefaults() {
	if v.Table == "" {
		v.Table = "kv"
	}
	if v.KeySuffix == "" {
		v.KeySuffix = "_przo_v1"
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 15 * time.Second
	}
}

func (v *RemoteOptions) Check() error {
	if v.BaseURL == "" {
		return fmt.Errorf("remote store base url cannot be empty")
	}
	if v.APIKey == "" {
		return fmt.Errorf("remote store api key cannot be empty")
	}
	return nil
}

// RemoteStore keeps robot state rows in a PostgREST key-value table. Each
// row holds the robot's row key in column "k" and the full state as JSON in
// column "v". Writes are upserts; the client never issues a row DELETE.
type RemoteStore struct {
	opts RemoteOptions

	baseURL *url.URL

	client *http.Client

	limiter *rate.Limiter
}

func NewRemoteStore(opts *RemoteOptions) (*RemoteStore, error) {
	if err := opts.Check(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse base url %q: %w", opts.BaseURL, err)
	}

	s := &RemoteStore{
		opts:    *opts,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(10, 1),
	}
	return s, nil
}

func (s *RemoteStore) rowKey(robot string) string {
	return robot + s.opts.KeySuffix
}

func (s *RemoteStore) newRequest(ctx context.Context, method string, u *url.URL, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create %s request: %w", method, err)
	}
	req.Header.Set("apikey", s.opts.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

type stateRow struct {
	K string           `json:"k"`
	V *gobs.RobotState `json:"v"`
}

func (s *RemoteStore) Load(ctx context.Context, robot string) (*gobs.RobotState, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := *s.baseURL
	u.Path = u.Path + "/" + s.opts.Table
	u.RawQuery = url.Values{
		"k":      []string{"eq." + s.rowKey(robot)},
		"select": []string{"v"},
	}.Encode()

	req, err := s.newRequest(ctx, http.MethodGet, &u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not perform get request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("state row fetch failed with http-status %d", resp.StatusCode)
	}

	var rows []*stateRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("could not json-decode state rows: %w", err)
	}
	if len(rows) == 0 || rows[0].V == nil {
		return nil, fmt.Errorf("robot %q has no state row: %w", robot, os.ErrNotExist)
	}
	return rows[0].V, nil
}

func (s *RemoteStore) Save(ctx context.Context, robot string, state *gobs.RobotState) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	state.ModifiedAt = time.Now()
	body, err := json.Marshal([]*stateRow{{K: s.rowKey(robot), V: state}})
	if err != nil {
		return fmt.Errorf("could not json-encode state row: %w", err)
	}

	u := *s.baseURL
	u.Path = u.Path + "/" + s.opts.Table

	req, err := s.newRequest(ctx, http.MethodPost, &u, body)
	if err != nil {
		return err
	}
	// Upsert on the row key, so that concurrent first-writers don't conflict.
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("state row upsert failed with http-status %d", resp.StatusCode)
	}
	return nil
}

// DeleteTicker retires one ticker through a read-modify-write of the state
// row. Row-level DELETE is not used anywhere, so a bad ticker argument can
// never take the whole watch-list down.
func (s *RemoteStore) DeleteTicker(ctx context.Context, robot, ticker string) error {
	state, err := s.Load(ctx, robot)
	if err != nil {
		return fmt.Errorf("could not load robot state: %w", err)
	}
	dropTicker(state, ticker)
	if err := s.Save(ctx, robot, state); err != nil {
		return fmt.Errorf("could not save robot state: %w", err)
	}
	return nil
}
