// Copyright (c) 2026 BVK Chaitanya

package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bvk/pricebot/ctxutil"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

type Options struct {
	// BaseURL is the scheme and host for the quote API. Tests override this
	// to point at a local server.
	BaseURL string

	// ExchangeSuffix, when non-empty, is appended to bare symbols that carry
	// no exchange suffix, e.g. "SA" turns "PETR4" into "PETR4.SA".
	ExchangeSuffix string

	HttpClientTimeout time.Duration

	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func (v *Options) setDefaults() {
	if v.BaseURL == "" {
		v.BaseURL = "https://query1.finance.yahoo.com"
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = 5
	}
	if v.MinBackoff == 0 {
		v.MinBackoff = 2 * time.Second
	}
	if v.MaxBackoff == 0 {
		v.MaxBackoff = 30 * time.Second
	}
}

// YahooClient fetches quotes from the Yahoo Finance public quote API. The
// chart endpoint is the primary source; the older v7 quote endpoint is the
// fallback when the chart endpoint fails or returns no price.
type YahooClient struct {
	opts Options

	baseURL *url.URL

	client *http.Client

	limiter *rate.Limiter
}

func NewYahooClient(opts *Options) (*YahooClient, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse base url %q: %w", opts.BaseURL, err)
	}

	c := &YahooClient{
		opts:    *opts,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(5, 1),
	}
	return c, nil
}

// Normalize upper-cases the symbol and appends the exchange suffix when the
// symbol has none.
func (c *YahooClient) Normalize(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if c.opts.ExchangeSuffix != "" && !strings.Contains(symbol, ".") {
		symbol = symbol + "." + c.opts.ExchangeSuffix
	}
	return symbol
}

// GetCurrentPrice implements the Source interface. Failed fetches are
// retried with exponential backoff before giving up.
func (c *YahooClient) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = c.Normalize(symbol)

	var price decimal.Decimal
	fetch := func() error {
		p, err := c.fetchChartPrice(ctx, symbol)
		if err != nil {
			if p, qerr := c.fetchQuotePrice(ctx, symbol); qerr == nil {
				price = p
				return nil
			}
			return err
		}
		price = p
		return nil
	}
	if err := ctxutil.RetryBackoff(ctx, c.opts.MaxRetries, c.opts.MinBackoff, c.opts.MaxBackoff, fetch); err != nil {
		return decimal.Zero, fmt.Errorf("could not fetch price for %q: %w", symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("fetched price %s for %q is not positive", price, symbol)
	}
	return price, nil
}

func (c *YahooClient) httpGet(ctx context.Context, u *url.URL, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("could not create get request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform get request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get request for %q failed with http-status %d", u.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("could not json-decode response: %w", err)
	}
	return nil
}

func (c *YahooClient) fetchChartPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := *c.baseURL
	u.Path = "/v8/finance/chart/" + symbol
	u.RawQuery = url.Values{
		"interval": []string{"1m"},
		"range":    []string{"1d"},
	}.Encode()

	type Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	}
	type Result struct {
		Meta Meta `json:"meta"`
	}
	type Chart struct {
		Result []*Result       `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	type Response struct {
		Chart Chart `json:"chart"`
	}

	r := new(Response)
	if err := c.httpGet(ctx, &u, r); err != nil {
		return decimal.Zero, err
	}
	if len(r.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("chart response for %q has no results", symbol)
	}
	p := decimal.NewFromFloat(r.Chart.Result[0].Meta.RegularMarketPrice)
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("chart response for %q has no positive price", symbol)
	}
	return p, nil
}

func (c *YahooClient) fetchQuotePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := *c.baseURL
	u.Path = "/v7/finance/quote"
	u.RawQuery = url.Values{
		"symbols": []string{symbol},
	}.Encode()

	type Quote struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	}
	type QuoteResponse struct {
		Result []*Quote        `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	type Response struct {
		QuoteResponse QuoteResponse `json:"quoteResponse"`
	}

	r := new(Response)
	if err := c.httpGet(ctx, &u, r); err != nil {
		return decimal.Zero, err
	}
	if len(r.QuoteResponse.Result) == 0 {
		return decimal.Zero, fmt.Errorf("quote response for %q has no results", symbol)
	}
	p := decimal.NewFromFloat(r.QuoteResponse.Result[0].RegularMarketPrice)
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("quote response for %q has no positive price", symbol)
	}
	return p, nil
}
