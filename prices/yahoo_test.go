// Copyright (c) 2026 BVK Chaitanya

package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fastOptions(baseURL string) *Options {
	return &Options{
		BaseURL:    baseURL,
		MaxRetries: 2,
		MinBackoff: time.Millisecond,
		MaxBackoff: time.Millisecond,
	}
}

func TestChartPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":"PETR4.SA","regularMarketPrice":38.52}}],"error":null}}`)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	c, err := NewYahooClient(fastOptions(s.URL))
	if err != nil {
		t.Fatal(err)
	}

	p, err := c.GetCurrentPrice(context.Background(), "PETR4.SA")
	if err != nil {
		t.Fatal(err)
	}
	if want := "38.52"; p.String() != want {
		t.Errorf("price: got %s, want %s", p, want)
	}
}

func TestQuoteFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "VALE3.SA" {
			t.Errorf("symbols: got %q, want %q", got, "VALE3.SA")
		}
		fmt.Fprintf(w, `{"quoteResponse":{"result":[{"symbol":"VALE3.SA","regularMarketPrice":61.9}],"error":null}}`)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	c, err := NewYahooClient(fastOptions(s.URL))
	if err != nil {
		t.Fatal(err)
	}

	p, err := c.GetCurrentPrice(context.Background(), "VALE3.SA")
	if err != nil {
		t.Fatal(err)
	}
	if want := "61.9"; p.String() != want {
		t.Errorf("price: got %s, want %s", p, want)
	}
}

func TestRetryThenFail(t *testing.T) {
	var nchart, nquote int
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		nchart++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		nquote++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	c, err := NewYahooClient(fastOptions(s.URL))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetCurrentPrice(context.Background(), "ITUB4.SA"); err == nil {
		t.Fatal("price fetch must fail when both endpoints fail")
	}
	if nchart != 2 || nquote != 2 {
		t.Errorf("attempts: got chart=%d quote=%d, want 2 each", nchart, nquote)
	}
}

func TestNonPositivePrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"symbol":"XXXX.SA","regularMarketPrice":0}}],"error":null}}`)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"quoteResponse":{"result":[],"error":null}}`)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	c, err := NewYahooClient(fastOptions(s.URL))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetCurrentPrice(context.Background(), "XXXX.SA"); err == nil {
		t.Fatal("zero price must be reported as an error")
	}
}

func TestNormalize(t *testing.T) {
	c, err := NewYahooClient(&Options{ExchangeSuffix: "SA"})
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"petr4":    "PETR4.SA",
		"PETR4.SA": "PETR4.SA",
		" vale3 ":  "VALE3.SA",
		"AAPL.US":  "AAPL.US",
	}
	for in, want := range cases {
		if got := c.Normalize(in); got != want {
			t.Errorf("normalize %q: got %q, want %q", in, got, want)
		}
	}
}
