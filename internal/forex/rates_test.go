package forex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		RateAPIBaseURL:   srv.URL,
		RateBaseCurrency: "TWD",
		RateTTL:          time.Hour,
		RateFetchTimeout: 2 * time.Second,
	}
	return NewProvider(cfg, config.DefaultLabels(), zerolog.Nop()), srv
}

func TestProviderParsesRates(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/TWD" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":0.0317,"JPY":4.65,"EUR":0.029}}`))
	})

	if err := p.RefreshIfStale(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rates := p.Rates()
	if got := rates["美元"]; got != 0.0317 {
		t.Errorf("USD rate = %v", got)
	}
	if got := rates["日圓"]; got != 4.65 {
		t.Errorf("JPY rate = %v", got)
	}
	if _, ok := rates["人民幣"]; ok {
		t.Error("CNY should be absent when the api omits it")
	}
}

func TestProviderSkipsFetchWhileFresh(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":0.0317}}`))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := p.RefreshIfStale(ctx); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one fetch while cache is fresh, got %d", got)
	}

	// A forced refresh always fetches.
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("forced refresh: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected forced fetch, got %d calls", got)
	}
}

func TestProviderSkipsNullAndZeroRates(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":null,"JPY":0,"EUR":0.029,"CNY":"x"}}`))
	})

	if err := p.RefreshIfStale(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rates := p.Rates()
	if len(rates) != 1 {
		t.Fatalf("expected only the usable rate, got %v", rates)
	}
	if got := rates["歐元"]; got != 0.029 {
		t.Errorf("EUR rate = %v", got)
	}
}

func TestProviderRejectsFailureResult(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	})

	if err := p.RefreshIfStale(context.Background()); err == nil {
		t.Fatal("expected an error for a non-success result")
	}
	if got := len(p.Rates()); got != 0 {
		t.Errorf("rates table should stay empty, got %d entries", got)
	}
}
