package forex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"xiaojin-bot/internal/config"
)

const ratesKey = "rates"

// RateSource supplies the current exchange table, keyed by currency
// display name, relative to the local currency.
type RateSource interface {
	RefreshIfStale(ctx context.Context) error
	Rates() map[string]float64
}

// Provider fetches rates from the er-api endpoint and keeps the table
// in a TTL cache. The table is replaced wholesale on each refresh; a
// failed fetch keeps whatever table is still cached.
type Provider struct {
	apiBase    string
	base       string
	currencies []config.Currency
	client     *http.Client
	cache      *gocache.Cache
	mu         sync.Mutex
	log        zerolog.Logger
}

func NewProvider(cfg *config.Config, labels config.Labels, log zerolog.Logger) *Provider {
	return &Provider{
		apiBase:    cfg.RateAPIBaseURL,
		base:       cfg.RateBaseCurrency,
		currencies: labels.Currencies,
		client:     &http.Client{Timeout: cfg.RateFetchTimeout},
		cache:      gocache.New(cfg.RateTTL, cfg.RateTTL),
		log:        log.With().Str("component", "forex.rates").Logger(),
	}
}

// RefreshIfStale fetches a new table only when the cached one expired.
func (p *Provider) RefreshIfStale(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.cache.Get(ratesKey); ok {
		return nil
	}
	return p.refresh(ctx)
}

// Refresh forces a fetch regardless of cache age. Used by the daily
// scheduler.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refresh(ctx)
}

func (p *Provider) refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", p.apiBase, p.base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build rate request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read rate response: %w", err)
	}
	if result := gjson.GetBytes(body, "result").String(); result != "success" {
		return fmt.Errorf("rate api returned %q", result)
	}

	table := make(map[string]float64, len(p.currencies))
	for _, c := range p.currencies {
		v := gjson.GetBytes(body, "rates."+c.Code)
		// The api reports unavailable currencies as null, which gjson
		// still considers existing. Only a positive number is usable.
		if v.Type != gjson.Number || v.Float() <= 0 {
			continue
		}
		table[c.Name] = v.Float()
	}
	p.cache.Set(ratesKey, table, gocache.DefaultExpiration)
	p.log.Info().Int("currencies", len(table)).Msg("exchange rates refreshed")
	return nil
}

// Rates returns a copy of the cached table, or an empty table when no
// fetch has succeeded yet.
func (p *Provider) Rates() map[string]float64 {
	v, ok := p.cache.Get(ratesKey)
	if !ok {
		return map[string]float64{}
	}
	table := v.(map[string]float64)
	out := make(map[string]float64, len(table))
	for name, rate := range table {
		out[name] = rate
	}
	return out
}
