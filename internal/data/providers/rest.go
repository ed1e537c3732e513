package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// RESTConfig configures a generic JSON quote API adapter.
type RESTConfig struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// REST adapts a JSON-over-HTTP vendor to the Provider interface. The wire
// shape is the lowest common denominator of retail market-data APIs:
// flat JSON objects with nullable numeric fields.
type REST struct {
	name   string
	client *resty.Client
}

// NewREST builds an adapter from config.
func NewREST(cfg RESTConfig) *REST {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetQueryParam("apikey", cfg.APIKey)
	}
	return &REST{name: cfg.Name, client: client}
}

func (r *REST) Name() string { return r.name }

type restQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

func (r *REST) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	var out restQuote
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/quote")
	if err != nil {
		return Quote{}, fmt.Errorf("%s quote: %w", r.name, err)
	}
	if resp.StatusCode() == 404 {
		return Quote{}, fmt.Errorf("%s quote for %s: %w", r.name, symbol, ErrNotFound)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("%s quote: status %d", r.name, resp.StatusCode())
	}
	ts := time.Unix(out.Timestamp, 0)
	if out.Timestamp == 0 {
		ts = time.Now()
	}
	return Quote{
		Symbol:    symbol,
		Price:     out.Price,
		Volume:    out.Volume,
		Timestamp: ts,
		Source:    r.name,
	}, nil
}

type restFundamentals struct {
	Symbol          string   `json:"symbol"`
	PE              *float64 `json:"pe"`
	PB              *float64 `json:"pb"`
	PS              *float64 `json:"ps"`
	EVEBITDA        *float64 `json:"ev_ebitda"`
	PEG             *float64 `json:"peg"`
	ROE             *float64 `json:"roe"`
	DebtEquity      *float64 `json:"debt_equity"`
	CurrentRatio    *float64 `json:"current_ratio"`
	OperatingMargin *float64 `json:"operating_margin"`
	NetMargin       *float64 `json:"net_margin"`
	RevenueGrowth   *float64 `json:"revenue_growth"`
	EarningsGrowth  *float64 `json:"earnings_growth"`
	DividendYield   *float64 `json:"dividend_yield"`
	PayoutRatio     *float64 `json:"payout_ratio"`
}

func (r *REST) GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error) {
	var out restFundamentals
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/fundamentals")
	if err != nil {
		return nil, fmt.Errorf("%s fundamentals: %w", r.name, err)
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("%s fundamentals for %s: %w", r.name, symbol, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s fundamentals: status %d", r.name, resp.StatusCode())
	}
	return &snapshot.Fundamental{
		Symbol:          symbol,
		PE:              optional(out.PE),
		PB:              optional(out.PB),
		PS:              optional(out.PS),
		EVEBITDA:        optional(out.EVEBITDA),
		PEG:             optional(out.PEG),
		ROE:             optional(out.ROE),
		DebtEquity:      optional(out.DebtEquity),
		CurrentRatio:    optional(out.CurrentRatio),
		OperatingMargin: optional(out.OperatingMargin),
		NetMargin:       optional(out.NetMargin),
		RevenueGrowth:   optional(out.RevenueGrowth),
		EarningsGrowth:  optional(out.EarningsGrowth),
		DividendYield:   optional(out.DividendYield),
		PayoutRatio:     optional(out.PayoutRatio),
		Timestamp:       time.Now(),
		Source:          r.name,
	}, nil
}

type restCompany struct {
	Symbol    string  `json:"symbol"`
	Sector    string  `json:"sector"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"market_cap"`
}

func (r *REST) GetCompanyInfo(ctx context.Context, symbol string) (CompanyInfo, error) {
	var out restCompany
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/company")
	if err != nil {
		return CompanyInfo{}, fmt.Errorf("%s company: %w", r.name, err)
	}
	if resp.StatusCode() == 404 {
		return CompanyInfo{}, fmt.Errorf("%s company for %s: %w", r.name, symbol, ErrNotFound)
	}
	if resp.IsError() {
		return CompanyInfo{}, fmt.Errorf("%s company: status %d", r.name, resp.StatusCode())
	}
	return CompanyInfo{
		Symbol:    symbol,
		Sector:    out.Sector,
		Exchange:  out.Exchange,
		MarketCap: out.MarketCap,
		Timestamp: time.Now(),
		Source:    r.name,
	}, nil
}

type restCandle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// GetCandles implements CandleProvider.
func (r *REST) GetCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	var out []restCandle
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetQueryParam("days", fmt.Sprintf("%d", days)).
		SetResult(&out).
		Get("/candles")
	if err != nil {
		return nil, fmt.Errorf("%s candles: %w", r.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s candles: status %d", r.name, resp.StatusCode())
	}
	candles := make([]Candle, 0, len(out))
	for _, c := range out {
		candles = append(candles, Candle{
			Time:   time.Unix(c.Time, 0),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return candles, nil
}

func optional(v *float64) snapshot.Float {
	if v == nil {
		return snapshot.Absent()
	}
	return snapshot.FloatFrom(*v)
}
