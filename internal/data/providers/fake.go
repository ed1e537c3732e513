package providers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// Fake is a scripted in-memory provider for tests and dry runs.
type Fake struct {
	ProviderName string

	Quotes       map[string]Quote
	Fundamentals map[string]*snapshot.Fundamental
	Technicals   map[string]*snapshot.Technical
	Companies    map[string]CompanyInfo
	Candles      map[string][]Candle

	// Err, when set, fails every call.
	Err error
	// Delay is applied before each response.
	Delay time.Duration

	calls int64
}

var _ Provider = (*Fake)(nil)
var _ TechnicalsProvider = (*Fake)(nil)
var _ CandleProvider = (*Fake)(nil)

// NewFake creates an empty fake.
func NewFake(name string) *Fake {
	return &Fake{
		ProviderName: name,
		Quotes:       make(map[string]Quote),
		Fundamentals: make(map[string]*snapshot.Fundamental),
		Technicals:   make(map[string]*snapshot.Technical),
		Companies:    make(map[string]CompanyInfo),
		Candles:      make(map[string][]Candle),
	}
}

func (f *Fake) Name() string { return f.ProviderName }

// Calls returns how many requests the fake has served or failed.
func (f *Fake) Calls() int64 { return atomic.LoadInt64(&f.calls) }

func (f *Fake) before(ctx context.Context) error {
	atomic.AddInt64(&f.calls, 1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.Err
}

func (f *Fake) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	if err := f.before(ctx); err != nil {
		return Quote{}, err
	}
	q, ok := f.Quotes[symbol]
	if !ok {
		return Quote{}, ErrNotFound
	}
	q.Source = f.ProviderName
	return q, nil
}

func (f *Fake) GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error) {
	if err := f.before(ctx); err != nil {
		return nil, err
	}
	fund, ok := f.Fundamentals[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	out := *fund
	out.Source = f.ProviderName
	return &out, nil
}

func (f *Fake) GetCompanyInfo(ctx context.Context, symbol string) (CompanyInfo, error) {
	if err := f.before(ctx); err != nil {
		return CompanyInfo{}, err
	}
	info, ok := f.Companies[symbol]
	if !ok {
		return CompanyInfo{}, ErrNotFound
	}
	info.Source = f.ProviderName
	return info, nil
}

func (f *Fake) GetTechnicals(ctx context.Context, symbol string) (*snapshot.Technical, error) {
	if err := f.before(ctx); err != nil {
		return nil, err
	}
	tech, ok := f.Technicals[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	out := *tech
	out.Source = f.ProviderName
	return &out, nil
}

func (f *Fake) GetCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	if err := f.before(ctx); err != nil {
		return nil, err
	}
	candles, ok := f.Candles[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return candles, nil
}
