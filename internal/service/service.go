package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"keepa-tools/internal/batch"
	"keepa-tools/internal/keepa"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/series"
	"keepa-tools/internal/stats"
)

// Provider is the data source behind the tools.
type Provider interface {
	Products(ctx context.Context, req query.ProductRequest) (batch.Result[model.Product], error)
	Sellers(ctx context.Context, req query.SellerRequest) (batch.Result[model.Seller], error)
	Deals(ctx context.Context, req query.DealRequest) ([]model.Deal, error)
	BestSellers(ctx context.Context, req query.BestSellersRequest) (model.BestSellers, error)
	Finder(ctx context.Context, req query.FinderRequest) (model.FinderResult, error)
	Categories(ctx context.Context, req query.CategoryRequest) ([]model.Category, error)
	TokenStatus(ctx context.Context) (model.TokenBudget, error)
}

// Options tune the analysis tools.
type Options struct {
	// TrendThresholdPct is the relative change below which a trend is stable.
	TrendThresholdPct float64
	Now               func() time.Time
}

// Service exposes one entry point per tool.
type Service struct {
	provider Provider
	opts     Options
	logger   zerolog.Logger
}

// New constructs the tool service.
func New(provider Provider, opts Options, logger zerolog.Logger) *Service {
	if opts.TrendThresholdPct <= 0 {
		opts.TrendThresholdPct = stats.DefaultTrendThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		provider: provider,
		opts:     opts,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// ProductLookup returns a single product.
func (s *Service) ProductLookup(ctx context.Context, req query.ProductRequest) (model.Product, error) {
	if len(req.ASINs) != 1 {
		return model.Product{}, &model.ValidationError{Field: "asin", Reason: "exactly one asin required"}
	}
	res, err := s.provider.Products(ctx, req)
	if err != nil {
		return model.Product{}, err
	}
	if len(res.Items) == 0 {
		return model.Product{}, &model.NotFoundError{Kind: "product", IDs: req.ASINs}
	}
	return res.Items[0], nil
}

// BatchProductLookup returns products in request order. A partial result is
// returned together with its *batch.PartialResultError.
func (s *Service) BatchProductLookup(ctx context.Context, req query.ProductRequest) (batch.Result[model.Product], error) {
	return s.provider.Products(ctx, req)
}

// SearchDeals queries the deal feed.
func (s *Service) SearchDeals(ctx context.Context, req query.DealRequest) ([]model.Deal, error) {
	return s.provider.Deals(ctx, req)
}

// SellerLookup returns seller profiles in request order.
func (s *Service) SellerLookup(ctx context.Context, req query.SellerRequest) (batch.Result[model.Seller], error) {
	return s.provider.Sellers(ctx, req)
}

// BestSellers returns a category's best-seller list.
func (s *Service) BestSellers(ctx context.Context, req query.BestSellersRequest) (model.BestSellers, error) {
	return s.provider.BestSellers(ctx, req)
}

// ProductFinder searches products by snapshot criteria.
func (s *Service) ProductFinder(ctx context.Context, req query.FinderRequest) (model.FinderResult, error) {
	return s.provider.Finder(ctx, req)
}

// CategoryLookup returns category metadata.
func (s *Service) CategoryLookup(ctx context.Context, req query.CategoryRequest) ([]model.Category, error) {
	return s.provider.Categories(ctx, req)
}

// TokenStatus reports the provider's current token budget.
func (s *Service) TokenStatus(ctx context.Context) (model.TokenBudget, error) {
	return s.provider.TokenStatus(ctx)
}

// AnalyzeCategory aggregates the current snapshots of a category sample.
func (s *Service) AnalyzeCategory(ctx context.Context, req query.CategoryAnalysisRequest) (model.CategoryAnalysis, error) {
	if err := req.Validate(); err != nil {
		return model.CategoryAnalysis{}, err
	}
	domain, _ := req.Domain.Code()

	tf := req.Timeframe
	if tf == "" {
		tf = query.Timeframe30
	}
	products, err := s.sample(ctx, req.Selection, query.ProductRequest{Stats: tf, Rating: true})
	if err != nil {
		return model.CategoryAnalysis{}, err
	}

	name := ""
	cats, err := s.provider.Categories(ctx, query.CategoryRequest{Domain: req.Domain, Categories: []int64{req.Category}})
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Int64("category", req.Category).Msg("category name lookup failed")
	case len(cats) > 0:
		name = cats[0].Name
	}

	analysis := stats.AnalyzeCategory(domain, req.Category, name, products)
	s.logger.Info().
		Int64("category", req.Category).
		Int("products", analysis.ProductCount).
		Int("priced", analysis.PricedCount).
		Msg("category analysed")
	return analysis, nil
}

// SalesVelocity estimates unit sales for each selected product.
func (s *Service) SalesVelocity(ctx context.Context, req query.VelocityRequest) ([]model.SalesVelocity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	days := req.TrendDays
	if days == 0 {
		days = 30
	}
	products, err := s.sample(ctx, req.Selection, query.ProductRequest{History: true, Stats: query.Timeframe30, Days: days})
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	out := make([]model.SalesVelocity, 0, len(products))
	for _, p := range products {
		v, err := stats.Velocity(p, days, now, s.opts.TrendThresholdPct)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// InventoryAnalysis grades the stock picture of each selected product.
func (s *Service) InventoryAnalysis(ctx context.Context, req query.InventoryRequest) (model.InventoryAnalysis, error) {
	if err := req.Validate(); err != nil {
		return model.InventoryAnalysis{}, err
	}
	products, err := s.sample(ctx, req.Selection, query.ProductRequest{Stats: query.Timeframe90, Offers: 20, Stock: true})
	if err != nil {
		return model.InventoryAnalysis{}, err
	}
	return stats.AnalyzeInventory(products, req.RiskThreshold)
}

// PriceHistory decodes one series of one product with its trend and
// monthly summary.
func (s *Service) PriceHistory(ctx context.Context, req query.HistoryRequest) (model.PriceHistory, error) {
	preq, err := req.Product()
	if err != nil {
		return model.PriceHistory{}, err
	}
	p, err := s.ProductLookup(ctx, preq)
	if err != nil {
		return model.PriceHistory{}, err
	}

	samples, err := series.Decode(req.Series, p.Raw(req.Series))
	if err != nil {
		return model.PriceHistory{}, fmt.Errorf("decode %s history of %s: %w", req.Series, p.ASIN, err)
	}
	if req.Days > 0 {
		samples = series.Since(samples, s.opts.Now().AddDate(0, 0, -req.Days))
	}
	return model.PriceHistory{
		ASIN:    p.ASIN,
		Series:  req.Series,
		Samples: samples,
		Trend:   stats.Trend(samples, s.opts.TrendThresholdPct),
		Months:  stats.Monthly(samples),
	}, nil
}

// sample resolves a selection to products, fetching them with the flags of
// base. A partially fetched set is analysed as far as it goes.
func (s *Service) sample(ctx context.Context, sel query.Selection, base query.ProductRequest) ([]model.Product, error) {
	asins := sel.ASINs
	if len(asins) == 0 {
		size := sel.Sample()
		found, err := s.provider.Finder(ctx, query.FinderRequest{
			Domain:       sel.Domain,
			RootCategory: sel.Category,
			SortBy:       "current_SALES",
			PerPage:      max(size, 50),
		})
		if err != nil {
			return nil, fmt.Errorf("sample category %d: %w", sel.Category, err)
		}
		asins = found.ASINs
		if len(asins) > size {
			asins = asins[:size]
		}
		if len(asins) == 0 {
			return nil, nil
		}
	}

	base.Domain = sel.Domain
	base.ASINs = asins
	res, err := s.provider.Products(ctx, base)
	if err != nil {
		if !errors.Is(err, model.ErrPartialResult) {
			return nil, err
		}
		s.logger.Warn().Err(err).Int("fetched", len(res.Items)).Msg("continuing with partial product set")
	}
	if len(res.NotFound) > 0 {
		s.logger.Debug().Strs("not_found", res.NotFound).Msg("products not returned by provider")
	}
	return res.Items, nil
}

var _ Provider = (*keepa.Client)(nil)
