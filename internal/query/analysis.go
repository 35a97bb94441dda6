package query

import (
	"keepa-tools/internal/model"
)

// MaxSampleSize caps how many products an analysis pulls from a category.
const MaxSampleSize = 500

// HistoryRequest asks for one decoded series of one product.
type HistoryRequest struct {
	Domain Domain
	ASIN   string
	Series model.SeriesType
	Days   int
}

// Product returns the product request needed to serve h.
func (h HistoryRequest) Product() (ProductRequest, error) {
	if !h.Series.Valid() {
		return ProductRequest{}, &model.ValidationError{Field: "series", Reason: h.Series.String()}
	}
	if h.Days < 0 {
		return ProductRequest{}, &model.ValidationError{Field: "days", Reason: "must not be negative"}
	}
	req := ProductRequest{Domain: h.Domain, ASINs: []string{h.ASIN}, History: true, Days: h.Days}
	if h.Series.Kind() == model.KindRating {
		req.Rating = true
	}
	return req, nil
}

// Selection picks products either explicitly or from a category sample.
type Selection struct {
	Domain     Domain
	ASINs      []string
	Category   int64
	SampleSize int
}

func (s Selection) validate() error {
	if _, err := s.Domain.Code(); err != nil {
		return err
	}
	if len(s.ASINs) == 0 && s.Category <= 0 {
		return &model.ValidationError{Field: "selection", Reason: "either asins or a category is required"}
	}
	if s.SampleSize < 0 || s.SampleSize > MaxSampleSize {
		return &model.ValidationError{Field: "sample_size", Reason: "must be within 0-500"}
	}
	return nil
}

// Sample returns the effective category sample size.
func (s Selection) Sample() int {
	if s.SampleSize == 0 {
		return 50
	}
	return s.SampleSize
}

// CategoryAnalysisRequest asks for aggregate figures over a category sample.
type CategoryAnalysisRequest struct {
	Selection
	Timeframe Timeframe
}

// Validate checks the request before any provider call.
func (r CategoryAnalysisRequest) Validate() error {
	if r.Category <= 0 {
		return &model.ValidationError{Field: "category", Reason: "must be a positive category id"}
	}
	if r.Timeframe != "" {
		if _, err := r.Timeframe.Days(); err != nil {
			return err
		}
	}
	return r.Selection.validate()
}

// VelocityRequest asks for unit-sales estimates.
type VelocityRequest struct {
	Selection
	TrendDays int
}

// Validate checks the request before any provider call.
func (r VelocityRequest) Validate() error {
	if r.TrendDays < 0 {
		return &model.ValidationError{Field: "trend_days", Reason: "must not be negative"}
	}
	return r.Selection.validate()
}

// InventoryRequest asks for stock analysis.
type InventoryRequest struct {
	Selection
	// RiskThreshold is the 90-day out-of-stock percentage above which a product is at risk.
	RiskThreshold int
}

// Validate checks the request before any provider call.
func (r InventoryRequest) Validate() error {
	if r.RiskThreshold < 0 || r.RiskThreshold > 100 {
		return &model.ValidationError{Field: "risk_threshold", Reason: "must be within 0-100"}
	}
	return r.Selection.validate()
}
