package query

import (
	"encoding/json"
	"fmt"
	"net/url"

	"keepa-tools/internal/model"
)

// DealWindow bounds how recent a deal must be.
type DealWindow string

const (
	DealsDay        DealWindow = "day"
	DealsWeek       DealWindow = "week"
	DealsMonth      DealWindow = "month"
	DealsThreeMonth DealWindow = "3months"
)

var dealWindows = map[DealWindow]int{DealsDay: 0, DealsWeek: 1, DealsMonth: 2, DealsThreeMonth: 3}

// DealSort orders the deal feed.
type DealSort string

const (
	SortNewest         DealSort = "newest"
	SortAbsoluteDelta  DealSort = "delta"
	SortSalesRank      DealSort = "rank"
	SortPercentageDrop DealSort = "percent"
)

var dealSorts = map[DealSort]int{SortNewest: 1, SortAbsoluteDelta: 2, SortSalesRank: 3, SortPercentageDrop: 4}

// DealRequest filters the provider's deal feed.
type DealRequest struct {
	Domain            Domain
	Page              int
	PriceType         model.SeriesType
	Price             PriceRange
	DiscountPercent   IntRange
	SalesRank         IntRange
	Categories        []int64
	ExcludeCategories []int64
	MinRating         float64
	Lightning         bool
	PrimeExclusive    bool
	HasReviews        bool
	Window            DealWindow
	Sort              DealSort
	Title             string
}

type dealSelection struct {
	Page              int     `json:"page"`
	DomainID          int     `json:"domainId"`
	IncludeCategories []int64 `json:"includeCategories"`
	ExcludeCategories []int64 `json:"excludeCategories"`
	PriceTypes        []int   `json:"priceTypes"`
	DeltaPercentRange [2]int  `json:"deltaPercentRange"`
	CurrentRange      [2]int  `json:"currentRange"`
	SalesRankRange    [2]int  `json:"salesRankRange"`
	MinRating         int     `json:"minRating"`
	IsRangeEnabled    bool    `json:"isRangeEnabled"`
	IsFilterEnabled   bool    `json:"isFilterEnabled"`
	HasReviews        bool    `json:"hasReviews"`
	IsPrimeExclusive  bool    `json:"isPrimeExclusive"`
	FilterErotic      bool    `json:"filterErotic"`
	SingleVariation   bool    `json:"singleVariation"`
	SortType          int     `json:"sortType"`
	DateRange         int     `json:"dateRange"`
	TitleSearch       string  `json:"titleSearch,omitempty"`
}

// NormalizeDeals encodes a deal query as the provider's selection document.
func NormalizeDeals(req DealRequest) (url.Values, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return nil, err
	}
	code, _ := req.Domain.Code()

	if req.Page < 0 {
		return nil, &model.ValidationError{Field: "page", Reason: "must not be negative"}
	}

	sel := dealSelection{
		Page:              req.Page,
		DomainID:          code,
		IncludeCategories: nonNil(req.Categories),
		ExcludeCategories: nonNil(req.ExcludeCategories),
		DeltaPercentRange: [2]int{0, 100},
		CurrentRange:      [2]int{0, -1},
		SalesRankRange:    [2]int{-1, -1},
		MinRating:         -1,
		IsRangeEnabled:    true,
		IsFilterEnabled:   true,
		HasReviews:        req.HasReviews,
		IsPrimeExclusive:  req.PrimeExclusive,
		FilterErotic:      true,
		SingleVariation:   true,
		TitleSearch:       req.Title,
	}

	priceType := req.PriceSeries()
	if !priceType.Valid() || priceType.Kind() != model.KindPrice {
		return nil, &model.ValidationError{Field: "price_type", Reason: fmt.Sprintf("%s is not a price series", priceType)}
	}
	sel.PriceTypes = []int{int(priceType)}

	if err := req.DiscountPercent.validate("discount_percent", 0, 100); err != nil {
		return nil, err
	}
	if req.DiscountPercent.Min != nil {
		sel.DeltaPercentRange[0] = *req.DiscountPercent.Min
	}
	if req.DiscountPercent.Max != nil {
		sel.DeltaPercentRange[1] = *req.DiscountPercent.Max
	}

	lo, hi, err := req.Price.minor()
	if err != nil {
		return nil, err
	}
	if lo != nil {
		sel.CurrentRange[0] = *lo
	}
	if hi != nil {
		sel.CurrentRange[1] = *hi
	}

	if err := req.SalesRank.validate("sales_rank", 1, 1<<31-1); err != nil {
		return nil, err
	}
	if req.SalesRank.Min != nil {
		sel.SalesRankRange[0] = *req.SalesRank.Min
	}
	if req.SalesRank.Max != nil {
		sel.SalesRankRange[1] = *req.SalesRank.Max
	}

	if req.MinRating != 0 {
		rating, err := RatingToWire(req.MinRating)
		if err != nil {
			return nil, err
		}
		sel.MinRating = rating
	}

	window := req.Window
	if window == "" {
		window = DealsWeek
	}
	dateRange, ok := dealWindows[window]
	if !ok {
		return nil, &model.ValidationError{Field: "window", Reason: fmt.Sprintf("unknown window %q", string(window))}
	}
	sel.DateRange = dateRange

	sort := req.Sort
	if sort == "" {
		sort = SortPercentageDrop
	}
	sortType, ok := dealSorts[sort]
	if !ok {
		return nil, &model.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", string(sort))}
	}
	sel.SortType = sortType

	doc, err := json.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("encode deal selection: %w", err)
	}
	params.Set("selection", string(doc))
	return params, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// PriceSeries returns the series the feed is filtered on.
func (r DealRequest) PriceSeries() model.SeriesType {
	if r.Lightning {
		return model.SeriesLightningDeal
	}
	return r.PriceType
}

// WindowIndex returns the provider's date-range index for the request.
func (r DealRequest) WindowIndex() int {
	if r.Window == "" {
		return dealWindows[DealsWeek]
	}
	return dealWindows[r.Window]
}
