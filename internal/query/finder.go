package query

import (
	"encoding/json"
	"fmt"
	"net/url"

	"keepa-tools/internal/model"
)

// FinderRequest searches products by snapshot criteria.
type FinderRequest struct {
	Domain       Domain
	RootCategory int64
	// PriceSeries selects which price the Price bounds apply to; zero means Amazon.
	PriceSeries     model.SeriesType
	Price           PriceRange
	PriceTimeframe  Timeframe
	SalesRank       IntRange
	MinRating       float64
	MinReviews      *int
	SellerCount     IntRange
	SellerTimeframe Timeframe
	MonthlySold     IntRange
	Brands          []string
	SortBy          string
	SortDesc        bool
	Page            int
	PerPage         int
}

// NormalizeFinder encodes a product finder request. Selection keys follow
// the provider convention <window>_<SERIES>_<gte|lte>.
func NormalizeFinder(req FinderRequest) (url.Values, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return nil, err
	}

	sel := map[string]any{}
	if req.RootCategory < 0 {
		return nil, &model.ValidationError{Field: "root_category", Reason: "must not be negative"}
	}
	if req.RootCategory > 0 {
		sel["rootCategory"] = req.RootCategory
	}

	priceTF := req.PriceTimeframe
	if priceTF == "" {
		priceTF = TimeframeCurrent
	}
	if req.PriceSeries.Kind() != model.KindPrice {
		return nil, &model.ValidationError{Field: "price_series", Reason: fmt.Sprintf("%s is not a price series", req.PriceSeries)}
	}
	priceField, err := FinderField(priceTF, req.PriceSeries)
	if err != nil {
		return nil, err
	}
	lo, hi, err := req.Price.minor()
	if err != nil {
		return nil, err
	}
	putBounds(sel, priceField, lo, hi)

	if err := req.SalesRank.validate("sales_rank", 1, 1<<31-1); err != nil {
		return nil, err
	}
	putBounds(sel, "current_SALES", req.SalesRank.Min, req.SalesRank.Max)

	if req.MinRating != 0 {
		rating, err := RatingToWire(req.MinRating)
		if err != nil {
			return nil, err
		}
		sel["current_RATING_gte"] = rating
	}
	if req.MinReviews != nil {
		if *req.MinReviews < 0 {
			return nil, &model.ValidationError{Field: "min_reviews", Reason: "must not be negative"}
		}
		sel["current_COUNT_REVIEWS_gte"] = *req.MinReviews
	}

	if err := req.SellerCount.validate("seller_count", 0, 1<<31-1); err != nil {
		return nil, err
	}
	sellerTF := req.SellerTimeframe
	if sellerTF == "" {
		sellerTF = TimeframeCurrent
	}
	sellerField, err := sellerTF.SellerCountField()
	if err != nil {
		return nil, err
	}
	putBounds(sel, sellerField, req.SellerCount.Min, req.SellerCount.Max)

	if err := req.MonthlySold.validate("monthly_sold", 0, 1<<31-1); err != nil {
		return nil, err
	}
	putBounds(sel, "monthlySold", req.MonthlySold.Min, req.MonthlySold.Max)

	if len(req.Brands) > 0 {
		sel["brand"] = req.Brands
	}

	if req.SortBy != "" {
		dir := "asc"
		if req.SortDesc {
			dir = "desc"
		}
		sel["sort"] = [][]string{{req.SortBy, dir}}
	}

	if req.Page < 0 {
		return nil, &model.ValidationError{Field: "page", Reason: "must not be negative"}
	}
	perPage := req.PerPage
	if perPage == 0 {
		perPage = 50
	}
	if perPage < 50 || perPage > 10000 {
		return nil, &model.ValidationError{Field: "per_page", Reason: fmt.Sprintf("must be within 50-10000, got %d", perPage)}
	}
	sel["page"] = req.Page
	sel["perPage"] = perPage

	doc, err := json.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("encode finder selection: %w", err)
	}
	params.Set("selection", string(doc))
	return params, nil
}

func putBounds(sel map[string]any, field string, lo, hi *int) {
	if lo != nil {
		sel[field+"_gte"] = *lo
	}
	if hi != nil {
		sel[field+"_lte"] = *hi
	}
}
