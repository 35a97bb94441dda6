package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"keepa-tools/internal/model"
)

var (
	asinPattern   = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	sellerPattern = regexp.MustCompile(`^[A-Z0-9]{8,20}$`)
)

// Query is a normalized provider call: the flat parameters shared by every
// chunk plus the identifier list the batch requester splits.
type Query struct {
	Params url.Values
	IDs    []string
}

// ProductRequest asks for one or more products.
type ProductRequest struct {
	Domain  Domain
	ASINs   []string
	History bool
	// Stats selects the statistics window; empty means none.
	Stats Timeframe
	// StatsDays overrides Stats with an arbitrary window length.
	StatsDays int
	Offers    int
	Stock     bool
	Rating    bool
	BuyBox    bool
	Days      int
	Update    *int
}

// NormalizeProduct encodes a product request. History and statistics are
// independent; when neither is requested only the current snapshot is asked for.
func NormalizeProduct(req ProductRequest) (Query, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return Query{}, err
	}

	ids, err := normalizeIDs("asin", req.ASINs, asinPattern)
	if err != nil {
		return Query{}, err
	}

	history := "0"
	if req.History {
		history = "1"
	}
	params.Set("history", history)

	switch {
	case req.StatsDays < 0:
		return Query{}, &model.ValidationError{Field: "stats_days", Reason: "must not be negative"}
	case req.StatsDays > 0:
		params.Set("stats", strconv.Itoa(req.StatsDays))
	case req.Stats != "":
		window, err := req.Stats.StatsWindow()
		if err != nil {
			return Query{}, err
		}
		params.Set("stats", window)
	case !req.History:
		params.Set("stats", "1")
	}

	if req.Offers != 0 {
		if req.Offers < 20 || req.Offers > 100 {
			return Query{}, &model.ValidationError{Field: "offers", Reason: fmt.Sprintf("must be within 20-100, got %d", req.Offers)}
		}
		params.Set("offers", strconv.Itoa(req.Offers))
	}
	if req.Stock {
		if req.Offers == 0 {
			return Query{}, &model.ValidationError{Field: "stock", Reason: "requires offers"}
		}
		params.Set("stock", "1")
	}
	if req.Rating {
		params.Set("rating", "1")
	}
	if req.BuyBox {
		params.Set("buybox", "1")
	}
	if req.Days < 0 {
		return Query{}, &model.ValidationError{Field: "days", Reason: "must not be negative"}
	}
	if req.Days > 0 {
		params.Set("days", strconv.Itoa(req.Days))
	}
	if req.Update != nil {
		if *req.Update < -1 {
			return Query{}, &model.ValidationError{Field: "update", Reason: "must be -1 or a number of hours"}
		}
		params.Set("update", strconv.Itoa(*req.Update))
	}

	return Query{Params: params, IDs: ids}, nil
}

// ProductCost estimates the token cost of one product call for n identifiers.
func ProductCost(params url.Values, n int) int {
	cost := n
	if params.Get("offers") != "" {
		cost += 6 * n
	}
	if params.Get("buybox") == "1" {
		cost += 2 * n
	}
	return cost
}

// SellerRequest asks for seller profiles.
type SellerRequest struct {
	Domain     Domain
	SellerIDs  []string
	Storefront bool
}

// NormalizeSeller encodes a seller request.
func NormalizeSeller(req SellerRequest) (Query, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return Query{}, err
	}
	ids, err := normalizeIDs("seller", req.SellerIDs, sellerPattern)
	if err != nil {
		return Query{}, err
	}
	if req.Storefront {
		params.Set("storefront", "1")
	}
	return Query{Params: params, IDs: ids}, nil
}

// SellerCost estimates the token cost of one seller call for n identifiers.
func SellerCost(params url.Values, n int) int {
	if params.Get("storefront") == "1" {
		return 10 * n
	}
	return n
}

// BestSellersRequest asks for a category's best-seller list.
type BestSellersRequest struct {
	Domain   Domain
	Category int64
	// Range averages ranks over a window; empty or current uses the live rank.
	Range Timeframe
}

// NormalizeBestSellers encodes a best-seller request.
func NormalizeBestSellers(req BestSellersRequest) (url.Values, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return nil, err
	}
	if req.Category <= 0 {
		return nil, &model.ValidationError{Field: "category", Reason: "must be a positive category id"}
	}
	params.Set("category", strconv.FormatInt(req.Category, 10))
	if req.Range != "" && req.Range != TimeframeCurrent {
		days, err := req.Range.Days()
		if err != nil {
			return nil, err
		}
		if days == 365 {
			return nil, &model.ValidationError{Field: "range", Reason: "best sellers support up to 180 days"}
		}
		params.Set("range", strconv.Itoa(days))
	}
	return params, nil
}

// CategoryRequest asks for category metadata.
type CategoryRequest struct {
	Domain     Domain
	Categories []int64
	Parents    bool
}

// NormalizeCategory encodes a category lookup.
func NormalizeCategory(req CategoryRequest) (url.Values, error) {
	params := url.Values{}
	if err := setDomain(params, req.Domain); err != nil {
		return nil, err
	}
	if len(req.Categories) == 0 || len(req.Categories) > 10 {
		return nil, &model.ValidationError{Field: "category", Reason: "between 1 and 10 category ids required"}
	}
	ids := make([]string, len(req.Categories))
	for i, c := range req.Categories {
		if c < 0 {
			return nil, &model.ValidationError{Field: "category", Reason: fmt.Sprintf("invalid id %d", c)}
		}
		ids[i] = strconv.FormatInt(c, 10)
	}
	params.Set("category", strings.Join(ids, ","))
	if req.Parents {
		params.Set("parents", "1")
	}
	return params, nil
}

func normalizeIDs(field string, ids []string, pattern *regexp.Regexp) ([]string, error) {
	if len(ids) == 0 {
		return nil, &model.ValidationError{Field: field, Reason: "at least one identifier required"}
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		norm := strings.ToUpper(strings.TrimSpace(id))
		if !pattern.MatchString(norm) {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("malformed identifier %q at position %d", id, i)}
		}
		out[i] = norm
	}
	return out, nil
}
