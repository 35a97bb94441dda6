package model

import (
	"fmt"
	"strings"
)

// RatingScale is the factor between stars and the provider's integer rating.
const RatingScale = 10

// RatingFromWire converts the provider's 0-50 rating to stars.
func RatingFromWire(v int) float64 {
	return float64(v) / RatingScale
}

// SeriesType identifies the observed quantity behind a provider time series
// or a statistics array index. The numeric values are the provider's csv indices.
type SeriesType int

const (
	SeriesAmazon SeriesType = iota
	SeriesNew
	SeriesUsed
	SeriesSalesRank
	SeriesListPrice
	SeriesCollectible
	SeriesRefurbished
	SeriesNewFBMShipping
	SeriesLightningDeal
	SeriesWarehouse
	SeriesNewFBA
	SeriesCountNew
	SeriesCountUsed
	SeriesCountRefurbished
	SeriesCountCollectible
	SeriesExtraInfoUpdates
	SeriesRating
	SeriesCountReviews
	SeriesBuyBoxShipping
	SeriesUsedNewShipping
	SeriesUsedVeryGoodShipping
	SeriesUsedGoodShipping
	SeriesUsedAcceptableShipping
	SeriesCollectibleNewShipping
	SeriesCollectibleVeryGoodShipping
	SeriesCollectibleGoodShipping
	SeriesCollectibleAcceptableShipping
	SeriesRefurbishedShipping
	SeriesEbayNewShipping
	SeriesEbayUsedShipping
	SeriesTradeIn
	SeriesRent
	SeriesBuyBoxUsedShipping
	SeriesPrimeExclusive

	seriesCount
)

// SeriesKind groups series types by unit semantics.
type SeriesKind int

const (
	// KindPrice values are minor currency units; -1 means no data.
	KindPrice SeriesKind = iota
	// KindRank values are ranks; only values >= 0 are valid.
	KindRank
	// KindCount values are plain counts; only values >= 0 are valid.
	KindCount
	// KindRating values are stars times ten (0-50).
	KindRating
)

// NoData is the provider sentinel for "no value at this point".
const NoData = -1

type seriesInfo struct {
	name     string
	kind     SeriesKind
	shipping bool
}

var seriesTable = [seriesCount]seriesInfo{
	SeriesAmazon:                        {"amazon", KindPrice, false},
	SeriesNew:                           {"new", KindPrice, false},
	SeriesUsed:                          {"used", KindPrice, false},
	SeriesSalesRank:                     {"sales_rank", KindRank, false},
	SeriesListPrice:                     {"list_price", KindPrice, false},
	SeriesCollectible:                   {"collectible", KindPrice, false},
	SeriesRefurbished:                   {"refurbished", KindPrice, false},
	SeriesNewFBMShipping:                {"new_fbm_shipping", KindPrice, true},
	SeriesLightningDeal:                 {"lightning_deal", KindPrice, false},
	SeriesWarehouse:                     {"warehouse", KindPrice, false},
	SeriesNewFBA:                        {"new_fba", KindPrice, false},
	SeriesCountNew:                      {"count_new", KindCount, false},
	SeriesCountUsed:                     {"count_used", KindCount, false},
	SeriesCountRefurbished:              {"count_refurbished", KindCount, false},
	SeriesCountCollectible:              {"count_collectible", KindCount, false},
	SeriesExtraInfoUpdates:              {"extra_info_updates", KindCount, false},
	SeriesRating:                        {"rating", KindRating, false},
	SeriesCountReviews:                  {"count_reviews", KindCount, false},
	SeriesBuyBoxShipping:                {"buy_box_shipping", KindPrice, true},
	SeriesUsedNewShipping:               {"used_new_shipping", KindPrice, true},
	SeriesUsedVeryGoodShipping:          {"used_very_good_shipping", KindPrice, true},
	SeriesUsedGoodShipping:              {"used_good_shipping", KindPrice, true},
	SeriesUsedAcceptableShipping:        {"used_acceptable_shipping", KindPrice, true},
	SeriesCollectibleNewShipping:        {"collectible_new_shipping", KindPrice, true},
	SeriesCollectibleVeryGoodShipping:   {"collectible_very_good_shipping", KindPrice, true},
	SeriesCollectibleGoodShipping:       {"collectible_good_shipping", KindPrice, true},
	SeriesCollectibleAcceptableShipping: {"collectible_acceptable_shipping", KindPrice, true},
	SeriesRefurbishedShipping:           {"refurbished_shipping", KindPrice, true},
	SeriesEbayNewShipping:               {"ebay_new_shipping", KindPrice, true},
	SeriesEbayUsedShipping:              {"ebay_used_shipping", KindPrice, true},
	SeriesTradeIn:                       {"trade_in", KindPrice, false},
	SeriesRent:                          {"rent", KindPrice, false},
	SeriesBuyBoxUsedShipping:            {"buy_box_used_shipping", KindPrice, true},
	SeriesPrimeExclusive:                {"prime_exclusive", KindPrice, false},
}

// Valid reports whether t is a known series index.
func (t SeriesType) Valid() bool {
	return t >= 0 && t < seriesCount
}

// Kind returns the unit semantics of the series.
func (t SeriesType) Kind() SeriesKind {
	if !t.Valid() {
		return KindCount
	}
	return seriesTable[t].kind
}

// WithShipping reports whether the raw series is encoded as time,price,shipping triplets.
func (t SeriesType) WithShipping() bool {
	return t.Valid() && seriesTable[t].shipping
}

// Stride is the number of raw integers per sample.
func (t SeriesType) Stride() int {
	if t.WithShipping() {
		return 3
	}
	return 2
}

func (t SeriesType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("series(%d)", int(t))
	}
	return seriesTable[t].name
}

// ParseSeriesType resolves a series name (as printed by String) or its index.
func ParseSeriesType(name string) (SeriesType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, info := range seriesTable {
		if info.name == key {
			return SeriesType(i), nil
		}
	}
	var idx int
	if _, err := fmt.Sscanf(key, "%d", &idx); err == nil && SeriesType(idx).Valid() {
		return SeriesType(idx), nil
	}
	return 0, &ValidationError{Field: "series", Reason: fmt.Sprintf("unknown series type %q", name)}
}
