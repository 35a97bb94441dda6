package model

import "time"

// TimeSample is one decoded point of a time series.
type TimeSample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// RawSeries is a provider time series as received: flat time,value pairs
// (or time,price,shipping triplets for shipping-inclusive types).
type RawSeries []int

// Values is a statistics array indexed by SeriesType.
type Values []int

// At returns the value for t; ok is false when the index is absent or holds a sentinel.
func (v Values) At(t SeriesType) (int, bool) {
	if int(t) < 0 || int(t) >= len(v) {
		return 0, false
	}
	if v[t] < 0 {
		return 0, false
	}
	return v[t], true
}

// BuyBoxWinner classifies who holds the buy box.
type BuyBoxWinner string

const (
	WinnerNone   BuyBoxWinner = "none"
	WinnerAmazon BuyBoxWinner = "amazon"
	WinnerFBA    BuyBoxWinner = "fba"
	WinnerFBM    BuyBoxWinner = "fbm"
)

// BuyBox summarises the current buy box. Prices are minor units, -1 when absent.
type BuyBox struct {
	Price        int          `json:"price"`
	Shipping     int          `json:"shipping"`
	Winner       BuyBoxWinner `json:"winner"`
	SellerID     string       `json:"seller_id,omitempty"`
	Condition    int          `json:"condition"`
	Availability string       `json:"availability,omitempty"`
	IsUsed       bool         `json:"is_used"`
}

// Statistics is the provider-computed snapshot attached to a product.
// Every Values array shares the SeriesType index space.
type Statistics struct {
	Current Values `json:"current"`
	// Average is keyed by window length in days; key 0 is the requested stats window.
	Average         map[int]Values `json:"average"`
	AtIntervalStart Values         `json:"at_interval_start,omitempty"`
	// Extrema entries are nil when the provider reported no value for that index.
	Min           []*TimeSample `json:"min,omitempty"`
	Max           []*TimeSample `json:"max,omitempty"`
	MinInInterval []*TimeSample `json:"min_in_interval,omitempty"`
	MaxInInterval []*TimeSample `json:"max_in_interval,omitempty"`

	OutOfStockInInterval Values `json:"out_of_stock_in_interval,omitempty"`
	OutOfStock30         Values `json:"out_of_stock_30,omitempty"`
	OutOfStock90         Values `json:"out_of_stock_90,omitempty"`

	BuyBox          BuyBox      `json:"buy_box"`
	SalesRankDrops  map[int]int `json:"sales_rank_drops,omitempty"`
	TotalOfferCount int         `json:"total_offer_count"`
	OfferCountFBA   int         `json:"offer_count_fba"`
	OfferCountFBM   int         `json:"offer_count_fbm"`
}

// Extremum returns the extremum for t from one of the extrema arrays.
func Extremum(list []*TimeSample, t SeriesType) (TimeSample, bool) {
	if int(t) < 0 || int(t) >= len(list) || list[t] == nil {
		return TimeSample{}, false
	}
	return *list[t], true
}

// Variation is one sibling of a parent listing.
type Variation struct {
	ASIN       string            `json:"asin"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Product is a decoded single-product response. It has no backing store.
// History is indexed by SeriesType; absent series are null.
type Product struct {
	ASIN            string      `json:"asin"`
	Domain          int         `json:"domain"`
	Title           string      `json:"title"`
	Brand           string      `json:"brand,omitempty"`
	ParentASIN      string      `json:"parent_asin,omitempty"`
	RootCategory    int64       `json:"root_category,omitempty"`
	Categories      []int64     `json:"categories,omitempty"`
	Image           string      `json:"image,omitempty"`
	Statistics      *Statistics `json:"statistics,omitempty"`
	History         []RawSeries `json:"history,omitempty"`
	Offers          []Offer     `json:"offers,omitempty"`
	Variations      []Variation `json:"variations,omitempty"`
	MonthlySold     *int        `json:"monthly_sold,omitempty"`
	LastUpdate      time.Time   `json:"last_update"`
	LastPriceChange time.Time   `json:"last_price_change"`
}

// Raw returns the raw series for t, or nil when the provider did not send it.
func (p Product) Raw(t SeriesType) RawSeries {
	if int(t) < 0 || int(t) >= len(p.History) {
		return nil
	}
	return p.History[t]
}

// Current returns the current statistics value for t.
func (p Product) Current(t SeriesType) (int, bool) {
	if p.Statistics == nil {
		return 0, false
	}
	return p.Statistics.Current.At(t)
}

// ImageURL expands the first image reference to a CDN URL.
func (p Product) ImageURL() string {
	if p.Image == "" {
		return ""
	}
	return "https://m.media-amazon.com/images/I/" + p.Image
}
