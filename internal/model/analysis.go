package model

import "time"

// TrendDirection labels the movement of a series over a window.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend is the relative change between the first and last sample of a window.
type Trend struct {
	Direction     TrendDirection `json:"direction"`
	ChangePercent float64        `json:"change_percent"`
	From          TimeSample     `json:"from"`
	To            TimeSample     `json:"to"`
}

// MonthBucket summarises the samples of one calendar month.
type MonthBucket struct {
	Month time.Time `json:"month"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Avg   float64   `json:"avg"`
	Count int       `json:"count"`
}

// Single reports whether the bucket collapses to one figure.
func (b MonthBucket) Single() bool {
	return b.Min == b.Max
}

// PriceHistory is one decoded series with its derived summaries.
type PriceHistory struct {
	ASIN    string        `json:"asin"`
	Series  SeriesType    `json:"series"`
	Samples []TimeSample  `json:"samples"`
	Trend   *Trend        `json:"trend,omitempty"`
	Months  []MonthBucket `json:"months,omitempty"`
}

// BrandShare counts products per brand.
type BrandShare struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// CategoryAnalysis aggregates current snapshots of the products in a category.
type CategoryAnalysis struct {
	Domain         int          `json:"domain"`
	CategoryID     int64        `json:"category_id"`
	CategoryName   string       `json:"category_name,omitempty"`
	ProductCount   int          `json:"product_count"`
	PricedCount    int          `json:"priced_count"`
	PriceMin       int          `json:"price_min"`
	PriceMax       int          `json:"price_max"`
	PriceAvg       int          `json:"price_avg"`
	AvgRating      float64      `json:"avg_rating"`
	AvgReviews     float64      `json:"avg_reviews"`
	AvgSalesRank   float64      `json:"avg_sales_rank"`
	AvgOfferCount  float64      `json:"avg_offer_count"`
	AmazonSharePct float64      `json:"amazon_share_pct"`
	FBASharePct    float64      `json:"fba_share_pct"`
	TopBrands      []BrandShare `json:"top_brands,omitempty"`
}

// SalesVelocity holds unit-sales estimates. The estimate fields are nil when
// the provider did not report an authoritative units-sold figure.
type SalesVelocity struct {
	ASIN        string   `json:"asin"`
	Title       string   `json:"title"`
	MonthlySold *int     `json:"monthly_sold,omitempty"`
	Daily       *float64 `json:"daily,omitempty"`
	Weekly      *float64 `json:"weekly,omitempty"`
	Monthly     *float64 `json:"monthly,omitempty"`
	SalesRank   *int     `json:"sales_rank,omitempty"`
	RankTrend   *Trend   `json:"rank_trend,omitempty"`
	RankDrops30 int      `json:"rank_drops_30"`
}

// StockRisk grades how often a product has been out of stock.
type StockRisk string

const (
	RiskLow     StockRisk = "low"
	RiskMedium  StockRisk = "medium"
	RiskHigh    StockRisk = "high"
	RiskUnknown StockRisk = "unknown"
)

// InventoryItem is the stock picture of one product.
type InventoryItem struct {
	ASIN          string    `json:"asin"`
	Title         string    `json:"title"`
	OutOfStock30  *int      `json:"out_of_stock_30,omitempty"`
	OutOfStock90  *int      `json:"out_of_stock_90,omitempty"`
	OfferCountNew int       `json:"offer_count_new"`
	OfferCountFBA int       `json:"offer_count_fba"`
	StockTotal    *int      `json:"stock_total,omitempty"`
	Risk          StockRisk `json:"risk"`
}

// InventoryAnalysis aggregates stock pictures over a product set.
type InventoryAnalysis struct {
	Items           []InventoryItem `json:"items"`
	AvgOutOfStock90 *float64        `json:"avg_out_of_stock_90,omitempty"`
	AtRisk          []string        `json:"at_risk,omitempty"`
}
