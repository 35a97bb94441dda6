package keepa

import (
	"encoding/json"
	"time"

	"keepa-tools/internal/model"
	"keepa-tools/internal/series"
)

// envelope holds the fields every reply carries.
type envelope struct {
	Timestamp          int64      `json:"timestamp"`
	TokensLeft         *int       `json:"tokensLeft"`
	RefillIn           int64      `json:"refillIn"`
	RefillRate         int        `json:"refillRate"`
	TokensConsumed     int        `json:"tokensConsumed"`
	TokenFlowReduction float64    `json:"tokenFlowReduction"`
	ProcessingTimeInMs int        `json:"processingTimeInMs"`
	Error              *errorBody `json:"error"`
}

// budget returns the reported budget, or nil when the reply carried none.
func (e envelope) budget() *model.TokenBudget {
	if e.TokensLeft == nil {
		return nil
	}
	return &model.TokenBudget{
		TokensLeft: *e.TokensLeft,
		RefillRate: e.RefillRate,
		RefillIn:   time.Duration(e.RefillIn) * time.Millisecond,
		Consumed:   e.TokensConsumed,
		ObservedAt: series.FromUnixMillis(e.Timestamp),
	}
}

type productResponse struct {
	Products []wireProduct `json:"products"`
}

type wireProduct struct {
	ASIN            string          `json:"asin"`
	DomainID        int             `json:"domainId"`
	Title           string          `json:"title"`
	Brand           string          `json:"brand"`
	ParentASIN      string          `json:"parentAsin"`
	RootCategory    int64           `json:"rootCategory"`
	Categories      []int64         `json:"categories"`
	ImagesCSV       string          `json:"imagesCSV"`
	CSV             [][]int         `json:"csv"`
	Stats           *wireStats      `json:"stats"`
	Offers          []wireOffer     `json:"offers"`
	Variations      []wireVariation `json:"variations"`
	MonthlySold     *int            `json:"monthlySold"`
	LastUpdate      int             `json:"lastUpdate"`
	LastPriceChange int             `json:"lastPriceChange"`
}

// wireStats is the statistics object. Extrema entries are kept raw: each is
// either null or a [time, value] pair, unlike the bare numbers of current/avg.
type wireStats struct {
	Current         []int `json:"current"`
	Avg             []int `json:"avg"`
	Avg30           []int `json:"avg30"`
	Avg90           []int `json:"avg90"`
	Avg180          []int `json:"avg180"`
	Avg365          []int `json:"avg365"`
	AtIntervalStart []int `json:"atIntervalStart"`

	Min           []json.RawMessage `json:"min"`
	Max           []json.RawMessage `json:"max"`
	MinInInterval []json.RawMessage `json:"minInInterval"`
	MaxInInterval []json.RawMessage `json:"maxInInterval"`

	OutOfStockPercentageInInterval []int `json:"outOfStockPercentageInInterval"`
	OutOfStockPercentage30         []int `json:"outOfStockPercentage30"`
	OutOfStockPercentage90         []int `json:"outOfStockPercentage90"`

	BuyBoxPrice               *int   `json:"buyBoxPrice"`
	BuyBoxShipping            *int   `json:"buyBoxShipping"`
	BuyBoxIsAmazon            bool   `json:"buyBoxIsAmazon"`
	BuyBoxIsFBA               bool   `json:"buyBoxIsFBA"`
	BuyBoxIsUsed              bool   `json:"buyBoxIsUsed"`
	BuyBoxSellerID            string `json:"buyBoxSellerId"`
	BuyBoxCondition           *int   `json:"buyBoxCondition"`
	BuyBoxAvailabilityMessage string `json:"buyBoxAvailabilityMessage"`

	SalesRankDrops30  int `json:"salesRankDrops30"`
	SalesRankDrops90  int `json:"salesRankDrops90"`
	SalesRankDrops180 int `json:"salesRankDrops180"`
	SalesRankDrops365 int `json:"salesRankDrops365"`

	TotalOfferCount int `json:"totalOfferCount"`
	OfferCountFBA   int `json:"offerCountFBA"`
	OfferCountFBM   int `json:"offerCountFBM"`
}

type wireOffer struct {
	OfferID     int    `json:"offerId"`
	SellerID    string `json:"sellerId"`
	Condition   int    `json:"condition"`
	IsPrime     bool   `json:"isPrime"`
	IsAmazon    bool   `json:"isAmazon"`
	IsFBA       bool   `json:"isFBA"`
	IsShippable bool   `json:"isShippable"`
	// OfferCSV holds time,price,shipping triplets.
	OfferCSV []int `json:"offerCSV"`
	// StockCSV holds time,stock pairs.
	StockCSV []int `json:"stockCSV"`
	LastSeen int   `json:"lastSeen"`
}

type wireVariation struct {
	ASIN       string `json:"asin"`
	Attributes []struct {
		Dimension string `json:"dimension"`
		Value     string `json:"value"`
	} `json:"attributes"`
}

type sellerResponse struct {
	Sellers map[string]wireSeller `json:"sellers"`
}

type wireSeller struct {
	SellerID           string   `json:"sellerId"`
	SellerName         string   `json:"sellerName"`
	DomainID           int      `json:"domainId"`
	CurrentRating      int      `json:"currentRating"`
	CurrentRatingCount int      `json:"currentRatingCount"`
	IsScammer          bool     `json:"isScammer"`
	HasFBA             bool     `json:"hasFBA"`
	HasFBM             bool     `json:"hasFBM"`
	ASINList           []string `json:"asinList"`
}

type dealResponse struct {
	Deals struct {
		DR []wireDeal `json:"dr"`
	} `json:"deals"`
}

// wireDeal is one deal. Image arrives as an array of character codes; the
// avg, delta and deltaPercent arrays are indexed by date range, then series.
type wireDeal struct {
	ASIN         string          `json:"asin"`
	Title        string          `json:"title"`
	Image        json.RawMessage `json:"image"`
	RootCat      int64           `json:"rootCat"`
	Current      []int           `json:"current"`
	Avg          [][]int         `json:"avg"`
	Delta        [][]int         `json:"delta"`
	DeltaPercent [][]int         `json:"deltaPercent"`
	CreationDate int             `json:"creationDate"`
	LightningEnd int             `json:"lightningEnd"`
	IsPrimeExcl  bool            `json:"isPrimeExclusive"`
	// Coupon is [one-time, subscribe & save]; negative values are percentages.
	Coupon []int `json:"coupon"`
}

type bestSellersResponse struct {
	BestSellersList *struct {
		DomainID   int      `json:"domainId"`
		Timestamp  int      `json:"timestamp"`
		CategoryID int64    `json:"categoryId"`
		ASINList   []string `json:"asinList"`
	} `json:"bestSellersList"`
}

type finderResponse struct {
	ASINList     []string `json:"asinList"`
	TotalResults int      `json:"totalResults"`
}

type categoryResponse struct {
	Categories      map[string]wireCategory `json:"categories"`
	CategoryParents map[string]wireCategory `json:"categoryParents"`
}

type wireCategory struct {
	DomainID     int     `json:"domainId"`
	CatID        int64   `json:"catId"`
	Name         string  `json:"name"`
	Children     []int64 `json:"children"`
	Parent       int64   `json:"parent"`
	IsBrowseNode bool    `json:"isBrowseNode"`
	HighestRank  int     `json:"highestRank"`
	LowestRank   int     `json:"lowestRank"`
	ProductCount int     `json:"productCount"`
}
