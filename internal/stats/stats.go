package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"keepa-tools/internal/model"
	"keepa-tools/internal/series"
)

// DefaultTrendThreshold is the relative change, in percent, below which a
// series is reported as stable.
const DefaultTrendThreshold = 3.0

// DefaultRiskThreshold is the 90-day out-of-stock percentage above which a
// product counts as high risk.
const DefaultRiskThreshold = 50

const topBrands = 5

// Trend compares the first and last sample. It returns nil when there are
// fewer than two samples or the first value is zero.
func Trend(samples []model.TimeSample, thresholdPct float64) *model.Trend {
	if len(samples) < 2 {
		return nil
	}
	first, last := samples[0], samples[len(samples)-1]
	if first.Value == 0 {
		return nil
	}
	change := decimal.NewFromFloat(last.Value - first.Value).
		Div(decimal.NewFromFloat(first.Value)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	pct, _ := change.Float64()

	dir := model.TrendStable
	switch {
	case math.Abs(pct) < thresholdPct:
	case pct > 0:
		dir = model.TrendUp
	default:
		dir = model.TrendDown
	}
	return &model.Trend{Direction: dir, ChangePercent: pct, From: first, To: last}
}

// Monthly groups samples by UTC calendar month in chronological order.
func Monthly(samples []model.TimeSample) []model.MonthBucket {
	var buckets []model.MonthBucket
	var sum float64
	for _, s := range samples {
		t := s.Time.UTC()
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		n := len(buckets)
		if n == 0 || !buckets[n-1].Month.Equal(month) {
			if n > 0 {
				buckets[n-1].Avg = sum / float64(buckets[n-1].Count)
			}
			buckets = append(buckets, model.MonthBucket{Month: month, Min: s.Value, Max: s.Value})
			sum = 0
			n++
		}
		b := &buckets[n-1]
		b.Min = math.Min(b.Min, s.Value)
		b.Max = math.Max(b.Max, s.Value)
		b.Count++
		sum += s.Value
	}
	if n := len(buckets); n > 0 {
		buckets[n-1].Avg = sum / float64(buckets[n-1].Count)
	}
	return buckets
}

// OutOfStock validates a provider-computed out-of-stock percentage. A
// negative value means no data and yields nil.
func OutOfStock(v int) (*int, error) {
	if v < 0 {
		return nil, nil
	}
	if v > 100 {
		return nil, &model.DecodeError{Field: "outOfStockPercentage", Reason: fmt.Sprintf("%d is outside 0-100", v)}
	}
	return &v, nil
}

// Average returns the statistics average for t over days; zero days selects
// the requested stats window.
func Average(p model.Product, t model.SeriesType, days int) (float64, bool) {
	if p.Statistics == nil {
		return 0, false
	}
	values, ok := p.Statistics.Average[days]
	if !ok {
		return 0, false
	}
	raw, ok := values.At(t)
	if !ok {
		return 0, false
	}
	return series.Value(t, raw)
}

// Velocity derives unit-sales estimates from the provider's monthly-sold
// figure. Without that figure the estimates stay nil; sales rank alone is
// never turned into a sales number.
func Velocity(p model.Product, trendDays int, now time.Time, thresholdPct float64) (model.SalesVelocity, error) {
	v := model.SalesVelocity{ASIN: p.ASIN, Title: p.Title, MonthlySold: p.MonthlySold}

	if p.MonthlySold != nil && *p.MonthlySold >= 0 {
		monthly := decimal.NewFromInt(int64(*p.MonthlySold))
		daily, _ := monthly.Div(decimal.NewFromInt(30)).Round(2).Float64()
		weekly, _ := monthly.Mul(decimal.NewFromInt(7)).Div(decimal.NewFromInt(30)).Round(2).Float64()
		m, _ := monthly.Float64()
		v.Daily, v.Weekly, v.Monthly = &daily, &weekly, &m
	}

	if rank, ok := p.Current(model.SeriesSalesRank); ok {
		v.SalesRank = &rank
	}
	if p.Statistics != nil {
		v.RankDrops30 = p.Statistics.SalesRankDrops[30]
	}

	if raw := p.Raw(model.SeriesSalesRank); len(raw) > 0 {
		samples, err := series.Decode(model.SeriesSalesRank, raw)
		if err != nil {
			return v, fmt.Errorf("decode sales rank of %s: %w", p.ASIN, err)
		}
		if v.SalesRank == nil {
			if last, ok := series.Latest(samples); ok {
				rank := int(last.Value)
				v.SalesRank = &rank
			}
		}
		if trendDays > 0 {
			samples = series.Since(samples, now.AddDate(0, 0, -trendDays))
		}
		v.RankTrend = Trend(samples, thresholdPct)
	}
	return v, nil
}

// ListPrice picks the price a shopper currently sees: Amazon, then new,
// then the buy box. Values are minor units.
func ListPrice(p model.Product) (int, bool) {
	for _, t := range []model.SeriesType{model.SeriesAmazon, model.SeriesNew} {
		if v, ok := p.Current(t); ok {
			return v, true
		}
	}
	if p.Statistics != nil && p.Statistics.BuyBox.Price >= 0 && p.Statistics.BuyBox.Winner != model.WinnerNone {
		return p.Statistics.BuyBox.Price, true
	}
	return 0, false
}

// AnalyzeCategory aggregates the current snapshots of products.
func AnalyzeCategory(domain int, categoryID int64, name string, products []model.Product) model.CategoryAnalysis {
	a := model.CategoryAnalysis{Domain: domain, CategoryID: categoryID, CategoryName: name, ProductCount: len(products)}
	if len(products) == 0 {
		return a
	}

	var (
		priceSum                        decimal.Decimal
		ratings, reviews, ranks, offers mean
		amazon, fba                     int
		brands                          = map[string]int{}
	)
	for _, p := range products {
		if price, ok := ListPrice(p); ok {
			if a.PricedCount == 0 || price < a.PriceMin {
				a.PriceMin = price
			}
			if price > a.PriceMax {
				a.PriceMax = price
			}
			priceSum = priceSum.Add(decimal.NewFromInt(int64(price)))
			a.PricedCount++
		}
		if v, ok := p.Current(model.SeriesRating); ok {
			ratings.add(model.RatingFromWire(v))
		}
		if v, ok := p.Current(model.SeriesCountReviews); ok {
			reviews.add(float64(v))
		}
		if v, ok := p.Current(model.SeriesSalesRank); ok {
			ranks.add(float64(v))
		}
		if p.Statistics != nil {
			if p.Statistics.TotalOfferCount > 0 {
				offers.add(float64(p.Statistics.TotalOfferCount))
			} else if v, ok := p.Current(model.SeriesCountNew); ok {
				offers.add(float64(v))
			}
			if p.Statistics.BuyBox.Winner == model.WinnerFBA {
				fba++
			}
		}
		if _, ok := p.Current(model.SeriesAmazon); ok {
			amazon++
		}
		if p.Brand != "" {
			brands[p.Brand]++
		}
	}

	if a.PricedCount > 0 {
		a.PriceAvg = int(priceSum.Div(decimal.NewFromInt(int64(a.PricedCount))).Round(0).IntPart())
	}
	a.AvgRating = round2(ratings.value())
	a.AvgReviews = round2(reviews.value())
	a.AvgSalesRank = round2(ranks.value())
	a.AvgOfferCount = round2(offers.value())
	a.AmazonSharePct = percent(amazon, len(products))
	a.FBASharePct = percent(fba, len(products))

	for brand, n := range brands {
		a.TopBrands = append(a.TopBrands, model.BrandShare{Brand: brand, Count: n})
	}
	sort.Slice(a.TopBrands, func(i, j int) bool {
		if a.TopBrands[i].Count != a.TopBrands[j].Count {
			return a.TopBrands[i].Count > a.TopBrands[j].Count
		}
		return a.TopBrands[i].Brand < a.TopBrands[j].Brand
	})
	if len(a.TopBrands) > topBrands {
		a.TopBrands = a.TopBrands[:topBrands]
	}
	return a
}

// AnalyzeInventory grades the stock situation of products. Out-of-stock
// percentages are taken from the Amazon series as reported by the provider.
func AnalyzeInventory(products []model.Product, riskThreshold int) (model.InventoryAnalysis, error) {
	if riskThreshold <= 0 {
		riskThreshold = DefaultRiskThreshold
	}
	out := model.InventoryAnalysis{Items: make([]model.InventoryItem, 0, len(products))}
	var oos90 mean
	for _, p := range products {
		item := model.InventoryItem{ASIN: p.ASIN, Title: p.Title, Risk: model.RiskUnknown}
		if st := p.Statistics; st != nil {
			var err error
			if item.OutOfStock30, err = outOfStockAt(st.OutOfStock30, "outOfStockPercentage30"); err != nil {
				return model.InventoryAnalysis{}, fmt.Errorf("%s: %w", p.ASIN, err)
			}
			if item.OutOfStock90, err = outOfStockAt(st.OutOfStock90, "outOfStockPercentage90"); err != nil {
				return model.InventoryAnalysis{}, fmt.Errorf("%s: %w", p.ASIN, err)
			}
			item.OfferCountFBA = st.OfferCountFBA
		}
		if v, ok := p.Current(model.SeriesCountNew); ok {
			item.OfferCountNew = v
		}
		for _, o := range p.Offers {
			if o.Stock == nil {
				continue
			}
			if item.StockTotal == nil {
				item.StockTotal = new(int)
			}
			*item.StockTotal += *o.Stock
		}

		basis := item.OutOfStock90
		if basis == nil {
			basis = item.OutOfStock30
		}
		if basis != nil {
			switch {
			case *basis >= riskThreshold:
				item.Risk = model.RiskHigh
			case *basis >= riskThreshold/2:
				item.Risk = model.RiskMedium
			default:
				item.Risk = model.RiskLow
			}
		}
		if item.OutOfStock90 != nil {
			oos90.add(float64(*item.OutOfStock90))
		}
		if item.Risk == model.RiskHigh {
			out.AtRisk = append(out.AtRisk, p.ASIN)
		}
		out.Items = append(out.Items, item)
	}
	if oos90.n > 0 {
		avg := round2(oos90.value())
		out.AvgOutOfStock90 = &avg
	}
	return out, nil
}

func outOfStockAt(values model.Values, field string) (*int, error) {
	if len(values) == 0 {
		return nil, nil
	}
	v, err := OutOfStock(values[model.SeriesAmazon])
	if err != nil {
		return nil, &model.DecodeError{Field: field, Reason: err.(*model.DecodeError).Reason}
	}
	return v, nil
}

// Major converts minor currency units to a major-unit decimal.
func Major(minor int) decimal.Decimal {
	return decimal.New(int64(minor), -2)
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(whole))
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
