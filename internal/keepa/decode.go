package keepa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"keepa-tools/internal/model"
	"keepa-tools/internal/series"
)

// This file is the only place provider JSON becomes domain values.

func decodeProduct(w wireProduct) (model.Product, error) {
	p := model.Product{
		ASIN:            strings.ToUpper(w.ASIN),
		Domain:          w.DomainID,
		Title:           w.Title,
		Brand:           w.Brand,
		ParentASIN:      w.ParentASIN,
		RootCategory:    w.RootCategory,
		Categories:      w.Categories,
		LastUpdate:      series.FromKeepaMinutesOpt(w.LastUpdate),
		LastPriceChange: series.FromKeepaMinutesOpt(w.LastPriceChange),
	}
	if img, _, _ := strings.Cut(w.ImagesCSV, ","); img != "" {
		p.Image = img
	}
	if w.MonthlySold != nil && *w.MonthlySold >= 0 {
		sold := *w.MonthlySold
		p.MonthlySold = &sold
	}

	if len(w.CSV) > 0 {
		p.History = make([]model.RawSeries, len(w.CSV))
		for i, raw := range w.CSV {
			if raw == nil {
				continue
			}
			t := model.SeriesType(i)
			if t.Valid() && len(raw)%t.Stride() != 0 {
				return model.Product{}, &model.DecodeError{
					Field:  fmt.Sprintf("%s.csv[%d]", p.ASIN, i),
					Reason: fmt.Sprintf("length %d is not a multiple of %d", len(raw), t.Stride()),
				}
			}
			p.History[i] = raw
		}
	}

	if w.Stats != nil {
		st, err := decodeStats(w.Stats)
		if err != nil {
			return model.Product{}, fmt.Errorf("%s: %w", p.ASIN, err)
		}
		p.Statistics = st
	}

	for i, wo := range w.Offers {
		o, err := decodeOffer(wo)
		if err != nil {
			return model.Product{}, fmt.Errorf("%s offers[%d]: %w", p.ASIN, i, err)
		}
		p.Offers = append(p.Offers, o)
	}

	for _, wv := range w.Variations {
		v := model.Variation{ASIN: wv.ASIN}
		if len(wv.Attributes) > 0 {
			v.Attributes = make(map[string]string, len(wv.Attributes))
			for _, a := range wv.Attributes {
				v.Attributes[a.Dimension] = a.Value
			}
		}
		p.Variations = append(p.Variations, v)
	}
	return p, nil
}

func decodeStats(w *wireStats) (*model.Statistics, error) {
	st := &model.Statistics{
		Current:              w.Current,
		AtIntervalStart:      w.AtIntervalStart,
		OutOfStockInInterval: w.OutOfStockPercentageInInterval,
		OutOfStock30:         w.OutOfStockPercentage30,
		OutOfStock90:         w.OutOfStockPercentage90,
		TotalOfferCount:      w.TotalOfferCount,
		OfferCountFBA:        w.OfferCountFBA,
		OfferCountFBM:        w.OfferCountFBM,
		Average:              map[int]model.Values{},
		SalesRankDrops: map[int]int{
			30:  w.SalesRankDrops30,
			90:  w.SalesRankDrops90,
			180: w.SalesRankDrops180,
			365: w.SalesRankDrops365,
		},
	}
	for days, avg := range map[int][]int{0: w.Avg, 30: w.Avg30, 90: w.Avg90, 180: w.Avg180, 365: w.Avg365} {
		if avg != nil {
			st.Average[days] = avg
		}
	}

	var err error
	if st.Min, err = series.DecodeExtrema("min", w.Min); err != nil {
		return nil, err
	}
	if st.Max, err = series.DecodeExtrema("max", w.Max); err != nil {
		return nil, err
	}
	if st.MinInInterval, err = series.DecodeExtrema("minInInterval", w.MinInInterval); err != nil {
		return nil, err
	}
	if st.MaxInInterval, err = series.DecodeExtrema("maxInInterval", w.MaxInInterval); err != nil {
		return nil, err
	}

	st.BuyBox = model.BuyBox{
		Price:        -1,
		Shipping:     -1,
		Winner:       model.WinnerNone,
		SellerID:     w.BuyBoxSellerID,
		Condition:    -1,
		Availability: w.BuyBoxAvailabilityMessage,
		IsUsed:       w.BuyBoxIsUsed,
	}
	if w.BuyBoxShipping != nil {
		st.BuyBox.Shipping = *w.BuyBoxShipping
	}
	if w.BuyBoxCondition != nil {
		st.BuyBox.Condition = *w.BuyBoxCondition
	}
	if w.BuyBoxPrice != nil && *w.BuyBoxPrice >= 0 {
		st.BuyBox.Price = *w.BuyBoxPrice
		switch {
		case w.BuyBoxIsAmazon:
			st.BuyBox.Winner = model.WinnerAmazon
		case w.BuyBoxIsFBA:
			st.BuyBox.Winner = model.WinnerFBA
		default:
			st.BuyBox.Winner = model.WinnerFBM
		}
	}
	return st, nil
}

func decodeOffer(w wireOffer) (model.Offer, error) {
	o := model.Offer{
		OfferID:     w.OfferID,
		SellerID:    w.SellerID,
		Condition:   w.Condition,
		Price:       -1,
		Shipping:    -1,
		IsAmazon:    w.IsAmazon,
		IsFBA:       w.IsFBA,
		IsPrime:     w.IsPrime,
		IsShippable: w.IsShippable,
		LastSeen:    series.FromKeepaMinutesOpt(w.LastSeen),
	}
	if len(w.OfferCSV)%3 != 0 {
		return model.Offer{}, &model.DecodeError{Field: "offerCSV", Reason: fmt.Sprintf("length %d is not a multiple of 3", len(w.OfferCSV))}
	}
	if n := len(w.OfferCSV); n > 0 {
		o.Price, o.Shipping = w.OfferCSV[n-2], w.OfferCSV[n-1]
	}
	if len(w.StockCSV)%2 != 0 {
		return model.Offer{}, &model.DecodeError{Field: "stockCSV", Reason: fmt.Sprintf("length %d is not a multiple of 2", len(w.StockCSV))}
	}
	if n := len(w.StockCSV); n > 0 && w.StockCSV[n-1] >= 0 {
		stock := w.StockCSV[n-1]
		o.Stock = &stock
	}
	return o, nil
}

func decodeSeller(id string, w wireSeller) model.Seller {
	if w.SellerID == "" {
		w.SellerID = id
	}
	return model.Seller{
		ID:          strings.ToUpper(w.SellerID),
		Domain:      w.DomainID,
		Name:        w.SellerName,
		Rating:      max(w.CurrentRating, 0),
		RatingCount: max(w.CurrentRatingCount, 0),
		IsScammer:   w.IsScammer,
		HasFBA:      w.HasFBA,
		HasFBM:      w.HasFBM,
		Storefront:  w.ASINList,
	}
}

func decodeDeal(w wireDeal, priceType model.SeriesType, window int) (model.Deal, error) {
	d := model.Deal{
		ASIN:             w.ASIN,
		Title:            w.Title,
		RootCategory:     w.RootCat,
		Price:            -1,
		Baseline:         -1,
		IsLightning:      priceType == model.SeriesLightningDeal || w.LightningEnd > 0,
		IsPrimeExclusive: w.IsPrimeExcl,
		Created:          series.FromKeepaMinutesOpt(w.CreationDate),
		LightningEnd:     series.FromKeepaMinutesOpt(w.LightningEnd),
	}

	img, err := decodeImage(w.Image)
	if err != nil {
		return model.Deal{}, &model.DecodeError{Field: w.ASIN + ".image", Reason: err.Error()}
	}
	d.Image = img

	if v, ok := model.Values(w.Current).At(priceType); ok {
		d.Price = v
	}
	if v, ok := windowValue(w.Avg, window, priceType); ok {
		d.Baseline = v
	}
	if v, ok := windowValue(w.Delta, window, priceType); ok {
		d.DiscountAmount = abs(v)
	}
	if v, ok := windowValue(w.DeltaPercent, window, priceType); ok {
		d.DiscountPercent = abs(v)
	}
	if len(w.Coupon) > 0 && w.Coupon[0] < 0 {
		pct := -w.Coupon[0]
		d.CouponPercent = &pct
	}
	return d, nil
}

func windowValue(grid [][]int, window int, t model.SeriesType) (int, bool) {
	if window < 0 || window >= len(grid) {
		return 0, false
	}
	row := grid[window]
	if int(t) >= len(row) {
		return 0, false
	}
	return row[t], true
}

// decodeImage accepts an image name either as a string or as character codes.
func decodeImage(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var codes []rune
	if err := json.Unmarshal(raw, &codes); err != nil {
		return "", fmt.Errorf("image is neither a string nor character codes")
	}
	return string(codes), nil
}

func decodeCategories(domain int, in map[string]wireCategory) []model.Category {
	out := make([]model.Category, 0, len(in))
	for _, w := range in {
		d := w.DomainID
		if d == 0 {
			d = domain
		}
		out = append(out, model.Category{
			ID:           w.CatID,
			Domain:       d,
			Name:         w.Name,
			Parent:       w.Parent,
			Children:     w.Children,
			ProductCount: w.ProductCount,
			HighestRank:  w.HighestRank,
			LowestRank:   w.LowestRank,
			IsBrowseNode: w.IsBrowseNode,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
