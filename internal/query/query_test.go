package query

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"keepa-tools/internal/model"
)

const testASIN = "B00TEST123"

func TestDomainCodes(t *testing.T) {
	for d := 1; d <= 11; d++ {
		q, err := NormalizeProduct(ProductRequest{Domain: Domain(d), ASINs: []string{testASIN}})
		if err != nil {
			t.Fatalf("domain %d: unexpected error %v", d, err)
		}
		if got := q.Params.Get("domain"); got != strconv.Itoa(d) {
			t.Errorf("domain %d: param = %q", d, got)
		}
	}

	for _, d := range []int{-1, 0, 12, 100} {
		_, err := NormalizeProduct(ProductRequest{Domain: Domain(d), ASINs: []string{testASIN}})
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("domain %d: want validation error, got %v", d, err)
		}
	}
}

func TestParseDomain(t *testing.T) {
	tests := map[string]Domain{"us": DomainUS, "UK": DomainGB, "de": DomainDE, "11": DomainMX, " jp ": DomainJP}
	for in, want := range tests {
		got, err := ParseDomain(in)
		if err != nil || got != want {
			t.Errorf("ParseDomain(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParseDomain("12"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("12 should be rejected, got %v", err)
	}
	if _, err := ParseDomain("atlantis"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("unknown name should be rejected, got %v", err)
	}
}

func TestRatingRoundTrip(t *testing.T) {
	for i := 10; i <= 50; i++ {
		stars := float64(i) / 10
		wire, err := RatingToWire(stars)
		if err != nil {
			t.Fatalf("RatingToWire(%v): %v", stars, err)
		}
		if wire != i {
			t.Errorf("RatingToWire(%v) = %d, want %d", stars, wire, i)
		}
		if back := model.RatingFromWire(wire); math.Abs(back-stars) > 1e-9 {
			t.Errorf("round trip %v -> %d -> %v", stars, wire, back)
		}
	}
	for _, bad := range []float64{0, 0.9, 5.1, math.NaN()} {
		if _, err := RatingToWire(bad); !errors.Is(err, model.ErrValidation) {
			t.Errorf("RatingToWire(%v) should fail", bad)
		}
	}
}

func TestMoneyMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		want    int
		wantErr bool
	}{
		{"minor passes through", *Cents(1999), 1999, false},
		{"major converted", *Major(decimal.RequireFromString("19.99")), 1999, false},
		{"major whole", *Major(decimal.NewFromInt(5)), 500, false},
		{"sub-cent rejected", *Major(decimal.RequireFromString("1.999")), 0, true},
		{"fractional minor rejected", Money{Amount: decimal.RequireFromString("10.5")}, 0, true},
		{"negative rejected", *Cents(-1), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.money.MinorUnits()
			if tt.wantErr {
				if !errors.Is(err, model.ErrValidation) {
					t.Fatalf("want validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestTimeframeMapping(t *testing.T) {
	tests := []struct {
		tf     Timeframe
		stats  string
		seller string
	}{
		{TimeframeCurrent, "1", "current_COUNT_NEW"},
		{Timeframe30, "30", "avg30_COUNT_NEW"},
		{Timeframe90, "90", "avg90_COUNT_NEW"},
		{Timeframe180, "180", "avg180_COUNT_NEW"},
		{Timeframe365, "365", "avg365_COUNT_NEW"},
	}
	for _, tt := range tests {
		stats, err := tt.tf.StatsWindow()
		if err != nil || stats != tt.stats {
			t.Errorf("%s stats = %q, %v", tt.tf, stats, err)
		}
		seller, err := tt.tf.SellerCountField()
		if err != nil || seller != tt.seller {
			t.Errorf("%s seller field = %q, %v", tt.tf, seller, err)
		}
	}
	if _, err := Timeframe("7day").StatsWindow(); !errors.Is(err, model.ErrValidation) {
		t.Errorf("unknown timeframe should fail, got %v", err)
	}
	if f, _ := FinderField(Timeframe90, model.SeriesSalesRank); f != "avg90_SALES" {
		t.Errorf("FinderField sales rank = %q", f)
	}
}

func TestNormalizeProductHistoryStatsToggles(t *testing.T) {
	tests := []struct {
		name        string
		req         ProductRequest
		wantHistory string
		wantStats   string
	}{
		{"both", ProductRequest{History: true, Stats: Timeframe90}, "1", "90"},
		{"history only", ProductRequest{History: true}, "1", ""},
		{"stats only", ProductRequest{Stats: Timeframe30}, "0", "30"},
		{"neither keeps current snapshot", ProductRequest{}, "0", "1"},
		{"custom days", ProductRequest{StatsDays: 45}, "0", "45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Domain = DomainUS
			tt.req.ASINs = []string{testASIN}
			q, err := NormalizeProduct(tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := q.Params.Get("history"); got != tt.wantHistory {
				t.Errorf("history = %q, want %q", got, tt.wantHistory)
			}
			if got := q.Params.Get("stats"); got != tt.wantStats {
				t.Errorf("stats = %q, want %q", got, tt.wantStats)
			}
		})
	}
}

func TestNormalizeProductIdentifiers(t *testing.T) {
	q, err := NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: []string{" b00test123 ", testASIN}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.IDs) != 2 || q.IDs[0] != testASIN || q.IDs[1] != testASIN {
		t.Fatalf("ids = %v; duplicates must be preserved and normalized", q.IDs)
	}
	if q.Params.Get("asin") != "" {
		t.Error("identifier list belongs to the batch requester, not the shared params")
	}

	for _, ids := range [][]string{nil, {"short"}, {"B00TEST12!"}} {
		if _, err := NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: ids}); !errors.Is(err, model.ErrValidation) {
			t.Errorf("ids %v: want validation error, got %v", ids, err)
		}
	}

	if _, err := NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: []string{testASIN}, Offers: 10}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("offers below 20 should fail, got %v", err)
	}
	if _, err := NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: []string{testASIN}, Stock: true}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("stock without offers should fail, got %v", err)
	}
}

func TestProductCost(t *testing.T) {
	q, _ := NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: []string{testASIN}, Offers: 20})
	if got := ProductCost(q.Params, 3); got != 21 {
		t.Errorf("cost with offers = %d, want 21", got)
	}
	q, _ = NormalizeProduct(ProductRequest{Domain: DomainUS, ASINs: []string{testASIN}})
	if got := ProductCost(q.Params, 3); got != 3 {
		t.Errorf("plain cost = %d, want 3", got)
	}
}

func TestNormalizeDeals(t *testing.T) {
	params, err := NormalizeDeals(DealRequest{
		Domain:          DomainDE,
		Price:           PriceRange{Min: Major(decimal.NewFromInt(10)), Max: Cents(5000)},
		DiscountPercent: IntRange{Min: Int(20)},
		MinRating:       4,
		Lightning:       true,
		Window:          DealsDay,
		Sort:            SortNewest,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Get("domain") != "3" {
		t.Errorf("domain = %q", params.Get("domain"))
	}

	var sel dealSelection
	if err := json.Unmarshal([]byte(params.Get("selection")), &sel); err != nil {
		t.Fatalf("selection is not JSON: %v", err)
	}
	if sel.DomainID != 3 {
		t.Errorf("domainId = %d", sel.DomainID)
	}
	if sel.CurrentRange != [2]int{1000, 5000} {
		t.Errorf("currentRange = %v", sel.CurrentRange)
	}
	if sel.DeltaPercentRange != [2]int{20, 100} {
		t.Errorf("deltaPercentRange = %v", sel.DeltaPercentRange)
	}
	if sel.MinRating != 40 {
		t.Errorf("minRating = %d, want 40", sel.MinRating)
	}
	if len(sel.PriceTypes) != 1 || sel.PriceTypes[0] != int(model.SeriesLightningDeal) {
		t.Errorf("priceTypes = %v", sel.PriceTypes)
	}
	if sel.DateRange != 0 || sel.SortType != 1 {
		t.Errorf("dateRange/sortType = %d/%d", sel.DateRange, sel.SortType)
	}

	if _, err := NormalizeDeals(DealRequest{Domain: DomainUS, PriceType: model.SeriesSalesRank}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("rank price type should fail, got %v", err)
	}
	if _, err := NormalizeDeals(DealRequest{Domain: DomainUS, DiscountPercent: IntRange{Min: Int(80), Max: Int(20)}}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("inverted range should fail, got %v", err)
	}
}

func TestNormalizeFinder(t *testing.T) {
	params, err := NormalizeFinder(FinderRequest{
		Domain:          DomainUS,
		RootCategory:    172282,
		PriceSeries:     model.SeriesNew,
		Price:           PriceRange{Min: Cents(1000)},
		PriceTimeframe:  Timeframe90,
		SalesRank:       IntRange{Max: Int(5000)},
		MinRating:       3.8,
		SellerCount:     IntRange{Min: Int(2)},
		SellerTimeframe: Timeframe30,
		MonthlySold:     IntRange{Min: Int(100)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sel map[string]any
	if err := json.Unmarshal([]byte(params.Get("selection")), &sel); err != nil {
		t.Fatalf("selection is not JSON: %v", err)
	}
	want := map[string]float64{
		"rootCategory":        172282,
		"avg90_NEW_gte":       1000,
		"current_SALES_lte":   5000,
		"current_RATING_gte":  38,
		"avg30_COUNT_NEW_gte": 2,
		"monthlySold_gte":     100,
		"perPage":             50,
	}
	for k, v := range want {
		if got, ok := sel[k].(float64); !ok || got != v {
			t.Errorf("%s = %v, want %v", k, sel[k], v)
		}
	}

	if _, err := NormalizeFinder(FinderRequest{Domain: DomainUS, PerPage: 10}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("perPage below 50 should fail, got %v", err)
	}
}

func TestNormalizeBestSellersAndCategory(t *testing.T) {
	params, err := NormalizeBestSellers(BestSellersRequest{Domain: DomainUS, Category: 281052, Range: Timeframe30})
	if err != nil || params.Get("range") != "30" || params.Get("category") != "281052" {
		t.Fatalf("best sellers params = %v, %v", params, err)
	}
	if _, err := NormalizeBestSellers(BestSellersRequest{Domain: DomainUS, Category: 1, Range: Timeframe365}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("365-day range should fail, got %v", err)
	}

	params, err = NormalizeCategory(CategoryRequest{Domain: DomainUS, Categories: []int64{1, 2}, Parents: true})
	if err != nil || params.Get("category") != "1,2" || params.Get("parents") != "1" {
		t.Fatalf("category params = %v, %v", params, err)
	}
}

func TestNormalizeSeller(t *testing.T) {
	q, err := NormalizeSeller(SellerRequest{Domain: DomainUS, SellerIDs: []string{"a2l77ee7u53nwq"}, Storefront: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.IDs[0] != "A2L77EE7U53NWQ" || q.Params.Get("storefront") != "1" {
		t.Fatalf("seller query = %+v", q)
	}
	if SellerCost(q.Params, 2) != 20 {
		t.Errorf("storefront cost = %d", SellerCost(q.Params, 2))
	}
}

func TestSelectionValidation(t *testing.T) {
	if err := (InventoryRequest{Selection: Selection{Domain: DomainUS}}).Validate(); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty selection should fail, got %v", err)
	}
	if err := (CategoryAnalysisRequest{Selection: Selection{Domain: DomainUS, Category: 5, SampleSize: 501}}).Validate(); !errors.Is(err, model.ErrValidation) {
		t.Errorf("oversized sample should fail, got %v", err)
	}
	if got := (Selection{}).Sample(); got != 50 {
		t.Errorf("default sample = %d", got)
	}
}
