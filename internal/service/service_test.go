package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"keepa-tools/internal/alerting"
	"keepa-tools/internal/batch"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/series"
)

type fakeProvider struct {
	mu         sync.Mutex
	products   map[string]model.Product
	productErr error
	finder     model.FinderResult
	categories []model.Category
	catErr     error

	productReqs []query.ProductRequest
	finderReqs  []query.FinderRequest
}

func (f *fakeProvider) Products(_ context.Context, req query.ProductRequest) (batch.Result[model.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productReqs = append(f.productReqs, req)
	var res batch.Result[model.Product]
	for _, id := range req.ASINs {
		id = strings.ToUpper(id)
		if p, ok := f.products[id]; ok {
			res.Items = append(res.Items, p)
		} else {
			res.NotFound = append(res.NotFound, id)
		}
	}
	if f.productErr != nil {
		return res, f.productErr
	}
	return res, nil
}

func (f *fakeProvider) Sellers(context.Context, query.SellerRequest) (batch.Result[model.Seller], error) {
	return batch.Result[model.Seller]{}, nil
}

func (f *fakeProvider) Deals(context.Context, query.DealRequest) ([]model.Deal, error) {
	return nil, nil
}

func (f *fakeProvider) BestSellers(context.Context, query.BestSellersRequest) (model.BestSellers, error) {
	return model.BestSellers{}, nil
}

func (f *fakeProvider) Finder(_ context.Context, req query.FinderRequest) (model.FinderResult, error) {
	f.finderReqs = append(f.finderReqs, req)
	return f.finder, nil
}

func (f *fakeProvider) Categories(context.Context, query.CategoryRequest) ([]model.Category, error) {
	return f.categories, f.catErr
}

func (f *fakeProvider) TokenStatus(context.Context) (model.TokenBudget, error) {
	return model.TokenBudget{TokensLeft: 10}, nil
}

func values(set map[model.SeriesType]int) model.Values {
	v := make(model.Values, int(model.SeriesCountReviews)+1)
	for i := range v {
		v[i] = -1
	}
	for t, x := range set {
		v[t] = x
	}
	return v
}

func product(asin string, price int) model.Product {
	return model.Product{
		ASIN:  asin,
		Title: "Product " + asin,
		Brand: "Acme",
		Statistics: &model.Statistics{
			Current: values(map[model.SeriesType]int{model.SeriesAmazon: price, model.SeriesNew: price}),
			BuyBox:  model.BuyBox{Price: -1, Winner: model.WinnerNone},
		},
	}
}

var fixedNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestService(p Provider) *Service {
	return New(p, Options{Now: func() time.Time { return fixedNow }}, zerolog.Nop())
}

func TestProductLookup(t *testing.T) {
	fp := &fakeProvider{products: map[string]model.Product{"B00TEST123": product("B00TEST123", 1999)}}
	svc := newTestService(fp)

	p, err := svc.ProductLookup(context.Background(), query.ProductRequest{Domain: query.DomainUS, ASINs: []string{"B00TEST123"}})
	if err != nil || p.ASIN != "B00TEST123" {
		t.Fatalf("lookup = %+v, %v", p, err)
	}

	_, err = svc.ProductLookup(context.Background(), query.ProductRequest{Domain: query.DomainUS, ASINs: []string{"B00NOTHERE"}})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	_, err = svc.ProductLookup(context.Background(), query.ProductRequest{Domain: query.DomainUS, ASINs: []string{"A", "B"}})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestAnalyzeCategorySamplesFinder(t *testing.T) {
	fp := &fakeProvider{
		products: map[string]model.Product{
			"B00AAAAAAA": product("B00AAAAAAA", 1000),
			"B00BBBBBBB": product("B00BBBBBBB", 3000),
			"B00CCCCCCC": product("B00CCCCCCC", 5000),
		},
		finder:     model.FinderResult{ASINs: []string{"B00AAAAAAA", "B00BBBBBBB", "B00CCCCCCC"}, TotalResults: 3},
		categories: []model.Category{{ID: 281052, Name: "Electronics"}},
	}
	svc := newTestService(fp)

	a, err := svc.AnalyzeCategory(context.Background(), query.CategoryAnalysisRequest{
		Selection: query.Selection{Domain: query.DomainUS, Category: 281052, SampleSize: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.CategoryName != "Electronics" || a.ProductCount != 2 || a.PriceMin != 1000 || a.PriceMax != 3000 {
		t.Errorf("analysis = %+v", a)
	}
	if len(fp.finderReqs) != 1 || fp.finderReqs[0].RootCategory != 281052 || fp.finderReqs[0].PerPage != 50 {
		t.Errorf("finder requests = %+v", fp.finderReqs)
	}
	if req := fp.productReqs[0]; req.Stats != query.Timeframe30 || !req.Rating || len(req.ASINs) != 2 {
		t.Errorf("product request = %+v", req)
	}
}

func TestAnalyzeCategoryToleratesNameLookupFailure(t *testing.T) {
	fp := &fakeProvider{
		products: map[string]model.Product{"B00AAAAAAA": product("B00AAAAAAA", 1000)},
		catErr:   errors.New("category endpoint down"),
	}
	svc := newTestService(fp)
	a, err := svc.AnalyzeCategory(context.Background(), query.CategoryAnalysisRequest{
		Selection: query.Selection{Domain: query.DomainUS, Category: 5, ASINs: []string{"B00AAAAAAA"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.CategoryName != "" || a.ProductCount != 1 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalysisContinuesOnPartialResult(t *testing.T) {
	fp := &fakeProvider{
		products:   map[string]model.Product{"B00AAAAAAA": product("B00AAAAAAA", 1000)},
		productErr: &batch.PartialResultError[model.Product]{Failures: []batch.ChunkFailure{{Index: 1, Err: errors.New("timeout")}}},
	}
	svc := newTestService(fp)
	inv, err := svc.InventoryAnalysis(context.Background(), query.InventoryRequest{
		Selection: query.Selection{Domain: query.DomainUS, ASINs: []string{"B00AAAAAAA", "B00BBBBBBB"}},
	})
	if err != nil {
		t.Fatalf("partial result should not fail the analysis: %v", err)
	}
	if len(inv.Items) != 1 {
		t.Errorf("items = %+v", inv.Items)
	}
	if req := fp.productReqs[0]; req.Offers != 20 || !req.Stock || req.Stats != query.Timeframe90 {
		t.Errorf("product request = %+v", req)
	}
}

func TestAnalysisPropagatesHardErrors(t *testing.T) {
	fp := &fakeProvider{productErr: &model.QuotaExceededError{Required: 100}}
	svc := newTestService(fp)
	_, err := svc.SalesVelocity(context.Background(), query.VelocityRequest{
		Selection: query.Selection{Domain: query.DomainUS, ASINs: []string{"B00AAAAAAA"}},
	})
	if !errors.Is(err, model.ErrQuotaExceeded) {
		t.Fatalf("want quota error, got %v", err)
	}
}

func TestSalesVelocity(t *testing.T) {
	sold := 90
	p := product("B00AAAAAAA", 1000)
	p.MonthlySold = &sold
	fp := &fakeProvider{products: map[string]model.Product{"B00AAAAAAA": p}}
	svc := newTestService(fp)

	out, err := svc.SalesVelocity(context.Background(), query.VelocityRequest{
		Selection: query.Selection{Domain: query.DomainUS, ASINs: []string{"B00AAAAAAA"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Daily == nil || *out[0].Daily != 3 {
		t.Fatalf("velocity = %+v", out)
	}
	if req := fp.productReqs[0]; !req.History || req.Days != 30 {
		t.Errorf("product request = %+v", req)
	}
}

func TestPriceHistory(t *testing.T) {
	p := product("B00AAAAAAA", 1000)
	p.History = make([]model.RawSeries, int(model.SeriesNew)+1)
	p.History[model.SeriesNew] = model.RawSeries{
		series.ToKeepaMinutes(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)), 100,
		series.ToKeepaMinutes(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)), -1,
		series.ToKeepaMinutes(time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)), 140,
		series.ToKeepaMinutes(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)), 120,
	}
	fp := &fakeProvider{products: map[string]model.Product{"B00AAAAAAA": p}}
	svc := newTestService(fp)

	h, err := svc.PriceHistory(context.Background(), query.HistoryRequest{Domain: query.DomainUS, ASIN: "B00AAAAAAA", Series: model.SeriesNew})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Samples) != 3 {
		t.Fatalf("samples = %+v", h.Samples)
	}
	if len(h.Months) != 2 || h.Months[0].Avg != 120 || !h.Months[1].Single() {
		t.Errorf("months = %+v", h.Months)
	}
	if h.Trend == nil || h.Trend.Direction != model.TrendUp || h.Trend.ChangePercent != 20 {
		t.Errorf("trend = %+v", h.Trend)
	}

	h, err = svc.PriceHistory(context.Background(), query.HistoryRequest{Domain: query.DomainUS, ASIN: "B00AAAAAAA", Series: model.SeriesNew, Days: 35})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Samples) != 1 || h.Trend != nil {
		t.Errorf("window of 35 days should keep only February: %+v", h)
	}
}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	r.notes = append(r.notes, n)
	return nil
}

func TestWatcherNotifiesOnDropWithCooldown(t *testing.T) {
	fp := &fakeProvider{products: map[string]model.Product{"B00AAAAAAA": product("B00AAAAAAA", 2000)}}
	notifier := &recordingNotifier{}
	w := NewWatcher(nil, fp, notifier, WatchOptions{
		Domain:           query.DomainUS,
		ASINs:            []string{"B00AAAAAAA"},
		Series:           model.SeriesAmazon,
		DropThresholdPct: 10,
		Cooldown:         time.Hour,
	}, zerolog.Nop())

	ctx := context.Background()
	tick := fixedNow
	step := func(price int) {
		t.Helper()
		fp.products["B00AAAAAAA"] = product("B00AAAAAAA", price)
		if err := w.ProcessBucket(ctx, tick); err != nil {
			t.Fatal(err)
		}
		tick = tick.Add(5 * time.Minute)
	}

	step(2000) // baseline
	step(1950) // -2.5%, below threshold
	if len(notifier.notes) != 0 {
		t.Fatalf("small move should not alert: %+v", notifier.notes)
	}
	step(1500) // -23.08%
	if len(notifier.notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Previous.StringFixed(2) != "19.50" || note.Current.StringFixed(2) != "15.00" || note.Direction != "down" {
		t.Errorf("note = %+v", note)
	}
	if note.ChangePct.StringFixed(2) != "-23.08" || note.Domain != 1 {
		t.Errorf("change = %s, domain = %d", note.ChangePct.StringFixed(2), note.Domain)
	}

	step(1000) // another drop inside the cooldown
	if len(notifier.notes) != 1 {
		t.Fatalf("cooldown should suppress the second alert, notes = %d", len(notifier.notes))
	}
}

func TestWatcherRunRequiresASINs(t *testing.T) {
	w := NewWatcher(nil, &fakeProvider{}, nil, WatchOptions{}, zerolog.Nop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("missing scheduler should fail")
	}
}
