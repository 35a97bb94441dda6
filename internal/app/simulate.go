package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"keepa-tools/internal/batch"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/service"
)

// SimulateAlert 通过给定的前后价格模拟一次降价告警流程。
func (a *App) SimulateAlert(ctx context.Context, asin string, previous, current decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	opts, err := a.watchOptions()
	if err != nil {
		return err
	}
	asin = strings.ToUpper(strings.TrimSpace(asin))
	opts.ASINs = []string{asin}

	provider := &staticProvider{asin: asin, series: opts.Series}
	watcher := service.NewWatcher(nil, provider, notifier, opts, a.Logger)

	bucket := time.Now().UTC().Truncate(a.Config.Watch.Interval)
	for i, v := range []decimal.Decimal{previous, current} {
		wire, err := wireValue(opts.Series, v)
		if err != nil {
			return err
		}
		provider.value = wire
		if err := watcher.ProcessBucket(ctx, bucket.Add(time.Duration(i)*a.Config.Watch.Interval)); err != nil {
			return err
		}
	}
	return nil
}

// wireValue converts a major-unit price, a star rating, or a plain rank or
// count to the provider encoding.
func wireValue(t model.SeriesType, d decimal.Decimal) (int, error) {
	switch t.Kind() {
	case model.KindPrice:
		d = d.Shift(2)
	case model.KindRating:
		return query.RatingToWire(d.InexactFloat64())
	}
	return int(d.Round(0).IntPart()), nil
}

// staticProvider serves one product whose watched series has a fixed current value.
type staticProvider struct {
	service.Provider

	asin   string
	series model.SeriesType
	value  int
}

func (s *staticProvider) Products(ctx context.Context, req query.ProductRequest) (batch.Result[model.Product], error) {
	current := make(model.Values, int(s.series)+1)
	for i := range current {
		current[i] = model.NoData
	}
	current[s.series] = s.value
	p := model.Product{ASIN: s.asin, Title: "simulated", Statistics: &model.Statistics{Current: current}}
	return batch.Result[model.Product]{Items: []model.Product{p}}, nil
}
