package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"keepa-tools/internal/alerting"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/scheduler"
	"keepa-tools/internal/series"
	"keepa-tools/internal/stats"
)

// WatchOptions configure the price watcher.
type WatchOptions struct {
	Domain query.Domain
	ASINs  []string
	Series model.SeriesType
	// DropThresholdPct is the fall, relative to the previous tick, that triggers a notification.
	DropThresholdPct float64
	Cooldown         time.Duration
	Channels         []string
}

// Watcher polls a set of products on every scheduler tick and notifies when
// the watched series drops. Previous values live in memory only.
type Watcher struct {
	scheduler *scheduler.Scheduler
	provider  Provider
	notifier  alerting.Notifier
	opts      WatchOptions
	threshold decimal.Decimal
	logger    zerolog.Logger

	mu        sync.Mutex
	previous  map[string]model.TimeSample
	lastAlert map[string]time.Time
}

// NewWatcher constructs a Watcher. notifier may be nil, in which case drops are only logged.
func NewWatcher(sched *scheduler.Scheduler, provider Provider, notifier alerting.Notifier, opts WatchOptions, logger zerolog.Logger) *Watcher {
	return &Watcher{
		scheduler: sched,
		provider:  provider,
		notifier:  notifier,
		opts:      opts,
		threshold: decimal.NewFromFloat(opts.DropThresholdPct),
		logger:    logger.With().Str("component", "watcher").Logger(),
		previous:  make(map[string]model.TimeSample),
		lastAlert: make(map[string]time.Time),
	}
}

// Run begins the aligned polling loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if len(w.opts.ASINs) == 0 {
		return &model.ValidationError{Field: "watch.asins", Reason: "nothing to watch"}
	}
	return w.scheduler.Run(ctx, w.ProcessBucket)
}

// ProcessBucket 执行单个时间桶的轮询逻辑。
func (w *Watcher) ProcessBucket(ctx context.Context, bucket time.Time) error {
	res, err := w.provider.Products(ctx, query.ProductRequest{Domain: w.opts.Domain, ASINs: w.opts.ASINs})
	if err != nil && res.Items == nil {
		return fmt.Errorf("fetch watched products: %w", err)
	}
	if err != nil {
		w.logger.Warn().Err(err).Time("bucket", bucket).Msg("watch tick fetched a partial product set")
	}
	for _, id := range res.NotFound {
		w.logger.Warn().Str("asin", id).Msg("watched product not found")
	}

	for _, p := range res.Items {
		raw, ok := p.Current(w.opts.Series)
		if !ok {
			continue
		}
		value, ok := series.Value(w.opts.Series, raw)
		if !ok {
			continue
		}
		current := model.TimeSample{Time: bucket, Value: value}

		prev, seen := w.swap(p.ASIN, current)
		if !seen {
			w.logger.Debug().Str("asin", p.ASIN).Float64("value", value).Msg("baseline recorded")
			continue
		}

		trend := stats.Trend([]model.TimeSample{prev, current}, w.opts.DropThresholdPct)
		if trend == nil || trend.Direction != model.TrendDown {
			continue
		}
		w.logger.Info().
			Time("bucket", bucket).
			Str("asin", p.ASIN).
			Float64("change_pct", trend.ChangePercent).
			Msg("price drop detected")

		if !w.due(p.ASIN, bucket) {
			w.logger.Debug().Str("asin", p.ASIN).Msg("drop within cooldown, not notifying")
			continue
		}
		if w.notifier == nil {
			continue
		}
		note := alerting.Notification{
			Bucket:       bucket,
			ASIN:         p.ASIN,
			Title:        p.Title,
			Series:       w.opts.Series.String(),
			Previous:     w.display(prev.Value),
			Current:      w.display(current.Value),
			ChangePct:    decimal.NewFromFloat(trend.ChangePercent),
			ThresholdPct: w.threshold,
			Direction:    string(trend.Direction),
			Channels:     w.opts.Channels,
		}
		note.Domain, _ = w.opts.Domain.Code()
		if err := w.notifier.Notify(ctx, note); err != nil {
			w.logger.Error().Err(err).Str("asin", p.ASIN).Msg("failed to dispatch alert")
			continue
		}
		w.markAlerted(p.ASIN, bucket)
	}
	return nil
}

func (w *Watcher) swap(asin string, current model.TimeSample) (model.TimeSample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := w.previous[asin]
	w.previous[asin] = current
	return prev, ok
}

func (w *Watcher) due(asin string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastAlert[asin]
	return !ok || now.Sub(last) >= w.opts.Cooldown
}

func (w *Watcher) markAlerted(asin string, at time.Time) {
	w.mu.Lock()
	w.lastAlert[asin] = at
	w.mu.Unlock()
}

func (w *Watcher) display(v float64) decimal.Decimal {
	if w.opts.Series.Kind() == model.KindPrice {
		return stats.Major(int(v))
	}
	return decimal.NewFromFloat(v)
}
