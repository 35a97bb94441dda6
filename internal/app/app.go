package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"keepa-tools/internal/alerting"
	"keepa-tools/internal/batch"
	"keepa-tools/internal/config"
	"keepa-tools/internal/governor"
	"keepa-tools/internal/keepa"
	"keepa-tools/internal/model"
	"keepa-tools/internal/query"
	"keepa-tools/internal/scheduler"
	"keepa-tools/internal/service"
	"keepa-tools/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
// The governor and provider client are built once here and passed down.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Governor *governor.Governor
	Client   *keepa.Client
	Tools    *service.Service
	Out      io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	k := cfg.Keepa
	gov := governor.New(governor.Options{
		RateLimitDelay: k.RateLimitDelay,
		Timeout:        k.Timeout,
		MaxRetries:     k.MaxQuotaRetries,
		MaxWait:        k.MaxWait,
	}, logger)
	batcher := batch.New(batch.Options{
		ChunkSize:      k.ChunkSize,
		Concurrency:    k.Concurrency,
		TimeoutRetries: k.TimeoutRetries,
	}, logger)

	userAgent := k.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	client := keepa.NewClient(keepa.Options{
		BaseURL:   k.BaseURL,
		APIKey:    k.APIKey,
		UserAgent: userAgent,
	}, gov, batcher, logger)

	return &App{
		Config:   cfg,
		Logger:   logger.With().Str("component", "app").Logger(),
		Governor: gov,
		Client:   client,
		Tools:    service.New(client, service.Options{TrendThresholdPct: k.TrendThresholdPct}, logger),
		Out:      os.Stdout,
	}
}

// Invoke runs one tool and writes its result to Out as JSON. A partial
// batch result is still written; the failure is logged.
func (a *App) Invoke(ctx context.Context, tool string, fn func(ctx context.Context, tools *service.Service) (any, error)) error {
	if err := a.Config.RequireAPIKey(); err != nil {
		return err
	}
	result, err := fn(ctx, a.Tools)
	if err != nil {
		var partial interface{ FailedChunks() []int }
		if !errors.As(err, &partial) {
			return fmt.Errorf("%s: %w", tool, err)
		}
		a.Logger.Warn().Err(err).Str("tool", tool).Ints("failed_chunks", partial.FailedChunks()).Msg("partial result")
	}
	budget := a.Governor.Budget()
	a.Logger.Debug().Str("tool", tool).Int("tokens_left", budget.TokensLeft).Msg("tool completed")
	return a.writeJSON(result)
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) watchOptions() (service.WatchOptions, error) {
	w := a.Config.Watch
	domain, err := query.ParseDomain(w.Domain)
	if err != nil {
		return service.WatchOptions{}, err
	}
	series, err := model.ParseSeriesType(w.Series)
	if err != nil {
		return service.WatchOptions{}, err
	}
	asins := make([]string, 0, len(w.ASINs))
	for _, id := range w.ASINs {
		if id = strings.TrimSpace(id); id != "" {
			asins = append(asins, id)
		}
	}
	return service.WatchOptions{
		Domain:           domain,
		ASINs:            asins,
		Series:           series,
		DropThresholdPct: w.DropThresholdPct,
		Cooldown:         w.Cooldown,
		Channels:         a.Config.Alerting.Channels,
	}, nil
}

// Watch executes the long-running price watcher.
func (a *App) Watch(ctx context.Context) error {
	if err := a.Config.RequireAPIKey(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := a.watchOptions()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		AlignToStart:   a.Config.Watch.AlignToBucket,
		StartupDelay:   a.Config.Watch.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no alert channel configured; drops will only be logged")
	}

	watcher := service.NewWatcher(sched, a.Client, notifier, opts, a.Logger)

	a.Logger.Info().Int("asins", len(opts.ASINs)).Str("series", opts.Series.String()).Msg("starting price watcher")
	err = watcher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("price watcher stopped")
	return nil
}

// ExportOptions hold parameters for exporting a product history.
type ExportOptions struct {
	Request   query.HistoryRequest
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the tabular history view.
type ShowOptions struct {
	Request query.HistoryRequest
}
