package governor

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"keepa-tools/internal/model"
)

// StateKind is the observable governor state.
type StateKind int

const (
	Available StateKind = iota
	Throttled
)

func (k StateKind) String() string {
	if k == Throttled {
		return "throttled"
	}
	return "available"
}

// State is Available, or Throttled until a given instant.
type State struct {
	Kind  StateKind
	Until time.Time
}

// Report is what a provider call tells the governor about the budget.
type Report struct {
	// Budget is nil when the reply carried no budget fields.
	Budget *model.TokenBudget
	// Exhausted marks a reply refused for lack of tokens.
	Exhausted bool
}

// Call issues one provider request under ctx.
type Call func(ctx context.Context) (Report, error)

// Options tune governor behaviour.
type Options struct {
	// RateLimitDelay is the minimum spacing between consecutive calls.
	RateLimitDelay time.Duration
	// Timeout bounds each individual call.
	Timeout time.Duration
	// MaxRetries bounds the number of quota waits per call.
	MaxRetries int
	// MaxWait caps a single quota wait; zero means uncapped.
	MaxWait time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		RateLimitDelay: time.Second,
		Timeout:        30 * time.Second,
		MaxRetries:     5,
		MaxWait:        5 * time.Minute,
	}
}

const fallbackWait = time.Second

// Governor serialises provider calls against the provider-reported token budget.
type Governor struct {
	opts   Options
	logger zerolog.Logger

	// gate admits one call at a time past the quota check.
	gate     sync.Mutex
	lastCall time.Time

	mu     sync.RWMutex
	budget model.TokenBudget
	state  State
}

// New constructs a Governor.
func New(opts Options, logger zerolog.Logger) *Governor {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimitDelay < 0 {
		opts.RateLimitDelay = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Governor{
		opts:   opts,
		logger: logger.With().Str("component", "governor").Logger(),
	}
}

// Do runs call once the budget covers cost, pacing it after the previous call.
// Calls refused for quota are retried after waiting for the refill; timeouts are not.
func (g *Governor) Do(ctx context.Context, op string, cost int, call Call) error {
	if cost < 1 {
		cost = 1
	}

	g.gate.Lock()
	defer g.gate.Unlock()

	waits := 0
	refused, reissue := false, false
	for {
		budget := g.Budget()
		var wait time.Duration
		var short bool
		if !reissue {
			wait, short = WaitFor(budget, cost)
		}
		reissue = false
		if refused && !short {
			// The provider refused despite a sufficient-looking or unknown budget.
			wait, short = budget.RefillIn, true
		}
		if short {
			if waits >= g.opts.MaxRetries {
				return &model.QuotaExceededError{Budget: budget, Required: cost, Waits: waits}
			}
			waits++
			wait = g.clamp(wait)
			until := g.opts.Now().Add(wait)
			g.setState(State{Kind: Throttled, Until: until})
			g.logger.Info().
				Str("op", op).
				Int("cost", cost).
				Int("tokens_left", budget.TokensLeft).
				Dur("wait", wait).
				Int("attempt", waits).
				Msg("token budget insufficient, waiting for refill")

			if err := g.opts.Sleep(ctx, wait); err != nil {
				g.setState(State{Kind: Available})
				return err
			}
			g.projectRefill(wait)
			g.setState(State{Kind: Available})
			// A refused call is issued again once its wait is over.
			reissue, refused = refused, false
			continue
		}

		if err := g.pace(ctx); err != nil {
			return err
		}

		report, err := g.issue(ctx, op, call)
		if report.Budget != nil {
			g.Observe(*report.Budget)
		}
		if err != nil {
			return err
		}
		if !report.Exhausted {
			return nil
		}
		refused = true
		g.logger.Debug().Str("op", op).Msg("provider refused call for quota")
	}
}

func (g *Governor) issue(ctx context.Context, op string, call Call) (Report, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	g.lastCall = g.opts.Now()
	report, err := call(callCtx)
	if err == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	if isTimeout(err) {
		return report, &model.TimeoutError{Op: op, Timeout: g.opts.Timeout, Err: err}
	}
	return report, err
}

func (g *Governor) pace(ctx context.Context) error {
	if g.lastCall.IsZero() || g.opts.RateLimitDelay == 0 {
		return nil
	}
	since := g.opts.Now().Sub(g.lastCall)
	if since >= g.opts.RateLimitDelay {
		return nil
	}
	return g.opts.Sleep(ctx, g.opts.RateLimitDelay-since)
}

func (g *Governor) clamp(wait time.Duration) time.Duration {
	if wait < g.opts.RateLimitDelay {
		wait = g.opts.RateLimitDelay
	}
	if wait <= 0 {
		wait = fallbackWait
	}
	if g.opts.MaxWait > 0 && wait > g.opts.MaxWait {
		wait = g.opts.MaxWait
	}
	return wait
}

// projectRefill advances the budget by the refills that fell due during elapsed.
// An unknown budget, or one without a refill rate, is left as reported.
func (g *Governor) projectRefill(elapsed time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := &g.budget
	if !b.Known() || b.RefillRate <= 0 {
		return
	}
	if elapsed < b.RefillIn {
		b.RefillIn -= elapsed
		return
	}
	over := elapsed - b.RefillIn
	refills := 1 + int(over/time.Minute)
	b.TokensLeft += refills * b.RefillRate
	b.RefillIn = time.Minute - over%time.Minute
	b.ObservedAt = g.opts.Now()
}

// WaitFor returns how long to wait before cost tokens are available.
// ok is false when the budget already covers cost or is not yet known.
func WaitFor(b model.TokenBudget, cost int) (wait time.Duration, ok bool) {
	if !b.Known() || b.TokensLeft >= cost {
		return 0, false
	}
	wait = b.RefillIn
	if b.RefillRate > 0 {
		deficit := cost - b.TokensLeft
		refills := (deficit + b.RefillRate - 1) / b.RefillRate
		wait += time.Duration(refills-1) * time.Minute
	}
	return wait, true
}

// Observe records a budget reported by the provider.
func (g *Governor) Observe(b model.TokenBudget) {
	if b.ObservedAt.IsZero() {
		b.ObservedAt = g.opts.Now()
	}
	g.mu.Lock()
	g.budget = b
	g.mu.Unlock()
}

// Budget returns the last known budget.
func (g *Governor) Budget() model.TokenBudget {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.budget
}

// State returns the current governor state.
func (g *Governor) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Governor) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
