package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"keepa-tools/internal/model"
)

// MaxChunkSize is the provider's per-call identifier limit.
const MaxChunkSize = 100

// Options tune chunked dispatch.
type Options struct {
	ChunkSize int
	// Concurrency bounds the chunks dispatched at once. Calls still pass
	// through the governor one at a time.
	Concurrency int
	// TimeoutRetries is how often a timed-out chunk is re-issued.
	TimeoutRetries int
}

// Fetch retrieves the entities for one chunk of identifiers.
type Fetch[T any] func(ctx context.Context, ids []string) ([]T, error)

// KeyFunc returns the identifier an entity answers to.
type KeyFunc[T any] func(T) string

// Result is a merged batch in caller order.
type Result[T any] struct {
	Items []T `json:"items"`
	// NotFound lists identifiers the provider did not return, in first-seen order.
	NotFound []string `json:"not_found,omitempty"`
}

// ChunkFailure describes one chunk that could not be fetched.
type ChunkFailure struct {
	Index int
	IDs   []string
	Err   error
}

// PartialResultError carries the chunks that succeeded alongside those that failed.
type PartialResultError[T any] struct {
	Result   Result[T]
	Failures []ChunkFailure
}

func (e *PartialResultError[T]) Error() string {
	idx := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		idx[i] = fmt.Sprintf("%d", f.Index)
	}
	return fmt.Sprintf("partial result: chunks [%s] failed: %v", strings.Join(idx, ","), e.Failures[0].Err)
}

func (e *PartialResultError[T]) Is(target error) bool { return target == model.ErrPartialResult }

// FailedChunks lists the zero-based indices of failed chunks.
func (e *PartialResultError[T]) FailedChunks() []int {
	out := make([]int, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Index
	}
	return out
}

// FailedIDs lists every identifier belonging to a failed chunk.
func (e *PartialResultError[T]) FailedIDs() []string {
	var out []string
	for _, f := range e.Failures {
		out = append(out, f.IDs...)
	}
	return out
}

// Requester splits identifier lists into provider-sized chunks.
type Requester struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Requester.
func New(opts Options, logger zerolog.Logger) *Requester {
	if opts.ChunkSize <= 0 || opts.ChunkSize > MaxChunkSize {
		opts.ChunkSize = MaxChunkSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.TimeoutRetries < 0 {
		opts.TimeoutRetries = 0
	}
	return &Requester{opts: opts, logger: logger.With().Str("component", "batch").Logger()}
}

// Split cuts ids into consecutive chunks of at most size, preserving order.
func Split(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Run fetches ids chunk by chunk and merges the entities back into input order.
// Timeouts and quota failures of single chunks yield a *PartialResultError when
// other chunks succeeded; validation and decode failures abort the run.
func Run[T any](ctx context.Context, r *Requester, ids []string, key KeyFunc[T], fetch Fetch[T]) (Result[T], error) {
	chunks := Split(ids, r.opts.ChunkSize)
	fetched := make([][]T, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			items, err := fetchChunk(gctx, r, i, chunk, fetch)
			if err != nil {
				if aborts(err) {
					return err
				}
				errs[i] = err
				return nil
			}
			fetched[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result[T]{}, err
	}

	var result Result[T]
	var failures []ChunkFailure
	missing := map[string]bool{}
	for i, chunk := range chunks {
		if errs[i] != nil {
			failures = append(failures, ChunkFailure{Index: i, IDs: chunk, Err: errs[i]})
			continue
		}
		items, notFound := merge(chunk, fetched[i], key)
		result.Items = append(result.Items, items...)
		for _, id := range notFound {
			if !missing[id] {
				missing[id] = true
				result.NotFound = append(result.NotFound, id)
			}
		}
	}

	switch {
	case len(failures) == 0:
		return result, nil
	case len(failures) == len(chunks):
		return Result[T]{}, failures[0].Err
	default:
		r.logger.Warn().
			Int("failed_chunks", len(failures)).
			Int("total_chunks", len(chunks)).
			Msg("batch completed partially")
		return result, &PartialResultError[T]{Result: result, Failures: failures}
	}
}

func fetchChunk[T any](ctx context.Context, r *Requester, index int, ids []string, fetch Fetch[T]) ([]T, error) {
	var err error
	for attempt := 0; attempt <= r.opts.TimeoutRetries; attempt++ {
		var items []T
		items, err = fetch(ctx, ids)
		if err == nil {
			r.logger.Debug().Int("chunk", index).Int("ids", len(ids)).Int("items", len(items)).Msg("chunk fetched")
			return items, nil
		}
		if !model.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		r.logger.Warn().Err(err).Int("chunk", index).Int("attempt", attempt+1).Msg("chunk timed out, retrying")
	}
	return nil, fmt.Errorf("chunk %d: %w", index, err)
}

func aborts(err error) bool {
	return errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrDecode) ||
		errors.Is(err, context.Canceled)
}

// merge orders one chunk's entities by the chunk's identifiers. An identifier
// requested twice yields two entries only if the provider returned two.
func merge[T any](ids []string, items []T, key KeyFunc[T]) ([]T, []string) {
	byID := make(map[string][]T, len(items))
	for _, item := range items {
		k := strings.ToUpper(key(item))
		byID[k] = append(byID[k], item)
	}

	out := make([]T, 0, len(items))
	var notFound []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		queue := byID[id]
		if len(queue) == 0 {
			if !seen[id] {
				notFound = append(notFound, id)
			}
			continue
		}
		seen[id] = true
		out = append(out, queue[0])
		byID[id] = queue[1:]
	}
	return out, notFound
}
