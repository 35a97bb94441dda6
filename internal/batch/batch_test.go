package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"keepa-tools/internal/governor"
	"keepa-tools/internal/model"
)

type item struct {
	ID    string
	Chunk int
}

func itemKey(i item) string { return i.ID }

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("B%09d", i)
	}
	return ids
}

// echo returns one item per requested id, in reverse order to exercise merging.
func echo(calls *int32) Fetch[item] {
	return func(ctx context.Context, ids []string) ([]item, error) {
		n := atomic.AddInt32(calls, 1)
		out := make([]item, 0, len(ids))
		for i := len(ids) - 1; i >= 0; i-- {
			out = append(out, item{ID: ids[i], Chunk: int(n)})
		}
		return out, nil
	}
}

func assertOrder(t *testing.T, got []item, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("item %d = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestSplit(t *testing.T) {
	ids := makeIDs(250)
	chunks := Split(ids, 100)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	sizes := []int{100, 100, 50}
	for i, c := range chunks {
		if len(c) != sizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, len(c), sizes[i])
		}
	}
	if chunks[2][0] != ids[200] {
		t.Errorf("chunk 2 starts at %s", chunks[2][0])
	}
	if len(Split(nil, 100)) != 0 {
		t.Error("empty input should yield no chunks")
	}
}

func TestRunPreservesOrder(t *testing.T) {
	var calls int32
	r := New(Options{ChunkSize: 100, Concurrency: 3}, zerolog.Nop())
	ids := makeIDs(250)

	res, err := Run(context.Background(), r, ids, itemKey, echo(&calls))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	assertOrder(t, res.Items, ids)
	if len(res.NotFound) != 0 {
		t.Errorf("not found = %v", res.NotFound)
	}
}

func TestRunReportsNotFound(t *testing.T) {
	r := New(Options{ChunkSize: 2}, zerolog.Nop())
	ids := []string{"A000000001", "A000000002", "A000000003", "A000000002"}
	fetch := func(ctx context.Context, chunk []string) ([]item, error) {
		var out []item
		for _, id := range chunk {
			if id != "A000000002" {
				out = append(out, item{ID: id})
			}
		}
		return out, nil
	}

	res, err := Run(context.Background(), r, ids, itemKey, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOrder(t, res.Items, []string{"A000000001", "A000000003"})
	if len(res.NotFound) != 1 || res.NotFound[0] != "A000000002" {
		t.Errorf("not found = %v, want [A000000002]", res.NotFound)
	}
}

func TestRunDuplicates(t *testing.T) {
	r := New(Options{}, zerolog.Nop())
	ids := []string{"A000000001", "A000000002", "A000000001"}

	t.Run("provider returns duplicates", func(t *testing.T) {
		var calls int32
		res, err := Run(context.Background(), r, ids, itemKey, echo(&calls))
		if err != nil {
			t.Fatal(err)
		}
		assertOrder(t, res.Items, ids)
	})

	t.Run("provider collapses duplicates", func(t *testing.T) {
		fetch := func(ctx context.Context, chunk []string) ([]item, error) {
			return []item{{ID: "A000000002"}, {ID: "A000000001"}}, nil
		}
		res, err := Run(context.Background(), r, ids, itemKey, fetch)
		if err != nil {
			t.Fatal(err)
		}
		assertOrder(t, res.Items, []string{"A000000001", "A000000002"})
		if len(res.NotFound) != 0 {
			t.Errorf("collapsed duplicate must not be reported missing: %v", res.NotFound)
		}
	})
}

func TestRunPartialResult(t *testing.T) {
	r := New(Options{ChunkSize: 100, Concurrency: 3, TimeoutRetries: 1}, zerolog.Nop())
	ids := makeIDs(250)

	var attempts int32
	fetch := func(ctx context.Context, chunk []string) ([]item, error) {
		if chunk[0] == ids[100] {
			atomic.AddInt32(&attempts, 1)
			return nil, &model.TimeoutError{Op: "product", Timeout: time.Second, Err: context.DeadlineExceeded}
		}
		out := make([]item, len(chunk))
		for i, id := range chunk {
			out[i] = item{ID: id}
		}
		return out, nil
	}

	res, err := Run(context.Background(), r, ids, itemKey, fetch)
	if !errors.Is(err, model.ErrPartialResult) {
		t.Fatalf("want partial result, got %v", err)
	}
	var partial *PartialResultError[item]
	if !errors.As(err, &partial) {
		t.Fatalf("want *PartialResultError, got %T", err)
	}
	if attempts != 2 {
		t.Errorf("timed-out chunk attempted %d times, want 2", attempts)
	}

	want := append(append([]string{}, ids[:100]...), ids[200:]...)
	assertOrder(t, partial.Result.Items, want)
	assertOrder(t, res.Items, want)

	if got := partial.FailedChunks(); len(got) != 1 || got[0] != 1 {
		t.Errorf("failed chunks = %v, want [1]", got)
	}
	if got := partial.FailedIDs(); len(got) != 100 || got[0] != ids[100] {
		t.Errorf("failed ids = %d starting %v", len(got), got[:1])
	}
	if !errors.Is(partial.Failures[0].Err, model.ErrTimeout) {
		t.Errorf("failure cause = %v", partial.Failures[0].Err)
	}
}

func TestRunAllChunksFail(t *testing.T) {
	r := New(Options{}, zerolog.Nop())
	fetch := func(ctx context.Context, chunk []string) ([]item, error) {
		return nil, &model.QuotaExceededError{Required: 1}
	}
	_, err := Run(context.Background(), r, makeIDs(5), itemKey, fetch)
	if !errors.Is(err, model.ErrQuotaExceeded) {
		t.Fatalf("want quota error, got %v", err)
	}
	if errors.Is(err, model.ErrPartialResult) {
		t.Fatal("nothing succeeded, result must not be partial")
	}
}

func TestRunDecodeErrorAborts(t *testing.T) {
	r := New(Options{ChunkSize: 10, Concurrency: 1}, zerolog.Nop())
	var calls int32
	fetch := func(ctx context.Context, chunk []string) ([]item, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, &model.DecodeError{Field: "stats.minInInterval[0]", Reason: "not a pair"}
		}
		return []item{{ID: chunk[0]}}, nil
	}
	_, err := Run(context.Background(), r, makeIDs(30), itemKey, fetch)
	if !errors.Is(err, model.ErrDecode) {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestRunThroughGovernor(t *testing.T) {
	g := governor.New(governor.Options{}, zerolog.Nop())
	r := New(Options{ChunkSize: 10, Concurrency: 4}, zerolog.Nop())
	ids := makeIDs(40)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	fetch := func(ctx context.Context, chunk []string) ([]item, error) {
		var out []item
		err := g.Do(ctx, "product", len(chunk), func(ctx context.Context) (governor.Report, error) {
			mu.Lock()
			inFlight++
			maxInFlight = max(maxInFlight, inFlight)
			mu.Unlock()

			time.Sleep(time.Millisecond)
			for _, id := range chunk {
				out = append(out, item{ID: id})
			}

			mu.Lock()
			inFlight--
			mu.Unlock()
			return governor.Report{Budget: &model.TokenBudget{TokensLeft: 1000, RefillRate: 20, RefillIn: time.Minute}}, nil
		})
		return out, err
	}

	res, err := Run(context.Background(), r, ids, itemKey, fetch)
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, res.Items, ids)
	if maxInFlight != 1 {
		t.Fatalf("governor admitted %d concurrent calls", maxInFlight)
	}
}
