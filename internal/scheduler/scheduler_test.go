package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 5 * time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 3, 1, 12, 7, 30, 0, time.UTC)

	if got, want := s.nextTick(now), time.Date(2024, 3, 1, 12, 10, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("nextTick = %s, want %s", got, want)
	}
	onBoundary := time.Date(2024, 3, 1, 12, 10, 0, 0, time.UTC)
	if got := s.nextTick(onBoundary); !got.Equal(onBoundary.Add(5 * time.Minute)) {
		t.Errorf("nextTick on boundary = %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)) {
		t.Errorf("bucketStart = %s", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Minute}, zerolog.Nop())
	now := time.Date(2024, 3, 1, 12, 7, 30, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("nextTick = %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(now) {
		t.Errorf("bucketStart = %s", got)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond, RunImmediately: true}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := 0
	err := s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		ticks++
		if ticks == 3 {
			cancel()
		}
		return errors.New("tick errors are logged, not fatal")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run 应在取消后返回 context.Canceled, got %v", err)
	}
	if ticks != 3 {
		t.Errorf("ticks = %d, want 3", ticks)
	}
}

func TestNewRejectsZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("零间隔应 panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
