package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToInterval: true}, zerolog.Nop())

	now := time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)
	next := s.nextTick(now)
	want := time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("对齐触发时间应为 %s, 实际 %s", want, next)
	}

	// 正好落在边界时应推进一个完整周期
	next = s.nextTick(want)
	if !next.Equal(want.Add(time.Hour)) {
		t.Fatalf("边界触发时间应为 %s, 实际 %s", want.Add(time.Hour), next)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())

	now := time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)
	next := s.nextTick(now)
	if !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("非对齐触发时间应为 now+interval, 实际 %s", next)
	}
}

func TestSchedulerRequiresInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("非正周期应 panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}

func TestSchedulerRunCancels(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ticks := make(chan time.Time, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, func(ctx context.Context, tick time.Time) error {
			select {
			case ticks <- tick:
			default:
			}
			return nil
		})
	}()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("调度器未在期限内触发")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("取消后应返回 context.Canceled: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("调度器未在取消后退出")
	}
}
