package kafka

import (
	"context"
	"errors"
	"postcraft-go/pkg/events"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type flakyProcessor struct {
	failures int
	calls    int
}

func (p *flakyProcessor) Process(ctx context.Context, event events.Event) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("inbox unavailable")
	}
	return nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRetryReprocessesSameEvent(t *testing.T) {
	mr, rdb := newRedis(t)
	p := &flakyProcessor{failures: 2}
	event := events.Event{ID: "evt-1", Type: events.ContentGenerated, UserID: 1}

	if err := processWithRetry(context.Background(), rdb, p, event, time.Millisecond); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts on the same event, got %d", p.calls)
	}
	if mr.Exists("kafka:attempts:evt-1") {
		t.Errorf("attempt counter should be cleared after success")
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	_, rdb := newRedis(t)
	p := &flakyProcessor{failures: 100}
	event := events.Event{ID: "evt-2", Type: events.QuotaExhausted, UserID: 1}

	if err := processWithRetry(context.Background(), rdb, p, event, time.Millisecond); err == nil {
		t.Fatalf("expected failure after retries")
	}
	if p.calls != maxProcessAttempts {
		t.Errorf("expected %d attempts, got %d", maxProcessAttempts, p.calls)
	}
}

func TestRetryResumesCountAfterRestart(t *testing.T) {
	mr, rdb := newRedis(t)
	if err := mr.Set("kafka:attempts:evt-3", "2"); err != nil {
		t.Fatal(err)
	}
	p := &flakyProcessor{failures: 100}
	event := events.Event{ID: "evt-3", Type: events.ContentAdapted, UserID: 1}

	_ = processWithRetry(context.Background(), rdb, p, event, time.Millisecond)
	if p.calls != 1 {
		t.Errorf("two earlier failures should leave one attempt, got %d", p.calls)
	}
}

func TestRetryFallsBackToLocalCountWithoutRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	p := &flakyProcessor{failures: 100}

	_ = processWithRetry(context.Background(), rdb, p, events.Event{ID: "evt-4"}, time.Millisecond)
	if p.calls != maxProcessAttempts {
		t.Errorf("expected %d attempts with local counting, got %d", maxProcessAttempts, p.calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &flakyProcessor{failures: 100}

	err := processWithRetry(ctx, rdb, p, events.Event{ID: "evt-5"}, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}
