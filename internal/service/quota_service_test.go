package service

import (
	"context"
	"errors"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/events"
	"sync"
	"testing"
	"time"
)

func newTestQuotaService(t *testing.T, now time.Time) (*quotaService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewQuotaService(repository.NewRedisUsageRepository(newTestRedis(t)), pub).(*quotaService)
	svc.now = func() time.Time { return now }
	return svc, pub
}

func TestFreeTierExhausted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotaService(t, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		if _, err := svc.IncrementUsage(ctx, 1, model.FeatureContentGeneration, model.TierFree, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	check, err := svc.CheckQuota(ctx, 1, model.FeatureContentGeneration, model.TierFree)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.Allowed || check.Quota.Remaining != 0 || check.Quota.Used != 5 || check.Quota.Limit != 5 {
		t.Errorf("expected exhausted quota, got %+v", check)
	}

	err = svc.Require(ctx, 1, model.FeatureContentGeneration, model.TierFree)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	var qe *QuotaExceededError
	if !errors.As(err, &qe) || qe.Quota.Used != 5 || qe.Quota.Limit != 5 {
		t.Errorf("expected usage details in error, got %v", err)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotaService(t, time.Now())
	q, _ := svc.IncrementUsage(ctx, 2, model.FeatureCrossPlatformAdaptation, model.TierFree, 7)
	if q.Remaining != 0 || q.Used != 7 {
		t.Errorf("unexpected quota %+v", q)
	}
}

func TestUnlimitedTierAlwaysAllowed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotaService(t, time.Now())
	for i := 0; i < 20; i++ {
		_, _ = svc.IncrementUsage(ctx, 3, model.FeatureContentGeneration, model.TierAgency, 10)
	}
	check, err := svc.CheckQuota(ctx, 3, model.FeatureContentGeneration, model.TierAgency)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !check.Allowed || check.Quota.Limit != model.UnlimitedQuota || check.Quota.Remaining != model.UnlimitedQuota {
		t.Errorf("unexpected unlimited quota %+v", check)
	}
	if check.Quota.Used != 200 {
		t.Errorf("usage should still be tracked, got %d", check.Quota.Used)
	}
}

func TestResetsAtNextUTCMidnight(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+8", 8*3600)
	// 本地 10-16 07:30 即 UTC 10-15 23:30
	svc, _ := newTestQuotaService(t, time.Date(2026, 10, 16, 7, 30, 0, 0, loc))
	check, _ := svc.CheckQuota(ctx, 1, model.FeatureHashtagGeneration, model.TierPro)
	want := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if !check.Quota.ResetsAt.Equal(want) {
		t.Errorf("resetsAt = %v, want %v", check.Quota.ResetsAt, want)
	}
}

func TestDayRolloverRestoresQuota(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC)
	svc, _ := newTestQuotaService(t, now)
	_, _ = svc.IncrementUsage(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree, 2)
	if check, _ := svc.CheckQuota(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree); check.Allowed {
		t.Fatalf("expected quota to be exhausted")
	}
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	check, _ := svc.CheckQuota(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree)
	if !check.Allowed || check.Quota.Used != 0 {
		t.Errorf("expected a fresh day, got %+v", check)
	}
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotaService(t, time.Now())
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.IncrementUsage(ctx, 5, model.FeatureHashtagGeneration, model.TierPro, 1)
		}()
	}
	wg.Wait()
	check, _ := svc.CheckQuota(ctx, 5, model.FeatureHashtagGeneration, model.TierPro)
	if check.Quota.Used != 40 {
		t.Errorf("expected 40, got %d", check.Quota.Used)
	}
}

func TestExhaustedEventPublishedOnce(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestQuotaService(t, time.Now())
	for i := 0; i < 12; i++ {
		_, _ = svc.IncrementUsage(ctx, 1, model.FeatureHashtagGeneration, model.TierFree, 1)
	}
	if n := pub.count(events.UsageIncremented); n != 12 {
		t.Errorf("expected 12 usage events, got %d", n)
	}
	if n := pub.count(events.QuotaExhausted); n != 1 {
		t.Errorf("expected a single exhausted event, got %d", n)
	}
}

func TestIncrementRejectsNonPositive(t *testing.T) {
	svc, _ := newTestQuotaService(t, time.Now())
	if _, err := svc.IncrementUsage(context.Background(), 1, model.FeatureHashtagGeneration, model.TierFree, 0); err == nil {
		t.Errorf("expected error for zero amount")
	}
}

func TestOverviewCoversAllFeatures(t *testing.T) {
	svc, _ := newTestQuotaService(t, time.Now())
	got, err := svc.Overview(context.Background(), 1, model.TierPro)
	if err != nil || len(got) != len(model.AllFeatures) {
		t.Fatalf("unexpected overview %+v %v", got, err)
	}
	if got[0].Limit != 100 || got[1].Limit != 50 || got[2].Limit != 200 {
		t.Errorf("unexpected pro limits %+v", got)
	}
}

func TestQuotaLimitUnknownTier(t *testing.T) {
	if QuotaLimit("enterprise", model.FeatureContentGeneration) != 5 {
		t.Errorf("unknown tier should use free limits")
	}
}

func TestConcurrentReservationsNeverOverspend(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestQuotaService(t, time.Now())
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		granted  int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Reserve(ctx, 9, model.FeatureContentGeneration, model.TierFree, 1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, ErrQuotaExceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				rejected++
				return
			}
			r.Commit(ctx)
			granted++
		}()
	}
	wg.Wait()
	if granted != 5 || rejected != 15 {
		t.Errorf("expected 5 granted and 15 rejected, got %d and %d", granted, rejected)
	}
	check, _ := svc.CheckQuota(ctx, 9, model.FeatureContentGeneration, model.TierFree)
	if check.Quota.Used != 5 {
		t.Errorf("rejected reservations must be returned, used=%d", check.Quota.Used)
	}
	if n := pub.count(events.QuotaExhausted); n != 1 {
		t.Errorf("expected a single exhausted event, got %d", n)
	}
}

func TestReservationRelease(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestQuotaService(t, time.Now())
	r, err := svc.Reserve(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if r.Quota().Used != 1 || r.Quota().Remaining != 1 {
		t.Errorf("unexpected reserved quota %+v", r.Quota())
	}
	r.Release(ctx)
	r.Release(ctx)
	r.Commit(ctx)

	check, _ := svc.CheckQuota(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree)
	if check.Quota.Used != 0 {
		t.Errorf("released reservation still counted, used=%d", check.Quota.Used)
	}
	if n := pub.count(events.UsageIncremented); n != 0 {
		t.Errorf("released reservation must not publish usage, got %d events", n)
	}
}

func TestReserveOverLimitReportsCurrentUsage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotaService(t, time.Now())
	_, _ = svc.IncrementUsage(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree, 2)
	_, err := svc.Reserve(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree, 1)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) || qe.Quota.Used != 2 || qe.Quota.Remaining != 0 {
		t.Fatalf("expected quota error with used=2, got %v", err)
	}
	check, _ := svc.CheckQuota(ctx, 1, model.FeatureCrossPlatformAdaptation, model.TierFree)
	if check.Quota.Used != 2 {
		t.Errorf("rejected reservation leaked into the counter, used=%d", check.Quota.Used)
	}
}
