package service

import (
	"context"
	"math"
	"testing"
	"time"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/types"
)

type mockSubscriptionBackend struct {
	snapshot *types.SubscriptionSnapshot
	err      error
}

func (m *mockSubscriptionBackend) SubscriptionStatus(ctx context.Context) (*types.SubscriptionSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func TestFetchReplacesSnapshot(t *testing.T) {
	backend := &mockSubscriptionBackend{snapshot: &types.SubscriptionSnapshot{
		Status:        types.SubscriptionTrial,
		DaysRemaining: 10,
		TrialEndDate:  time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		AnnualAmount:  396.0,
		Currency:      "CHF",
	}}
	svc := NewSubscriptionService(backend)

	if svc.Current() != nil {
		t.Error("expected nil snapshot before first fetch")
	}

	snapshot, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snapshot.DaysRemaining != 10 {
		t.Errorf("expected 10 days remaining, got %d", snapshot.DaysRemaining)
	}

	// next payment date appears only when the backend sends it
	next := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	backend.snapshot = &types.SubscriptionSnapshot{
		Status:          types.SubscriptionActive,
		NextPaymentDate: &next,
		AnnualAmount:    396.0,
		Currency:        "CHF",
	}
	if _, err := svc.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	current := svc.Current()
	if current.Status != types.SubscriptionActive {
		t.Errorf("expected active status, got %s", current.Status)
	}
	if current.DaysRemaining != 0 {
		t.Error("expected snapshot replaced wholesale, not merged")
	}
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	backend := &mockSubscriptionBackend{snapshot: &types.SubscriptionSnapshot{
		Status:        types.SubscriptionTrial,
		DaysRemaining: 7,
	}}
	svc := NewSubscriptionService(backend)
	if _, err := svc.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	backend.err = apperrors.NewNetworkError("subscription status", context.DeadlineExceeded)
	if _, err := svc.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	if svc.Current() == nil || svc.Current().DaysRemaining != 7 {
		t.Error("expected previous snapshot kept on failure")
	}
}

func TestTrialProgressPercent(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{14, 0},
		{7, 50},
		{5, 64.2857},
		{0, 100},
		{-3, 100},
		{20, 0},
	}

	for _, tc := range tests {
		got := TrialProgressPercent(tc.days)
		if math.Abs(got-tc.want) > 0.001 {
			t.Errorf("days=%d: expected %.4f, got %.4f", tc.days, tc.want, got)
		}
	}
}
