package service

import (
	"context"
	"sync"

	"github.com/pizoo-client/internal/types"
)

// TrialLengthDays is the length of the free trial window
const TrialLengthDays = 14

// SubscriptionBackend is the slice of the backend the service consumes
type SubscriptionBackend interface {
	SubscriptionStatus(ctx context.Context) (*types.SubscriptionSnapshot, error)
}

// SubscriptionService caches the account's billing snapshot and derives the
// trial countdown numbers shown on the dashboard. Each fetch replaces the
// snapshot wholesale; fields are never merged.
type SubscriptionService struct {
	backend SubscriptionBackend

	mu       sync.RWMutex
	snapshot *types.SubscriptionSnapshot
}

// NewSubscriptionService creates a service with no snapshot loaded
func NewSubscriptionService(backend SubscriptionBackend) *SubscriptionService {
	return &SubscriptionService{backend: backend}
}

// Fetch pulls a fresh snapshot from the backend. On failure the previous
// snapshot is kept.
func (s *SubscriptionService) Fetch(ctx context.Context) (*types.SubscriptionSnapshot, error) {
	snapshot, err := s.backend.SubscriptionStatus(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	return snapshot, nil
}

// Current returns the cached snapshot, or nil before the first fetch
func (s *SubscriptionService) Current() *types.SubscriptionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// TrialProgressPercent converts days remaining into trial progress. Day 0
// of the trial is 0%, the last day approaches 100%; out-of-range inputs are
// clamped so a stale backend value can never render an impossible bar.
func TrialProgressPercent(daysRemaining int) float64 {
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > TrialLengthDays {
		daysRemaining = TrialLengthDays
	}
	return float64(TrialLengthDays-daysRemaining) / float64(TrialLengthDays) * 100
}
