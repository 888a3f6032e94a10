package service

import (
	"context"
	"testing"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/types"
)

func testLogger() *logging.Logger {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return logger
}

type mockDiscoverBackend struct {
	profiles []types.Profile
	err      error
	calls    int
}

func (m *mockDiscoverBackend) Discover(ctx context.Context, limit int) ([]types.Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles, nil
}

func profileBatch(ids ...string) []types.Profile {
	out := make([]types.Profile, len(ids))
	for i, id := range ids {
		out[i] = types.Profile{UserID: id, DisplayName: "User " + id}
	}
	return out
}

func TestFetchAndAdvance(t *testing.T) {
	backend := &mockDiscoverBackend{profiles: profileBatch("u1", "u2", "u3")}
	queue := NewProfileQueue(backend, 50, testLogger())

	if err := queue.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	current, ok := queue.Current()
	if !ok || current.UserID != "u1" {
		t.Errorf("expected u1 under cursor, got %v ok=%v", current.UserID, ok)
	}

	queue.Advance()
	current, _ = queue.Current()
	if current.UserID != "u2" {
		t.Errorf("expected u2 after advance, got %s", current.UserID)
	}

	if queue.Remaining() != 2 {
		t.Errorf("expected 2 remaining, got %d", queue.Remaining())
	}
}

func TestExhaustion(t *testing.T) {
	backend := &mockDiscoverBackend{profiles: profileBatch("u1")}
	queue := NewProfileQueue(backend, 50, testLogger())
	_ = queue.Fetch(context.Background())

	queue.Advance()
	if !queue.Exhausted() {
		t.Error("expected queue exhausted after advancing past last profile")
	}
	if _, ok := queue.Current(); ok {
		t.Error("expected no current profile on exhausted queue")
	}

	// advancing an exhausted queue stays exhausted
	queue.Advance()
	if queue.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", queue.Remaining())
	}
}

func TestRefetchFiltersSwipedProfiles(t *testing.T) {
	backend := &mockDiscoverBackend{profiles: profileBatch("u1", "u2", "u3")}
	queue := NewProfileQueue(backend, 50, testLogger())
	_ = queue.Fetch(context.Background())

	queue.MarkSwiped("u1")
	queue.Advance()
	queue.MarkSwiped("u2")
	queue.Advance()

	// backend returns the same batch again
	if err := queue.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	current, ok := queue.Current()
	if !ok {
		t.Fatal("expected a profile after refetch")
	}
	if current.UserID != "u3" {
		t.Errorf("expected swiped profiles filtered, cursor on u3, got %s", current.UserID)
	}
	if queue.Remaining() != 1 {
		t.Errorf("expected 1 remaining after filter, got %d", queue.Remaining())
	}
}

func TestFetchFailureKeepsQueue(t *testing.T) {
	backend := &mockDiscoverBackend{profiles: profileBatch("u1", "u2")}
	queue := NewProfileQueue(backend, 50, testLogger())
	_ = queue.Fetch(context.Background())
	queue.Advance()

	backend.err = apperrors.NewNetworkError("discover", context.DeadlineExceeded)
	if err := queue.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	current, ok := queue.Current()
	if !ok || current.UserID != "u2" {
		t.Errorf("expected cursor untouched on failed fetch, got %v ok=%v", current.UserID, ok)
	}
}
