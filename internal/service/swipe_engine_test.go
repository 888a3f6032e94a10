package service

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/types"
)

type mockSwipeBackend struct {
	result  *types.MatchResult
	err     error
	actions []types.SwipeAction
}

func (m *mockSwipeBackend) Swipe(ctx context.Context, action types.SwipeAction) (*types.MatchResult, error) {
	m.actions = append(m.actions, action)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &types.MatchResult{}, nil
}

func newTestSwipeEngine(t *testing.T, backend *mockSwipeBackend, profiles ...string) (*SwipeEngine, *ProfileQueue) {
	t.Helper()

	discover := &mockDiscoverBackend{profiles: profileBatch(profiles...)}
	queue := NewProfileQueue(discover, 50, testLogger())
	if err := queue.Fetch(context.Background()); err != nil {
		t.Fatalf("queue fetch failed: %v", err)
	}
	return NewSwipeEngine(backend, queue, 50*time.Millisecond, testLogger()), queue
}

func TestSwipeAdvancesQueue(t *testing.T) {
	backend := &mockSwipeBackend{}
	engine, queue := newTestSwipeEngine(t, backend, "u1", "u2")

	result, swiped, err := engine.Swipe(context.Background(), types.SwipeLike)
	if err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}
	if result.IsMatch {
		t.Error("expected no match")
	}

	if len(backend.actions) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(backend.actions))
	}
	if backend.actions[0].SwipedUserID != "u1" || backend.actions[0].Action != types.SwipeLike {
		t.Errorf("unexpected action sent: %+v", backend.actions[0])
	}
	// the returned profile is the one that was submitted, not the cursor
	// position after the advance
	if swiped.UserID != backend.actions[0].SwipedUserID {
		t.Errorf("returned profile %s does not match submitted %s", swiped.UserID, backend.actions[0].SwipedUserID)
	}

	current, _ := queue.Current()
	if current.UserID != "u2" {
		t.Errorf("expected queue on u2 after swipe, got %s", current.UserID)
	}
}

func TestSwipeInvalidKindRejectedLocally(t *testing.T) {
	backend := &mockSwipeBackend{}
	engine, _ := newTestSwipeEngine(t, backend, "u1")

	_, _, err := engine.Swipe(context.Background(), types.SwipeKind("wink"))
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(backend.actions) != 0 {
		t.Error("invalid swipe must not reach the backend")
	}
}

func TestSwipeOnExhaustedQueue(t *testing.T) {
	backend := &mockSwipeBackend{}
	engine, queue := newTestSwipeEngine(t, backend, "u1")
	queue.Advance()

	_, _, err := engine.Swipe(context.Background(), types.SwipeLike)
	if err == nil {
		t.Fatal("expected error on exhausted queue")
	}
	if len(backend.actions) != 0 {
		t.Error("swipe on exhausted queue must not reach the backend")
	}
}

func TestNetworkFailureKeepsCursor(t *testing.T) {
	backend := &mockSwipeBackend{err: apperrors.NewNetworkError("swipe", context.DeadlineExceeded)}
	engine, queue := newTestSwipeEngine(t, backend, "u1", "u2")

	_, _, err := engine.Swipe(context.Background(), types.SwipeLike)
	if !apperrors.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}

	// cursor stays for an explicit user retry; exactly one request was sent
	current, _ := queue.Current()
	if current.UserID != "u1" {
		t.Errorf("expected cursor still on u1, got %s", current.UserID)
	}
	if len(backend.actions) != 1 {
		t.Errorf("expected exactly 1 submission, got %d", len(backend.actions))
	}
}

func TestConflictAdvancesQueue(t *testing.T) {
	backend := &mockSwipeBackend{err: apperrors.NewConflictError("already swiped")}
	engine, queue := newTestSwipeEngine(t, backend, "u1", "u2")

	_, _, err := engine.Swipe(context.Background(), types.SwipeLike)
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	current, _ := queue.Current()
	if current.UserID != "u2" {
		t.Errorf("expected queue advanced past conflicted profile, got %s", current.UserID)
	}
}

func TestMatchRaisesOverlay(t *testing.T) {
	backend := &mockSwipeBackend{result: &types.MatchResult{IsMatch: true, MatchID: "m1"}}
	engine, _ := newTestSwipeEngine(t, backend, "u1")

	result, _, err := engine.Swipe(context.Background(), types.SwipeLike)
	if err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}
	if !result.IsMatch || result.MatchID != "m1" {
		t.Fatalf("expected match m1, got %+v", result)
	}

	overlay := engine.ActiveMatch()
	if overlay == nil {
		t.Fatal("expected active match overlay")
	}
	if overlay.MatchID != "m1" || overlay.Profile.UserID != "u1" {
		t.Errorf("unexpected overlay: %+v", overlay)
	}
}

func TestOverlayAutoDismisses(t *testing.T) {
	backend := &mockSwipeBackend{result: &types.MatchResult{IsMatch: true, MatchID: "m1"}}
	engine, _ := newTestSwipeEngine(t, backend, "u1")

	if _, _, err := engine.Swipe(context.Background(), types.SwipeLike); err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for engine.ActiveMatch() != nil {
		if time.Now().After(deadline) {
			t.Fatal("overlay did not auto-dismiss")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDismissMatchIsIdempotent(t *testing.T) {
	backend := &mockSwipeBackend{result: &types.MatchResult{IsMatch: true, MatchID: "m1"}}
	engine, _ := newTestSwipeEngine(t, backend, "u1")

	if _, _, err := engine.Swipe(context.Background(), types.SwipeLike); err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}

	engine.DismissMatch()
	if engine.ActiveMatch() != nil {
		t.Error("expected overlay cleared after dismiss")
	}
	// dismissing again, or with nothing showing, is a no-op
	engine.DismissMatch()
	if engine.ActiveMatch() != nil {
		t.Error("expected overlay still cleared")
	}
}
