package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/session"
	"github.com/pizoo-client/internal/storage"
	"github.com/pizoo-client/internal/types"
)

// mockBackend implements the full Backend surface for engine tests
type mockBackend struct {
	profiles      []types.Profile
	swipeResult   *types.MatchResult
	swipeErr      error
	likesReceived []types.Profile
	likesSent     []types.Profile
	conversations []types.Conversation
	messages      []types.Message
	messagesFn    func(ctx context.Context, matchID string) ([]types.Message, error)
	snapshot      *types.SubscriptionSnapshot
	sent          []string
}

func (m *mockBackend) Discover(ctx context.Context, limit int) ([]types.Profile, error) {
	return m.profiles, nil
}

func (m *mockBackend) Swipe(ctx context.Context, action types.SwipeAction) (*types.MatchResult, error) {
	if m.swipeErr != nil {
		return nil, m.swipeErr
	}
	if m.swipeResult != nil {
		return m.swipeResult, nil
	}
	return &types.MatchResult{}, nil
}

func (m *mockBackend) LikesReceived(ctx context.Context) ([]types.Profile, error) {
	return m.likesReceived, nil
}

func (m *mockBackend) LikesSent(ctx context.Context) ([]types.Profile, error) {
	return m.likesSent, nil
}

func (m *mockBackend) Conversations(ctx context.Context) ([]types.Conversation, error) {
	return m.conversations, nil
}

func (m *mockBackend) Messages(ctx context.Context, matchID string) ([]types.Message, error) {
	if m.messagesFn != nil {
		return m.messagesFn(ctx, matchID)
	}
	return m.messages, nil
}

func (m *mockBackend) SendMessage(ctx context.Context, matchID, content string) error {
	m.sent = append(m.sent, content)
	return nil
}

func (m *mockBackend) SubscriptionStatus(ctx context.Context) (*types.SubscriptionSnapshot, error) {
	return m.snapshot, nil
}

func (m *mockBackend) OwnProfile(ctx context.Context) (*types.OwnProfile, error) {
	return &types.OwnProfile{ID: "me"}, nil
}

func newTestEngine(t *testing.T, backend *mockBackend) *Engine {
	t.Helper()

	sess := session.New()
	sess.Login("tok-1", "me", "Me")

	engine, err := NewEngine(&EngineConfig{
		Backend:      backend,
		Flags:        storage.NewMemoryFlagStore(),
		Session:      sess,
		FetchLimit:   50,
		OverlayTTL:   50 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		Logger:       testLogger(),
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func TestMatchInsertsPlaceholderConversation(t *testing.T) {
	backend := &mockBackend{
		profiles:    profileBatch("u1", "u2"),
		swipeResult: &types.MatchResult{IsMatch: true, MatchID: "m1"},
	}
	engine := newTestEngine(t, backend)

	if err := engine.RefillQueue(context.Background()); err != nil {
		t.Fatalf("RefillQueue failed: %v", err)
	}

	result, err := engine.Swipe(context.Background(), types.SwipeLike)
	if err != nil {
		t.Fatalf("Swipe failed: %v", err)
	}
	if !result.IsMatch {
		t.Fatal("expected a match")
	}

	conv, ok := engine.Conversations().Get("m1")
	if !ok {
		t.Fatal("expected placeholder conversation for new match")
	}
	if conv.User.UserID != "u1" {
		t.Errorf("expected matched profile u1, got %s", conv.User.UserID)
	}

	// repeated match result for the same id stays a single conversation
	engine.Conversations().Upsert("m1", types.Profile{UserID: "u1"})
	if got := len(engine.Conversations().List()); got != 1 {
		t.Errorf("expected 1 conversation, got %d", got)
	}
}

func TestOperationsRequireSession(t *testing.T) {
	backend := &mockBackend{profiles: profileBatch("u1")}
	engine := newTestEngine(t, backend)
	engine.session.Logout()

	if _, err := engine.Swipe(context.Background(), types.SwipeLike); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from Swipe, got %v", err)
	}
	if err := engine.RefillQueue(context.Background()); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from RefillQueue, got %v", err)
	}
	if _, err := engine.CheckLikes(context.Background()); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from CheckLikes, got %v", err)
	}
	if _, err := engine.OpenChat(context.Background(), "m1"); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from OpenChat, got %v", err)
	}
}

func TestOpenChatReturnsExistingSession(t *testing.T) {
	backend := &mockBackend{}
	engine := newTestEngine(t, backend)

	first, err := engine.OpenChat(context.Background(), "m1")
	if err != nil {
		t.Fatalf("OpenChat failed: %v", err)
	}
	second, err := engine.OpenChat(context.Background(), "m1")
	if err != nil {
		t.Fatalf("OpenChat failed: %v", err)
	}
	if first != second {
		t.Error("expected the same session for a repeated open")
	}

	if err := engine.CloseChat(context.Background(), "m1"); err != nil {
		t.Fatalf("CloseChat failed: %v", err)
	}
	if _, ok := engine.Chat("m1"); ok {
		t.Error("expected chat removed after close")
	}
}

func TestSessionExpiryClosesChats(t *testing.T) {
	backend := &mockBackend{}
	engine := newTestEngine(t, backend)

	chat, err := engine.OpenChat(context.Background(), "m1")
	if err != nil {
		t.Fatalf("OpenChat failed: %v", err)
	}

	engine.session.Expire()

	deadline := time.Now().Add(2 * time.Second)
	for chat.State() != "closed" {
		if time.Now().After(deadline) {
			t.Fatalf("expected chat closed after session expiry, state=%s", chat.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExpiryInsidePollClosesChats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	backend := &mockBackend{}
	engine := newTestEngine(t, backend)

	// the adapter expires the session from inside the request that saw the
	// 401, on the poll goroutine itself; Expire must not wait for that
	// goroutine to finish
	var calls int32
	backend.messagesFn = func(ctx context.Context, matchID string) ([]types.Message, error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			engine.session.Expire()
			return nil, apperrors.NewAuthError("token expired")
		}
		return nil, nil
	}

	chat, err := engine.OpenChat(context.Background(), "m1")
	if err != nil {
		t.Fatalf("OpenChat failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, open := engine.Chat("m1")
		if chat.State() == "closed" && !open {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chat not torn down after in-poll expiry, state=%s", chat.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if engine.session.Authenticated() {
		t.Error("expected session expired")
	}
}

func TestLikesSentAndOwnProfile(t *testing.T) {
	backend := &mockBackend{likesSent: profileBatch("u7")}
	engine := newTestEngine(t, backend)

	sent, err := engine.LikesSent(context.Background())
	if err != nil {
		t.Fatalf("LikesSent failed: %v", err)
	}
	if len(sent) != 1 || sent[0].UserID != "u7" {
		t.Errorf("unexpected sent likes: %+v", sent)
	}

	profile, err := engine.OwnProfile(context.Background())
	if err != nil {
		t.Fatalf("OwnProfile failed: %v", err)
	}
	if profile.ID != "me" {
		t.Errorf("expected own profile me, got %s", profile.ID)
	}

	engine.session.Logout()
	if _, err := engine.LikesSent(context.Background()); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from LikesSent, got %v", err)
	}
	if _, err := engine.OwnProfile(context.Background()); !apperrors.IsAuth(err) {
		t.Errorf("expected auth error from OwnProfile, got %v", err)
	}
}

func TestLikesFlowThroughEngine(t *testing.T) {
	backend := &mockBackend{likesReceived: profileBatch("u1", "u2", "u3", "u4", "u5")}
	engine := newTestEngine(t, backend)

	prompt, err := engine.CheckLikes(context.Background())
	if err != nil {
		t.Fatalf("CheckLikes failed: %v", err)
	}
	if prompt == nil || prompt.NewCount != 5 {
		t.Fatalf("expected prompt with 5 new likes, got %+v", prompt)
	}

	if err := engine.DismissLikes(context.Background(), prompt.Total); err != nil {
		t.Fatalf("DismissLikes failed: %v", err)
	}

	prompt, err = engine.CheckLikes(context.Background())
	if err != nil {
		t.Fatalf("CheckLikes failed: %v", err)
	}
	if prompt != nil {
		t.Errorf("expected no prompt after dismissal, got %+v", prompt)
	}
}
