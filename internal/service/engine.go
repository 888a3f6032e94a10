package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/session"
	"github.com/pizoo-client/internal/storage"
	"github.com/pizoo-client/internal/types"
	"github.com/pizoo-client/internal/worker"
)

// Backend is the full backend surface the engine consumes
type Backend interface {
	DiscoverBackend
	SwipeBackend
	LikesBackend
	ConversationBackend
	SubscriptionBackend
	worker.MessageBackend
	OwnProfile(ctx context.Context) (*types.OwnProfile, error)
}

// Engine wires the session, the candidate queue, swipe handling, likes
// notifications, conversations and subscription state into one facade. One
// Engine serves one logged-in user at a time.
type Engine struct {
	backend Backend
	flags   storage.FlagStore
	session *session.Session
	logger  *logging.Logger

	queue         *ProfileQueue
	swipes        *SwipeEngine
	conversations *ConversationStore
	subscription  *SubscriptionService

	fetchLimit   int
	overlayTTL   time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	notifier *LikesNotifier
	chats    map[string]*worker.ChatSession
}

// EngineConfig holds the engine's dependencies and tuning
type EngineConfig struct {
	Backend      Backend
	Flags        storage.FlagStore
	Session      *session.Session
	FetchLimit   int
	OverlayTTL   time.Duration
	PollInterval time.Duration
	Logger       *logging.Logger
}

// NewEngine creates an engine from config
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if cfg.Flags == nil {
		return nil, fmt.Errorf("flag store cannot be nil")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	queue := NewProfileQueue(cfg.Backend, cfg.FetchLimit, logger)

	e := &Engine{
		backend:       cfg.Backend,
		flags:         cfg.Flags,
		session:       cfg.Session,
		logger:        logger,
		queue:         queue,
		swipes:        NewSwipeEngine(cfg.Backend, queue, cfg.OverlayTTL, logger),
		conversations: NewConversationStore(cfg.Backend, logger),
		subscription:  NewSubscriptionService(cfg.Backend),
		fetchLimit:    cfg.FetchLimit,
		overlayTTL:    cfg.OverlayTTL,
		pollInterval:  pollInterval,
		chats:         make(map[string]*worker.ChatSession),
	}

	// an expired token tears down everything that polls. The teardown runs
	// on its own goroutine: expiry is detected inside a poll's backend
	// call, and stopping that chat waits for the very goroutine making the
	// call.
	cfg.Session.SetOnExpire(func() {
		go e.CloseAllChats(context.Background())
	})

	return e, nil
}

// Queue returns the profile queue
func (e *Engine) Queue() *ProfileQueue { return e.queue }

// Conversations returns the conversation store
func (e *Engine) Conversations() *ConversationStore { return e.conversations }

// Subscription returns the subscription service
func (e *Engine) Subscription() *SubscriptionService { return e.subscription }

// requireSession guards operations that need an authenticated user
func (e *Engine) requireSession() error {
	if !e.session.Authenticated() {
		return apperrors.NewAuthError("no active session")
	}
	return nil
}

// Swipe submits the decision for the current profile. When a match forms,
// a placeholder conversation is inserted immediately so the match shows up
// in the list before the next backend refresh.
func (e *Engine) Swipe(ctx context.Context, kind types.SwipeKind) (*types.MatchResult, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}

	result, profile, err := e.swipes.Swipe(ctx, kind)
	if err != nil {
		return nil, err
	}

	if result.IsMatch {
		e.conversations.Upsert(result.MatchID, profile)
	}
	return result, nil
}

// ActiveMatch returns the current match overlay, or nil
func (e *Engine) ActiveMatch() *MatchOverlay { return e.swipes.ActiveMatch() }

// DismissMatch dismisses the current match overlay
func (e *Engine) DismissMatch() { e.swipes.DismissMatch() }

// RefillQueue fetches a fresh profile batch
func (e *Engine) RefillQueue(ctx context.Context) error {
	if err := e.requireSession(); err != nil {
		return err
	}
	return e.queue.Fetch(ctx)
}

// likesNotifier lazily builds the notifier for the logged-in user. The
// notifier is per-user because the watermark key embeds the user id.
func (e *Engine) likesNotifier() (*LikesNotifier, error) {
	userID := e.session.UserID()
	if userID == "" {
		return nil, apperrors.NewAuthError("no active session")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.notifier == nil || e.notifier.userID != userID {
		e.notifier = NewLikesNotifier(e.backend, e.flags, userID, e.logger)
	}
	return e.notifier, nil
}

// CheckLikes returns a prompt if new likes arrived since the last dismissal
func (e *Engine) CheckLikes(ctx context.Context) (*LikesPrompt, error) {
	notifier, err := e.likesNotifier()
	if err != nil {
		return nil, err
	}
	return notifier.Check(ctx)
}

// DismissLikes acknowledges the given like count
func (e *Engine) DismissLikes(ctx context.Context, count int) error {
	notifier, err := e.likesNotifier()
	if err != nil {
		return err
	}
	return notifier.Dismiss(ctx, count)
}

// LikesSent returns the profiles the user has liked
func (e *Engine) LikesSent(ctx context.Context) ([]types.Profile, error) {
	notifier, err := e.likesNotifier()
	if err != nil {
		return nil, err
	}
	return notifier.Sent(ctx)
}

// OwnProfile fetches the logged-in user's own account record
func (e *Engine) OwnProfile(ctx context.Context) (*types.OwnProfile, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}
	return e.backend.OwnProfile(ctx)
}

// OpenChat starts a polling session for a conversation. Opening an already
// open chat returns the existing session.
func (e *Engine) OpenChat(ctx context.Context, matchID string) (*worker.ChatSession, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if existing, ok := e.chats[matchID]; ok && existing.State() != worker.ChatClosed {
		e.mu.Unlock()
		return existing, nil
	}
	e.mu.Unlock()

	chat, err := worker.NewChatSession(&worker.ChatSessionConfig{
		MatchID:      matchID,
		UserID:       e.session.UserID(),
		Backend:      e.backend,
		Flags:        e.flags,
		PollInterval: e.pollInterval,
		Logger:       e.logger,
	})
	if err != nil {
		return nil, err
	}

	if err := chat.Start(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.chats[matchID] = chat
	e.mu.Unlock()

	return chat, nil
}

// Chat returns the open session for a match, if any
func (e *Engine) Chat(matchID string) (*worker.ChatSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	chat, ok := e.chats[matchID]
	return chat, ok
}

// CloseChat stops the polling session for a conversation
func (e *Engine) CloseChat(ctx context.Context, matchID string) error {
	e.mu.Lock()
	chat, ok := e.chats[matchID]
	if ok {
		delete(e.chats, matchID)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return chat.Stop(ctx)
}

// CloseAllChats stops every open chat session. Called on logout and session
// expiry.
func (e *Engine) CloseAllChats(ctx context.Context) {
	e.mu.Lock()
	chats := e.chats
	e.chats = make(map[string]*worker.ChatSession)
	e.mu.Unlock()

	for matchID, chat := range chats {
		if err := chat.Stop(ctx); err != nil {
			e.logger.WithField("matchId", matchID).WithError(err).Warn("Chat session did not stop cleanly")
		}
	}
}
