// Package worker contains the per-conversation polling loop that keeps an
// open chat synchronized with the backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/storage"
	"github.com/pizoo-client/internal/types"
)

// ChatState is the lifecycle state of a chat session
type ChatState string

const (
	// ChatIdle is the state before Start
	ChatIdle ChatState = "idle"
	// ChatLoading is the state during the initial history load
	ChatLoading ChatState = "loading"
	// ChatReady is the steady polling state
	ChatReady ChatState = "ready"
	// ChatConsentPending is the state while a first send waits on the
	// safety acknowledgment
	ChatConsentPending ChatState = "consent_pending"
	// ChatClosed is the terminal state after Stop or a fatal auth error
	ChatClosed ChatState = "closed"
)

// optimisticEchoWindow bounds how far apart an optimistic local message and
// its server echo may be timestamped and still be considered the same
// message.
const optimisticEchoWindow = 30 * time.Second

// MessageBackend is the slice of the backend a chat session consumes
type MessageBackend interface {
	Messages(ctx context.Context, matchID string) ([]types.Message, error)
	SendMessage(ctx context.Context, matchID, content string) error
}

// ChatSession drives one open conversation: an initial history load, a
// polling loop that refreshes messages on a fixed interval, and sends gated
// behind the one-time safety consent. Poll failures are swallowed and the
// next tick tries again; send failures are surfaced and never replayed
// automatically. At most one poll is in flight at any time; ticks that land
// during a slow poll are skipped, not queued.
type ChatSession struct {
	matchID      string
	userID       string
	backend      MessageBackend
	flags        storage.FlagStore
	pollInterval time.Duration
	logger       *logging.Logger

	mu           sync.RWMutex
	state        ChatState
	messages     []types.Message
	optimistic   []types.Message
	pendingDraft string
	pollInFlight bool

	// the poll loop runs under its own context so it outlives the
	// request-scoped context that opened the chat
	loopCtx    context.Context
	loopCancel context.CancelFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// ChatSessionConfig holds configuration for a chat session
type ChatSessionConfig struct {
	MatchID      string
	UserID       string
	Backend      MessageBackend
	Flags        storage.FlagStore
	PollInterval time.Duration
	Logger       *logging.Logger
}

// NewChatSession creates a session for one conversation
func NewChatSession(cfg *ChatSessionConfig) (*ChatSession, error) {
	if cfg.MatchID == "" {
		return nil, fmt.Errorf("match id cannot be empty")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("message backend cannot be nil")
	}
	if cfg.Flags == nil {
		return nil, fmt.Errorf("flag store cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())

	return &ChatSession{
		matchID:      cfg.MatchID,
		userID:       cfg.UserID,
		backend:      cfg.Backend,
		flags:        cfg.Flags,
		pollInterval: pollInterval,
		logger:       logger.WithField("matchId", cfg.MatchID),
		state:        ChatIdle,
		loopCtx:      loopCtx,
		loopCancel:   loopCancel,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start loads the message history and begins polling. The initial load is
// synchronous so the caller gets a populated session or an error; only
// transient failures leave the loop running to recover on the next tick.
func (s *ChatSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != ChatIdle {
		state := s.state
		s.mu.Unlock()
		return apperrors.NewStateError(fmt.Sprintf("chat session cannot start from state %s", state))
	}
	s.state = ChatLoading
	s.mu.Unlock()

	if err := s.poll(ctx); err != nil {
		if apperrors.IsAuth(err) {
			s.mu.Lock()
			s.state = ChatClosed
			s.mu.Unlock()
			s.loopCancel()
			return err
		}
		// transient: the loop below retries on the next tick
		s.logger.WithError(err).Warn("Initial history load failed, polling will retry")
	}

	s.mu.Lock()
	if s.state == ChatLoading {
		s.state = ChatReady
	}
	s.mu.Unlock()

	// the caller's context covers only the initial load; polling runs
	// until Stop or a fatal auth error
	go s.pollLoop(s.loopCtx)

	s.logger.WithField("pollInterval", s.pollInterval.String()).Info("Chat session started")
	return nil
}

// Stop terminates the polling loop and waits for it to exit
func (s *ChatSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == ChatClosed || s.state == ChatIdle {
		s.state = ChatClosed
		s.mu.Unlock()
		s.loopCancel()
		return nil
	}
	s.state = ChatClosed
	s.mu.Unlock()

	close(s.stopCh)
	s.loopCancel()

	select {
	case <-s.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Chat session stopped")
	return nil
}

func (s *ChatSession) pollLoop(ctx context.Context) {
	defer close(s.doneCh)
	defer s.loopCancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.pollInFlight || s.state == ChatClosed {
				s.mu.Unlock()
				continue
			}
			s.pollInFlight = true
			s.mu.Unlock()

			err := s.poll(ctx)

			s.mu.Lock()
			s.pollInFlight = false
			s.mu.Unlock()

			if err != nil {
				if apperrors.IsAuth(err) {
					s.logger.Warn("Session expired, closing chat")
					s.mu.Lock()
					s.state = ChatClosed
					s.mu.Unlock()
					return
				}
				// transient poll errors are silent; next tick retries
				s.logger.WithError(err).Debug("Poll failed")
			}
		}
	}
}

// poll fetches the authoritative message list and reconciles optimistic
// local messages against their server echoes.
func (s *ChatSession) poll(ctx context.Context) error {
	messages, err := s.backend.Messages(ctx, s.matchID)
	if err != nil {
		return err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = messages

	// drop optimistic entries the server now echoes back
	remaining := s.optimistic[:0]
	for _, opt := range s.optimistic {
		if !hasEcho(messages, opt) {
			remaining = append(remaining, opt)
		}
	}
	s.optimistic = remaining

	return nil
}

// hasEcho reports whether the server list contains the authoritative record
// of an optimistic message: same sender and content, timestamped within the
// echo window.
func hasEcho(messages []types.Message, opt types.Message) bool {
	for _, m := range messages {
		if m.SenderID == opt.SenderID && m.Content == opt.Content {
			delta := m.CreatedAt.Sub(opt.CreatedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= optimisticEchoWindow {
				return true
			}
		}
	}
	return false
}

// Messages returns the current view: the server's list plus optimistic
// local messages not yet echoed, in canonical order.
func (s *ChatSession) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Message, 0, len(s.messages)+len(s.optimistic))
	out = append(out, s.messages...)
	out = append(out, s.optimistic...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

// State returns the session's lifecycle state
func (s *ChatSession) State() ChatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Send transmits a message. Empty content is rejected locally before any
// request. The first send of a user is held behind the safety consent: the
// draft is parked, ConsentRequired is returned, and nothing reaches the
// backend until AcceptConsent. Transport failures surface to the caller and
// the message is not replayed automatically.
func (s *ChatSession) Send(ctx context.Context, content string) error {
	if content == "" {
		return apperrors.NewValidationError("content", "message content cannot be empty")
	}

	s.mu.Lock()
	if s.state == ChatClosed || s.state == ChatIdle {
		state := s.state
		s.mu.Unlock()
		return apperrors.NewStateError(fmt.Sprintf("cannot send in state %s", state))
	}
	s.mu.Unlock()

	consented, err := s.flags.GetBool(ctx, storage.KeySafetyConsent, s.userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewStorageError("read safety consent", err)
	}
	if !consented {
		s.mu.Lock()
		s.pendingDraft = content
		s.state = ChatConsentPending
		s.mu.Unlock()
		return apperrors.NewConsentRequiredError()
	}

	return s.transmit(ctx, content)
}

// AcceptConsent records the safety acknowledgment and transmits the parked
// draft, if any, exactly once.
func (s *ChatSession) AcceptConsent(ctx context.Context) error {
	if err := s.flags.SetBool(ctx, storage.KeySafetyConsent, s.userID, true); err != nil {
		return err
	}

	s.mu.Lock()
	draft := s.pendingDraft
	s.pendingDraft = ""
	if s.state == ChatConsentPending {
		s.state = ChatReady
	}
	s.mu.Unlock()

	s.logger.WithField("userId", s.userID).Info("Safety consent accepted")

	if draft == "" {
		return nil
	}
	return s.transmit(ctx, draft)
}

// DeclineConsent discards the parked draft without transmitting it. The
// consent flag stays unset, so the next send asks again.
func (s *ChatSession) DeclineConsent() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingDraft = ""
	if s.state == ChatConsentPending {
		s.state = ChatReady
	}
}

// transmit performs the actual send with an optimistic local echo. The
// optimistic message is removed again if the backend rejects the send.
func (s *ChatSession) transmit(ctx context.Context, content string) error {
	opt := types.Message{
		ID:        uuid.NewString(),
		SenderID:  s.userID,
		Content:   content,
		CreatedAt: time.Now(),
		Status:    types.MessageSent,
	}

	s.mu.Lock()
	s.optimistic = append(s.optimistic, opt)
	s.mu.Unlock()

	if err := s.backend.SendMessage(ctx, s.matchID, content); err != nil {
		s.mu.Lock()
		for i, m := range s.optimistic {
			if m.ID == opt.ID {
				s.optimistic = append(s.optimistic[:i], s.optimistic[i+1:]...)
				break
			}
		}
		if apperrors.IsAuth(err) {
			s.state = ChatClosed
		}
		s.mu.Unlock()
		return err
	}

	return nil
}
