package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/types"
)

// ConversationBackend is the slice of the backend the store consumes
type ConversationBackend interface {
	Conversations(ctx context.Context) ([]types.Conversation, error)
}

// ConversationStore caches the match/conversation list. The backend list is
// authoritative; the store only adds freshly formed matches as placeholder
// conversations so they appear immediately, before the next refresh picks
// up the real record.
type ConversationStore struct {
	backend ConversationBackend
	logger  *logging.Logger

	mu    sync.RWMutex
	items map[string]types.Conversation
}

// NewConversationStore creates an empty store
func NewConversationStore(backend ConversationBackend, logger *logging.Logger) *ConversationStore {
	return &ConversationStore{
		backend: backend,
		logger:  logger,
		items:   make(map[string]types.Conversation),
	}
}

// Refresh replaces the cached list with the backend's. Placeholder entries
// not yet known to the backend survive the refresh.
func (s *ConversationStore) Refresh(ctx context.Context) error {
	conversations, err := s.backend.Conversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]types.Conversation, len(conversations))
	for _, c := range conversations {
		fresh[c.MatchID] = c
	}
	// keep placeholders the backend has not materialized yet
	for id, c := range s.items {
		if _, ok := fresh[id]; !ok && c.LastMessage.Content == "" {
			fresh[id] = c
		}
	}
	s.items = fresh

	return nil
}

// Upsert inserts a placeholder conversation for a newly formed match.
// Repeated calls with the same match id leave the existing entry untouched.
func (s *ConversationStore) Upsert(matchID string, profile types.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[matchID]; ok {
		return
	}

	s.items[matchID] = types.Conversation{
		MatchID: matchID,
		User:    profile,
		LastMessage: types.LastMessage{
			CreatedAt: time.Now(),
		},
	}
	s.logger.WithField("matchId", matchID).Debug("Placeholder conversation inserted")
}

// Get returns the conversation for a match id
func (s *ConversationStore) Get(matchID string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.items[matchID]
	return c, ok
}

// List returns conversations ordered by last-message time, most recent
// first. Ties are broken by match id so the order is stable.
func (s *ConversationStore) List() []types.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Conversation, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessage.CreatedAt, out[j].LastMessage.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out
}

// FormatElapsed renders the age of a timestamp for list display. Buckets
// follow exact floor arithmetic on the millisecond difference: minutes under
// an hour, hours under a day, days under a week, then a calendar date.
func FormatElapsed(at, now time.Time) string {
	diffMs := now.Sub(at).Milliseconds()
	if diffMs < 0 {
		diffMs = 0
	}

	mins := diffMs / 60000
	hours := diffMs / 3600000
	days := diffMs / 86400000

	switch {
	case mins < 60:
		return fmt.Sprintf("%d min ago", mins)
	case hours < 24:
		return fmt.Sprintf("%d h ago", hours)
	case days < 7:
		return fmt.Sprintf("%d d ago", days)
	default:
		return at.Format("Jan 2, 2006")
	}
}
