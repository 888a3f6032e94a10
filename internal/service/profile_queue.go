package service

import (
	"context"
	"sync"

	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/types"
)

// DiscoverBackend is the slice of the backend the queue consumes
type DiscoverBackend interface {
	Discover(ctx context.Context, limit int) ([]types.Profile, error)
}

// ProfileQueue holds the ordered batch of candidate profiles and the cursor
// advancing over it. Profiles swiped during the session are remembered and
// never offered again, even if a later fetch returns them.
type ProfileQueue struct {
	backend DiscoverBackend
	limit   int
	logger  *logging.Logger

	mu       sync.Mutex
	profiles []types.Profile
	cursor   int
	swiped   map[string]bool
}

// NewProfileQueue creates an empty queue with the given fetch limit
func NewProfileQueue(backend DiscoverBackend, limit int, logger *logging.Logger) *ProfileQueue {
	if limit <= 0 {
		limit = 50
	}
	return &ProfileQueue{
		backend: backend,
		limit:   limit,
		logger:  logger,
		swiped:  make(map[string]bool),
	}
}

// Fetch replaces the queue with a fresh batch from the backend. Profiles
// already swiped this session are filtered out of the incoming batch. On
// failure the existing queue and cursor are kept untouched so the user can
// keep swiping through what was already loaded.
func (q *ProfileQueue) Fetch(ctx context.Context) error {
	profiles, err := q.backend.Discover(ctx, q.limit)
	if err != nil {
		q.logger.WithError(err).Warn("Profile fetch failed, keeping current queue")
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	fresh := make([]types.Profile, 0, len(profiles))
	for _, p := range profiles {
		if !q.swiped[p.UserID] {
			fresh = append(fresh, p)
		}
	}

	q.profiles = fresh
	q.cursor = 0

	q.logger.WithFields(map[string]interface{}{
		"fetched":  len(profiles),
		"offered":  len(fresh),
		"filtered": len(profiles) - len(fresh),
	}).Info("Profile queue refilled")

	return nil
}

// Current returns the profile under the cursor, or false when the queue is
// exhausted
func (q *ProfileQueue) Current() (types.Profile, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor >= len(q.profiles) {
		return types.Profile{}, false
	}
	return q.profiles[q.cursor], true
}

// MarkSwiped records that the profile has been swiped and must not be
// offered again this session
func (q *ProfileQueue) MarkSwiped(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.swiped[userID] = true
}

// Advance moves the cursor past the current profile. Advancing past the end
// is a no-op; the queue just reports exhaustion.
func (q *ProfileQueue) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor < len(q.profiles) {
		q.cursor++
	}
}

// Remaining returns the number of profiles left under and after the cursor
func (q *ProfileQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.profiles) - q.cursor
}

// Exhausted reports whether the cursor has passed the last profile
func (q *ProfileQueue) Exhausted() bool {
	return q.Remaining() == 0
}
