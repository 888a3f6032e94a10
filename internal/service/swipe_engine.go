package service

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/types"
)

// SwipeBackend is the slice of the backend the swipe engine consumes
type SwipeBackend interface {
	Swipe(ctx context.Context, action types.SwipeAction) (*types.MatchResult, error)
}

// MatchOverlay is the transient "it's a match" notification raised when a
// swipe forms a match. It dismisses itself after the configured TTL unless
// the user dismisses it first.
type MatchOverlay struct {
	MatchID   string        `json:"match_id"`
	Profile   types.Profile `json:"profile"`
	RaisedAt  time.Time     `json:"raised_at"`
	Dismissed bool          `json:"-"`
}

// SwipeEngine submits swipe decisions and interprets the backend's answer.
// Each user gesture produces exactly one backend call; a second swipe while
// one is in flight is rejected rather than queued, and a failed swipe is
// never replayed automatically.
type SwipeEngine struct {
	backend    SwipeBackend
	queue      *ProfileQueue
	overlayTTL time.Duration
	logger     *logging.Logger

	mu           sync.Mutex
	inFlight     bool
	overlay      *MatchOverlay
	overlayTimer *time.Timer
}

// NewSwipeEngine creates a swipe engine over the queue
func NewSwipeEngine(backend SwipeBackend, queue *ProfileQueue, overlayTTL time.Duration, logger *logging.Logger) *SwipeEngine {
	if overlayTTL <= 0 {
		overlayTTL = 3 * time.Second
	}
	return &SwipeEngine{
		backend:    backend,
		queue:      queue,
		overlayTTL: overlayTTL,
		logger:     logger,
	}
}

// Swipe submits the decision for the profile currently under the cursor and
// returns that profile alongside the result, so callers act on the profile
// that was actually submitted rather than re-reading a cursor that may have
// moved. On success the queue advances past the profile. A ConflictError
// (the backend already has a swipe for this pair) also advances the queue so
// the user is never stuck on an unswipeable card; the error is still
// returned for display. Network failures leave the cursor in place for an
// explicit user retry.
func (e *SwipeEngine) Swipe(ctx context.Context, kind types.SwipeKind) (*types.MatchResult, types.Profile, error) {
	if !kind.Valid() {
		return nil, types.Profile{}, apperrors.NewValidationError("action", "unknown swipe action")
	}

	profile, ok := e.queue.Current()
	if !ok {
		return nil, types.Profile{}, apperrors.NewStateError("no profile to swipe, queue is exhausted")
	}

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, types.Profile{}, apperrors.NewStateError("a swipe is already in flight")
	}
	e.inFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	result, err := e.backend.Swipe(ctx, types.SwipeAction{
		SwipedUserID: profile.UserID,
		Action:       kind,
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			// already swiped server-side; advance so the card is not stuck
			e.queue.MarkSwiped(profile.UserID)
			e.queue.Advance()
		}
		return nil, profile, err
	}

	e.queue.MarkSwiped(profile.UserID)
	e.queue.Advance()

	if result.IsMatch {
		e.raiseOverlay(result.MatchID, profile)
		e.logger.WithFields(map[string]interface{}{
			"matchId":      result.MatchID,
			"swipedUserId": profile.UserID,
		}).Info("Match formed")
	}

	return result, profile, nil
}

// raiseOverlay installs the match notification and arms its auto-dismiss
// timer, cancelling any previous one.
func (e *SwipeEngine) raiseOverlay(matchID string, profile types.Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.overlayTimer != nil {
		e.overlayTimer.Stop()
	}

	e.overlay = &MatchOverlay{
		MatchID:  matchID,
		Profile:  profile,
		RaisedAt: time.Now(),
	}
	e.overlayTimer = time.AfterFunc(e.overlayTTL, func() {
		e.dismissOverlay(matchID)
	})
}

// ActiveMatch returns the currently displayed match overlay, or nil
func (e *SwipeEngine) ActiveMatch() *MatchOverlay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay
}

// DismissMatch removes the current overlay before its timer fires.
// Dismissing an already-dismissed or absent overlay is a no-op.
func (e *SwipeEngine) DismissMatch() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.overlayTimer != nil {
		e.overlayTimer.Stop()
		e.overlayTimer = nil
	}
	e.overlay = nil
}

func (e *SwipeEngine) dismissOverlay(matchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// a newer overlay may have replaced this one before the timer fired
	if e.overlay == nil || e.overlay.MatchID != matchID {
		return
	}
	e.overlay = nil
	e.overlayTimer = nil
}
