package service

import (
	"context"
	"errors"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/storage"
	"github.com/pizoo-client/internal/types"
)

// LikesBackend is the slice of the backend the notifier consumes
type LikesBackend interface {
	LikesReceived(ctx context.Context) ([]types.Profile, error)
	LikesSent(ctx context.Context) ([]types.Profile, error)
}

// LikesPrompt describes a pending "you have new likes" notification
type LikesPrompt struct {
	Total    int             `json:"total"`
	NewCount int             `json:"new_count"`
	Profiles []types.Profile `json:"profiles"`
}

// LikesNotifier decides when to surface a new-likes notification. The user's
// last acknowledged count is a durable watermark keyed by user id, so the
// prompt reappears only when the like count grows past what was already
// seen, across restarts included.
type LikesNotifier struct {
	backend LikesBackend
	flags   storage.FlagStore
	userID  string
	logger  *logging.Logger
}

// NewLikesNotifier creates a notifier for the given user
func NewLikesNotifier(backend LikesBackend, flags storage.FlagStore, userID string, logger *logging.Logger) *LikesNotifier {
	return &LikesNotifier{
		backend: backend,
		flags:   flags,
		userID:  userID,
		logger:  logger,
	}
}

// Check fetches the received likes and compares the count against the
// stored watermark. A prompt is returned only when the count strictly
// exceeds the watermark; an unset watermark counts as zero, so any likes at
// all prompt a brand-new user.
func (n *LikesNotifier) Check(ctx context.Context) (*LikesPrompt, error) {
	profiles, err := n.backend.LikesReceived(ctx)
	if err != nil {
		return nil, err
	}

	seen, err := n.flags.GetInt(ctx, storage.KeyLastSeenLikesCount, n.userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewStorageError("read likes watermark", err)
		}
		seen = 0
	}

	total := len(profiles)
	if total <= seen {
		return nil, nil
	}

	return &LikesPrompt{
		Total:    total,
		NewCount: total - seen,
		Profiles: profiles,
	}, nil
}

// Dismiss acknowledges the current like count. The watermark only ratchets
// upward: acknowledging a count below what is already stored is a no-op, so
// a stale dismissal can never resurface old likes as new.
func (n *LikesNotifier) Dismiss(ctx context.Context, count int) error {
	seen, err := n.flags.GetInt(ctx, storage.KeyLastSeenLikesCount, n.userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewStorageError("read likes watermark", err)
	}

	if count <= seen {
		return nil
	}

	if err := n.flags.SetInt(ctx, storage.KeyLastSeenLikesCount, n.userID, count); err != nil {
		return err
	}

	n.logger.WithFields(map[string]interface{}{
		"userId":    n.userID,
		"watermark": count,
	}).Debug("Likes watermark advanced")

	return nil
}

// Sent fetches the profiles the user has liked
func (n *LikesNotifier) Sent(ctx context.Context) ([]types.Profile, error) {
	return n.backend.LikesSent(ctx)
}
