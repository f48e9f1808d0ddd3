package service

import (
	"context"

	"campusnet/internal/cache"
	"campusnet/internal/models"
	"campusnet/internal/notifications"
	"campusnet/internal/observability"
	"campusnet/internal/repository"
)

// FollowResult is the edge state after a toggle, with both endpoints reloaded.
type FollowResult struct {
	Following bool         `json:"following"`
	User      *models.User `json:"user"`
	Target    *models.User `json:"target"`
}

type FollowService struct {
	userRepo repository.UserRepository
	notifier ActivityNotifier
}

func NewFollowService(userRepo repository.UserRepository, notifier ActivityNotifier) *FollowService {
	return &FollowService{userRepo: userRepo, notifier: orNoop(notifier)}
}

// ToggleFollow follows targetID when requesterID does not follow it yet, and unfollows otherwise.
func (s *FollowService) ToggleFollow(ctx context.Context, requesterID, targetID string) (*FollowResult, error) {
	if requesterID == targetID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	following, err := s.userRepo.ToggleFollow(ctx, requesterID, targetID)
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, requesterID, targetID)

	if following {
		observability.RecordSocialAction("follow")
		notify(ctx, s.notifier, targetID, notifications.Event{Type: notifications.EventFollow, ActorID: requesterID})
	} else {
		observability.RecordSocialAction("unfollow")
	}

	user, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &FollowResult{Following: following, User: user, Target: target}, nil
}
