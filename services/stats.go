package services

import (
	"context"
	"fmt"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StatsService maintains the community statistics read model.
type StatsService struct {
	*base
}

// RefreshCommunity recomputes and stores the statistics of one community.
func (s *StatsService) RefreshCommunity(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	community, err := s.store.Communities.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Community")
	}

	users, err := s.store.Users.CountByCommunity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	pickups, err := s.store.Pickups.Summary(ctx, store.PickupFilter{Community: &id})
	if err != nil {
		return nil, fmt.Errorf("summarize pickups: %w", err)
	}
	issues, err := s.store.Issues.Summary(ctx, store.IssueFilter{Community: &id})
	if err != nil {
		return nil, fmt.Errorf("summarize issues: %w", err)
	}

	updated := community.WithStats(users, pickups, issues, s.now())
	if err := s.store.Communities.Update(ctx, &updated); err != nil {
		return nil, notFound(err, "Community")
	}
	return &updated, nil
}

// afterMutation refreshes the community once a write that affects its
// statistics has been stored. The write itself already succeeded, so a
// failure here is only logged.
func (s *StatsService) afterMutation(ctx context.Context, community *primitive.ObjectID) {
	if community == nil || community.IsZero() {
		return
	}
	if _, err := s.RefreshCommunity(ctx, *community); err != nil {
		s.logger.Warn("failed to refresh community stats",
			zap.String("community_id", community.Hex()), zap.Error(err))
	}
}
