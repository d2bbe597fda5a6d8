package service

import (
	"context"

	"licenseguard/backend/internal/models"

	"github.com/google/uuid"
)

// RecentActivityLimit is how many checks the dashboard lists
const RecentActivityLimit = 5

// DashboardService composes the read side of content checks. It writes nothing.
type DashboardService struct {
	checks *ContentCheckService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(checks *ContentCheckService) *DashboardService {
	return &DashboardService{checks: checks}
}

// Overview returns the user's stats and most recent checks
func (s *DashboardService) Overview(ctx context.Context, userID uuid.UUID) (*models.DashboardOverview, error) {
	stats, err := s.checks.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.checks.ListRecent(ctx, userID, RecentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &models.DashboardOverview{CheckStats: *stats, RecentActivity: recent}, nil
}
