package service

import (
	"context"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

const recentMissionsLimit = 5

type StatsService struct {
	stats StatsStore
	now   func() time.Time
}

// NewStatsService builds the dashboard service. now decides what "today" is
// and defaults to time.Now.
func NewStatsService(stats StatsStore, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{stats: stats, now: now}
}

func (s *StatsService) Dashboard(ctx context.Context, caller *domain.Identity) (*domain.Stats, error) {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	stats, err := s.stats.GetStats(ctx, s.now().Format(time.DateOnly), recentMissionsLimit)
	if err != nil {
		return nil, storeError("get stats", err)
	}

	return stats, nil
}
