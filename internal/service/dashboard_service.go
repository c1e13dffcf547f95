package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

const dashboardCacheKey = "dash:stats"

type statsRepository interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// dashboardInvalidator is the slice of DashboardService the tenancy
// services hold to drop the cached snapshot after writes.
type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// DashboardService serves the staff overview, backed by a short-lived
// cache so repeated loads do not hammer the aggregate queries.
type DashboardService struct {
	repo     statsRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo statsRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Stats returns the dashboard aggregates and whether they came from cache.
func (s *DashboardService) Stats(ctx context.Context, actor models.Actor) (*models.DashboardStats, bool, error) {
	if !actor.IsStaff() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only staff can view the dashboard")
	}

	if s.cache != nil {
		var cached models.DashboardStats
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return stats, false, nil
}

// Invalidate drops the cached snapshot. Called after tenancy writes so
// the next dashboard load reflects them.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}
