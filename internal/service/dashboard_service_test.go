package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
)

type mockStatsRepo struct {
	stats *models.DashboardStats
	err   error
	calls int
}

func (m *mockStatsRepo) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockDashboard counts invalidations triggered by the tenancy services.
type mockDashboard struct {
	invalidated int
}

func (m *mockDashboard) Invalidate(ctx context.Context) { m.invalidated++ }

type memoryCacheRepo struct {
	entries map[string][]byte
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = map[string][]byte{}
	return nil
}

func newDashboardService(repo *mockStatsRepo, cacheRepo CacheRepository) *DashboardService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	return NewDashboardService(repo, cache, time.Minute, zap.NewNop())
}

func TestDashboardStatsRequiresStaff(t *testing.T) {
	svc := newDashboardService(&mockStatsRepo{stats: &models.DashboardStats{}}, nil)

	_, _, err := svc.Stats(context.Background(), studentActor("u1"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardStatsCachesSecondLoad(t *testing.T) {
	repo := &mockStatsRepo{stats: &models.DashboardStats{TotalStudents: 42, OccupiedRooms: 7, CollectedRevenue: 1200000}}
	svc := newDashboardService(repo, newMemoryCacheRepo())

	first, cached, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, first.TotalStudents)

	second, cached, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.CollectedRevenue, second.CollectedRevenue)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardStatsWorksWithoutCache(t *testing.T) {
	repo := &mockStatsRepo{stats: &models.DashboardStats{TotalRooms: 10}}
	svc := newDashboardService(repo, nil)

	stats, cached, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 10, stats.TotalRooms)

	_, cached, err = svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardStatsFallsBackOnCacheError(t *testing.T) {
	repo := &mockStatsRepo{stats: &models.DashboardStats{PendingRequests: 3}}
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.getErr = errors.New("redis gone")
	svc := newDashboardService(repo, cacheRepo)

	stats, cached, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, stats.PendingRequests)
}

func TestDashboardInvalidateForcesReload(t *testing.T) {
	repo := &mockStatsRepo{stats: &models.DashboardStats{ActiveContracts: 5}}
	svc := newDashboardService(repo, newMemoryCacheRepo())

	_, _, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)

	svc.Invalidate(context.Background())

	_, cached, err := svc.Stats(context.Background(), staffActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}
