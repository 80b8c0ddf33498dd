package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const statsCacheKey = "helpdesk:stats:snapshot"

// StatsService serves aggregate statistics. The snapshot is cached in
// Redis with a short TTL; risk scoring tolerates staleness.
type StatsService struct {
	stats  repository.StatsRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService builds the service. cache may be nil, in which case
// every call hits the database.
func NewStatsService(stats repository.StatsRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{stats: stats, cache: cache, ttl: ttl, logger: logger}
}

// AggregateStats returns the statistics snapshot, cached when possible.
func (s *StatsService) AggregateStats(ctx context.Context) (domain.StatsSnapshot, error) {
	if s.cache != nil && s.ttl > 0 {
		if raw, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var snap domain.StatsSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return snap, nil
			}
			s.logger.Warn("discarding corrupt cached stats snapshot")
		}
	}

	snap, err := s.stats.AggregateStats(ctx)
	if err != nil {
		return snap, err
	}

	if s.cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("failed to cache stats snapshot", zap.Error(err))
			}
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot, typically after bulk mutations.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

// AgentWorkload returns per-agent active ticket counts.
func (s *StatsService) AgentWorkload(ctx context.Context) ([]domain.AgentLoad, error) {
	return s.stats.AgentWorkload(ctx)
}

// CategoryStats returns per-category volume and resolution figures.
func (s *StatsService) CategoryStats(ctx context.Context) (map[string]domain.CategoryStat, error) {
	return s.stats.CategoryStats(ctx)
}
