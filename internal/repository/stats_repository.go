package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatsRepository runs the aggregate queries backing the statistics
// snapshot, agent workload, and category breakdown.
type StatsRepository interface {
	AggregateStats(ctx context.Context) (domain.StatsSnapshot, error)
	AgentWorkload(ctx context.Context) ([]domain.AgentLoad, error)
	CategoryStats(ctx context.Context) (map[string]domain.CategoryStat, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository builds repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) AggregateStats(ctx context.Context) (domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot

	const counts = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='Resolved'),
               COUNT(*) FILTER (WHERE status='Reopened')
        FROM tickets`
	if err := r.pool.QueryRow(ctx, counts).Scan(&snap.Total, &snap.Resolved, &snap.Reopened); err != nil {
		return snap, err
	}

	if snap.Total > 0 {
		snap.ResolutionRate = float64(snap.Resolved) / float64(snap.Total)
		snap.ReopenRate = float64(snap.Reopened) / float64(snap.Total)
	}

	const resolution = `
        SELECT AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600.0)
        FROM tickets WHERE status='Resolved' AND closed_at IS NOT NULL`
	if err := r.pool.QueryRow(ctx, resolution).Scan(&snap.AvgResolutionHours); err != nil {
		return snap, err
	}

	const feedback = `SELECT AVG(rating::float8) FROM feedback`
	if err := r.pool.QueryRow(ctx, feedback).Scan(&snap.AvgFeedback); err != nil {
		return snap, err
	}

	return snap, nil
}

func (r *statsRepository) AgentWorkload(ctx context.Context) ([]domain.AgentLoad, error) {
	const query = `
        SELECT u.id, u.name,
               COUNT(t.id) FILTER (WHERE t.status <> 'Resolved' AND t.status <> 'Closed')
        FROM users u
        LEFT JOIN tickets t ON t.agent_id = u.id
        WHERE u.role='agent'
        GROUP BY u.id, u.name
        ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AgentLoad
	for rows.Next() {
		var load domain.AgentLoad
		if err := rows.Scan(&load.AgentID, &load.Name, &load.ActiveTickets); err != nil {
			return nil, err
		}
		load.Overloaded = load.ActiveTickets >= 5
		result = append(result, load)
	}
	return result, rows.Err()
}

func (r *statsRepository) CategoryStats(ctx context.Context) (map[string]domain.CategoryStat, error) {
	const query = `
        SELECT category,
               COUNT(*),
               COUNT(*) FILTER (WHERE status='Resolved' AND closed_at IS NOT NULL),
               AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600.0)
                   FILTER (WHERE status='Resolved' AND closed_at IS NOT NULL)
        FROM tickets
        GROUP BY category`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.CategoryStat)
	for rows.Next() {
		var category string
		var stat domain.CategoryStat
		if err := rows.Scan(&category, &stat.Total, &stat.Resolved, &stat.AvgResolutionHours); err != nil {
			return nil, err
		}
		result[category] = stat
	}
	return result, rows.Err()
}
