package repository

import (
	"context"
	"database/sql"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

// GetStats reads every dashboard figure inside one read-only snapshot.
func (r *Repository) GetStats(ctx context.Context, today string, recentLimit int) (*domain.Stats, error) {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stats := &domain.Stats{
		MissionsByService: make([]domain.ServiceTypeCount, 0),
		RecentMissions:    make([]*domain.Mission, 0),
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM missions),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM missions WHERE mission_date = $1::date)
	`
	if err := tx.QueryRowContext(ctx, query, today).Scan(&stats.TotalMissions, &stats.TotalUsers, &stats.TodayMissions); err != nil {
		return nil, err
	}

	query = `
		SELECT service_type, COUNT(*) AS count
		FROM missions
		GROUP BY service_type
		ORDER BY count DESC, service_type
	`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c domain.ServiceTypeCount
		if err := rows.Scan(&c.ServiceType, &c.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.MissionsByService = append(stats.MissionsByService, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = missionSelect + `
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1
	`
	rows, err = tx.QueryContext(ctx, query, recentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		stats.RecentMissions = append(stats.RecentMissions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return stats, nil
}
