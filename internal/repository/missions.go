package repository

import (
	"context"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMission(row rowScanner) (*domain.Mission, error) {
	m := &domain.Mission{}
	var missionDate time.Time

	dst := []any{
		&m.ID,
		&m.DriverID,
		&missionDate,
		&m.MissionTime,
		&m.ServiceType,
		&m.VehicleRegistration,
		&m.VehicleModel,
		&m.DepartureLocation,
		&m.ArrivalLocation,
		&m.Observations,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DriverName,
		&m.DriverUsername,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	m.MissionDate = missionDate.Format(time.DateOnly)
	return m, nil
}

func (r *Repository) CreateMission(ctx context.Context, m *domain.Mission) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO missions (
			driver_id, mission_date, mission_time, service_type,
			vehicle_registration, vehicle_model, departure_location,
			arrival_location, observations
		)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	args := []any{
		m.DriverID,
		m.MissionDate,
		m.MissionTime,
		m.ServiceType,
		m.VehicleRegistration,
		m.VehicleModel,
		m.DepartureLocation,
		m.ArrivalLocation,
		m.Observations,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}

	return nil
}

// ListMissions returns every mission matching filter, newest mission date first.
func (r *Repository) ListMissions(ctx context.Context, filter domain.MissionFilter) ([]*domain.Mission, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	q := newMissionQuery(filter)

	rows, err := r.dbpool.QueryContext(ctx, q.String()+missionOrder, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missions := make([]*domain.Mission, 0)
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return missions, nil
}

// GetMission returns mission id if it also satisfies filter, sql.ErrNoRows otherwise.
func (r *Repository) GetMission(ctx context.Context, id int64, filter domain.MissionFilter) (*domain.Mission, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	q := newMissionQuery(filter)
	q.where("m.id = " + q.arg(id))

	return scanMission(r.dbpool.QueryRowContext(ctx, q.String(), q.args...))
}

// UpdateMission replaces the mutable fields of m and refreshes its
// timestamps and driver columns.
func (r *Repository) UpdateMission(ctx context.Context, m *domain.Mission) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE missions m
		SET
			mission_date = $1::date,
			mission_time = $2,
			service_type = $3,
			vehicle_registration = $4,
			vehicle_model = $5,
			departure_location = $6,
			arrival_location = $7,
			observations = $8,
			updated_at = now()
		FROM users u
		WHERE m.id = $9 AND u.id = m.driver_id
		RETURNING m.driver_id, m.created_at, m.updated_at, u.full_name, u.username
	`

	args := []any{
		m.MissionDate,
		m.MissionTime,
		m.ServiceType,
		m.VehicleRegistration,
		m.VehicleModel,
		m.DepartureLocation,
		m.ArrivalLocation,
		m.Observations,
		m.ID,
	}
	dst := []any{&m.DriverID, &m.CreatedAt, &m.UpdatedAt, &m.DriverName, &m.DriverUsername}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteMission(ctx context.Context, id int64) error {
	query := `
		DELETE FROM missions WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return affectedOne(result)
}
