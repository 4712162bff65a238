package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/roadside-ops/mission-log/backend/internal/config"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIntegrationRepository migrates the database named by TEST_DATABASE_DSN
// and empties it. Its tables are wiped, so never point it at real data.
func newIntegrationRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	source, err := iofs.New(Migrations, "migrations")
	require.NoError(t, err)

	migrateURL := dsn
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			migrateURL = "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	_, _ = m.Close()

	dbpool, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbpool.Close() })

	_, err = dbpool.Exec("TRUNCATE missions, users RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 10
	cfg.Database.TransactionTimeout = 20
	return NewRepository(cfg, dbpool)
}

func insertUser(t *testing.T, r *Repository, username, fullName string, role domain.Role) *domain.User {
	t.Helper()

	user := &domain.User{
		Username:     username,
		PasswordHash: "$2a$04$not-a-real-hash",
		FullName:     fullName,
		Role:         role,
	}
	require.NoError(t, r.CreateUser(context.Background(), user))
	return user
}

func insertMission(t *testing.T, r *Repository, driverID int64, date, clock, serviceType, registration string) *domain.Mission {
	t.Helper()

	m := &domain.Mission{
		DriverID:            driverID,
		MissionDate:         date,
		MissionTime:         clock,
		ServiceType:         serviceType,
		VehicleRegistration: registration,
		VehicleModel:        "Clio",
		DepartureLocation:   "Rabat",
		ArrivalLocation:     "Casa",
	}
	require.NoError(t, r.CreateMission(context.Background(), m))
	return m
}

func missionIDs(missions []*domain.Mission) []int64 {
	ids := make([]int64, 0, len(missions))
	for _, m := range missions {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestIntegrationMissionFiltersAreConjunctive(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	a := insertMission(t, r, alice.ID, "2024-01-01", "10:00", "Tow", "AA-111")
	b := insertMission(t, r, alice.ID, "2024-02-01", "10:00", "Ambulance", "BB-222")

	missions, err := r.ListMissions(ctx, domain.MissionFilter{StartDate: "2024-01-15"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, missionIDs(missions))

	missions, err = r.ListMissions(ctx, domain.MissionFilter{StartDate: "2024-01-15", ServiceType: "Ambulance"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, missionIDs(missions))

	missions, err = r.ListMissions(ctx, domain.MissionFilter{StartDate: "2024-01-15", ServiceType: "Tow"})
	require.NoError(t, err)
	assert.Empty(t, missions)

	missions, err = r.ListMissions(ctx, domain.MissionFilter{EndDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, missionIDs(missions))
}

func TestIntegrationMissionOrderingAndDates(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	early := insertMission(t, r, alice.ID, "2024-05-01", "08:15", "Tow", "AA-111")
	older := insertMission(t, r, alice.ID, "2024-04-30", "23:59", "Tow", "AA-112")
	late := insertMission(t, r, alice.ID, "2024-05-01", "14:30", "Tow", "AA-113")

	missions, err := r.ListMissions(ctx, domain.MissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{late.ID, early.ID, older.ID}, missionIDs(missions))

	assert.Equal(t, "2024-05-01", missions[0].MissionDate)
	assert.Equal(t, "14:30", missions[0].MissionTime)
	assert.Equal(t, "Alice Martin", missions[0].DriverName)
	assert.Equal(t, "alice", missions[0].DriverUsername)
	assert.False(t, missions[0].CreatedAt.IsZero())
}

func TestIntegrationMissionSearch(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	bob := insertUser(t, r, "bob", "Bob Stone", domain.RoleDriver)
	a := insertMission(t, r, alice.ID, "2024-05-01", "10:00", "Tow", "AB_12")
	b := insertMission(t, r, bob.ID, "2024-05-01", "09:00", "Tow", "ABX12")

	// driver full name, case-insensitive
	missions, err := r.ListMissions(ctx, domain.MissionFilter{Search: "MARTIN"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, missionIDs(missions))

	// "_" is matched literally
	missions, err = r.ListMissions(ctx, domain.MissionFilter{Search: "b_1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, missionIDs(missions))

	missions, err = r.ListMissions(ctx, domain.MissionFilter{Search: "casa"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, missionIDs(missions))
}

func TestIntegrationMissionVisibility(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	bob := insertUser(t, r, "bob", "Bob Stone", domain.RoleDriver)
	mine := insertMission(t, r, alice.ID, "2024-05-01", "10:00", "Tow", "AA-111")
	theirs := insertMission(t, r, bob.ID, "2024-05-02", "10:00", "Tow", "BB-222")

	aliceScope := domain.VisibleTo(domain.Identity{UserID: alice.ID, Role: domain.RoleDriver})

	missions, err := r.ListMissions(ctx, domain.MissionFilter{}.Merge(aliceScope))
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID}, missionIDs(missions))

	// a client driver filter cannot widen the scope
	other := bob.ID
	missions, err = r.ListMissions(ctx, domain.MissionFilter{DriverID: &other}.Merge(aliceScope))
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID}, missionIDs(missions))

	_, err = r.GetMission(ctx, theirs.ID, aliceScope)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	got, err := r.GetMission(ctx, mine.ID, aliceScope)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.DriverID)

	adminScope := domain.VisibleTo(domain.Identity{UserID: 99, Role: domain.RoleAdmin})
	got, err = r.GetMission(ctx, theirs.ID, adminScope)
	require.NoError(t, err)
	assert.Equal(t, "Bob Stone", got.DriverName)
}

func TestIntegrationUpdateAndDeleteMission(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	m := insertMission(t, r, alice.ID, "2024-05-01", "10:00", "Tow", "AA-111")
	created := m.CreatedAt

	update := &domain.Mission{
		ID:                  m.ID,
		MissionDate:         "2024-06-02",
		MissionTime:         "07:45",
		ServiceType:         "Ambulance",
		VehicleRegistration: "ZZ-999",
		VehicleModel:        "Hilux",
		DepartureLocation:   "Salé",
		ArrivalLocation:     "Témara",
		Observations:        "updated",
	}
	require.NoError(t, r.UpdateMission(ctx, update))
	assert.Equal(t, alice.ID, update.DriverID)
	assert.Equal(t, "Alice Martin", update.DriverName)
	assert.WithinDuration(t, created, update.CreatedAt, time.Millisecond)

	got, err := r.GetMission(ctx, m.ID, domain.MissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", got.MissionDate)
	assert.Equal(t, "Témara", got.ArrivalLocation)

	update.ID = 9999
	assert.ErrorIs(t, r.UpdateMission(ctx, update), sql.ErrNoRows)

	require.NoError(t, r.DeleteMission(ctx, m.ID))
	assert.ErrorIs(t, r.DeleteMission(ctx, m.ID), sql.ErrNoRows)
}

func TestIntegrationConstraintNames(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)

	var pgErr *pgconn.PgError
	err := r.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "x", FullName: "Alice Again", Role: domain.RoleDriver})
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, ConstraintUsersUsernameKey, pgErr.ConstraintName)

	// usernames are case-sensitive
	insertUser(t, r, "Alice", "Alice Upper", domain.RoleDriver)

	err = r.CreateMission(ctx, &domain.Mission{
		DriverID:            9999,
		MissionDate:         "2024-05-01",
		MissionTime:         "10:00",
		ServiceType:         "Tow",
		VehicleRegistration: "AA-111",
		VehicleModel:        "Clio",
		DepartureLocation:   "Rabat",
		ArrivalLocation:     "Casa",
	})
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, ConstraintMissionsDriverIDFkey, pgErr.ConstraintName)
}

func TestIntegrationUsers(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	admin := insertUser(t, r, "admin", "Administrator", domain.RoleAdmin)
	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	assert.True(t, alice.IsActive)

	users, err := r.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)
	assert.Equal(t, admin.ID, users[1].ID)

	alice.IsActive = false
	alice.FullName = "Alice Dupont"
	require.NoError(t, r.UpdateUser(ctx, alice))
	assert.Equal(t, "alice", alice.Username)

	_, err = r.GetActiveUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	got, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Dupont", got.FullName)
	assert.False(t, got.IsActive)

	require.NoError(t, r.UpdateUserPassword(ctx, alice.ID, "new-hash"))
	assert.ErrorIs(t, r.UpdateUserPassword(ctx, 9999, "new-hash"), sql.ErrNoRows)
}

func TestIntegrationStats(t *testing.T) {
	r := newIntegrationRepository(t)
	ctx := context.Background()

	insertUser(t, r, "admin", "Administrator", domain.RoleAdmin)
	alice := insertUser(t, r, "alice", "Alice Martin", domain.RoleDriver)
	insertMission(t, r, alice.ID, "2024-05-01", "10:00", "Tow", "AA-111")
	insertMission(t, r, alice.ID, "2024-05-01", "11:00", "Tow", "AA-112")
	last := insertMission(t, r, alice.ID, "2024-04-01", "11:00", "Ambulance", "AA-113")

	stats, err := r.GetStats(ctx, "2024-05-01", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalMissions)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.TodayMissions)
	assert.Equal(t, []domain.ServiceTypeCount{
		{ServiceType: "Tow", Count: 2},
		{ServiceType: "Ambulance", Count: 1},
	}, stats.MissionsByService)

	require.Len(t, stats.RecentMissions, 2)
	assert.Equal(t, last.ID, stats.RecentMissions[0].ID)
	assert.Equal(t, "Alice Martin", stats.RecentMissions[0].DriverName)
}
