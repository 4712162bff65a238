// Package storetest provides an in-memory stand-in for the PostgreSQL
// repository. It reports failures with the same errors the driver produces,
// so services behave as they would against the real database.
package storetest

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	clock         time.Time
	nextUserID    int64
	nextMissionID int64
	users         map[int64]*domain.User
	missions      map[int64]*domain.Mission
}

func New() *Store {
	return &Store{
		clock:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		users:    make(map[int64]*domain.User),
		missions: make(map[int64]*domain.Mission),
	}
}

// tick advances the store clock by one second so creation order is strict.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return uniqueViolation(repository.ConstraintUsersUsernameKey)
		}
	}

	s.nextUserID++
	now := s.tick()
	user.ID = s.nextUserID
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetActiveUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.FullName = user.FullName
	u.Role = user.Role
	u.IsActive = user.IsActive
	u.UpdatedAt = s.tick()

	user.Username = u.Username
	user.CreatedAt = u.CreatedAt
	user.UpdatedAt = u.UpdatedAt
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.tick()
	return nil
}

func (s *Store) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (s *Store) CreateMission(ctx context.Context, m *domain.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, ok := s.users[m.DriverID]
	if !ok {
		return foreignKeyViolation(repository.ConstraintMissionsDriverIDFkey)
	}

	s.nextMissionID++
	now := s.tick()
	m.ID = s.nextMissionID
	m.CreatedAt = now
	m.UpdatedAt = now

	stored := *m
	stored.DriverName = driver.FullName
	stored.DriverUsername = driver.Username
	s.missions[m.ID] = &stored
	return nil
}

// joined returns a copy of m with the current driver columns.
func (s *Store) joined(m *domain.Mission) *domain.Mission {
	cp := *m
	if u, ok := s.users[m.DriverID]; ok {
		cp.DriverName = u.FullName
		cp.DriverUsername = u.Username
	}
	return &cp
}

func (s *Store) matches(m *domain.Mission, f domain.MissionFilter) bool {
	if f.DriverID != nil && m.DriverID != *f.DriverID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, v := range []string{m.VehicleRegistration, m.VehicleModel, m.DepartureLocation, m.ArrivalLocation, m.DriverName} {
			if strings.Contains(strings.ToLower(v), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StartDate != "" && m.MissionDate < f.StartDate {
		return false
	}
	if f.EndDate != "" && m.MissionDate > f.EndDate {
		return false
	}
	if f.ServiceType != "" && m.ServiceType != f.ServiceType {
		return false
	}
	return true
}

func (s *Store) ListMissions(ctx context.Context, filter domain.MissionFilter) ([]*domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	missions := make([]*domain.Mission, 0)
	for _, stored := range s.missions {
		m := s.joined(stored)
		if s.matches(m, filter) {
			missions = append(missions, m)
		}
	}
	sort.Slice(missions, func(i, j int) bool {
		a, b := missions[i], missions[j]
		if a.MissionDate != b.MissionDate {
			return a.MissionDate > b.MissionDate
		}
		if a.MissionTime != b.MissionTime {
			return a.MissionTime > b.MissionTime
		}
		return a.ID > b.ID
	})
	return missions, nil
}

func (s *Store) GetMission(ctx context.Context, id int64, filter domain.MissionFilter) (*domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.missions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m := s.joined(stored)
	if !s.matches(m, filter) {
		return nil, sql.ErrNoRows
	}
	return m, nil
}

func (s *Store) UpdateMission(ctx context.Context, m *domain.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.missions[m.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.MissionDate = m.MissionDate
	stored.MissionTime = m.MissionTime
	stored.ServiceType = m.ServiceType
	stored.VehicleRegistration = m.VehicleRegistration
	stored.VehicleModel = m.VehicleModel
	stored.DepartureLocation = m.DepartureLocation
	stored.ArrivalLocation = m.ArrivalLocation
	stored.Observations = m.Observations
	stored.UpdatedAt = s.tick()

	joined := s.joined(stored)
	m.DriverID = joined.DriverID
	m.CreatedAt = joined.CreatedAt
	m.UpdatedAt = joined.UpdatedAt
	m.DriverName = joined.DriverName
	m.DriverUsername = joined.DriverUsername
	return nil
}

func (s *Store) DeleteMission(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.missions, id)
	return nil
}

func (s *Store) GetStats(ctx context.Context, today string, recentLimit int) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.Stats{
		TotalMissions:     int64(len(s.missions)),
		TotalUsers:        int64(len(s.users)),
		MissionsByService: make([]domain.ServiceTypeCount, 0),
		RecentMissions:    make([]*domain.Mission, 0),
	}

	counts := make(map[string]int64)
	all := make([]*domain.Mission, 0, len(s.missions))
	for _, stored := range s.missions {
		if stored.MissionDate == today {
			stats.TodayMissions++
		}
		counts[stored.ServiceType]++
		all = append(all, s.joined(stored))
	}

	for serviceType, n := range counts {
		stats.MissionsByService = append(stats.MissionsByService, domain.ServiceTypeCount{ServiceType: serviceType, Count: n})
	}
	sort.Slice(stats.MissionsByService, func(i, j int) bool {
		a, b := stats.MissionsByService[i], stats.MissionsByService[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ServiceType < b.ServiceType
	})

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > recentLimit {
		all = all[:recentLimit]
	}
	stats.RecentMissions = append(stats.RecentMissions, all...)

	return stats, nil
}
