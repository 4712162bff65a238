package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/storetest"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []int64
}

func (r *fakeRevoker) RevokeUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, userID)
	return nil
}

type fakeNotifier struct {
	missions []*domain.Mission
	err      error
}

func (n *fakeNotifier) MissionSubmitted(ctx context.Context, m *domain.Mission) error {
	n.missions = append(n.missions, m)
	return n.err
}

type fixture struct {
	store    *storetest.Store
	revoker  *fakeRevoker
	notifier *fakeNotifier
	auth     *AuthService
	users    *UserService
	missions *MissionService
	stats    *StatsService
	admin    *domain.Identity
}

var today = time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := utils.NewValidator()
	require.NoError(t, err)

	store := storetest.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &domain.User{
		Username:     "admin",
		PasswordHash: string(hash),
		FullName:     "Administrator",
		Role:         domain.RoleAdmin,
	}
	require.NoError(t, store.CreateUser(context.Background(), admin))

	auth, err := NewAuthService(store, v, bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		revoker:  &fakeRevoker{},
		notifier: &fakeNotifier{},
		auth:     auth,
	}
	f.users = NewUserService(store, f.revoker, v, UserServiceConfig{
		HashCost:          bcrypt.MinCost,
		MinPasswordLength: 6,
		ProtectedUsername: "admin",
	})
	f.missions = NewMissionService(store, f.notifier, v)
	f.stats = NewStatsService(store, func() time.Time { return today })

	identity := admin.Identity()
	f.admin = &identity

	return f
}

// createDriver creates a driver through the admin service and returns its identity.
func (f *fixture) createDriver(t *testing.T, username, fullName string) *domain.Identity {
	t.Helper()

	user, err := f.users.Create(context.Background(), f.admin, domain.CreateUserInput{
		Username: username,
		Password: "secret1",
		FullName: fullName,
		Role:     string(domain.RoleDriver),
	})
	require.NoError(t, err)

	identity := user.Identity()
	return &identity
}

func validMission() domain.MissionInput {
	return domain.MissionInput{
		MissionDate:         "2024-05-01",
		MissionTime:         "14:30",
		ServiceType:         "Tow",
		VehicleRegistration: "AB-123",
		VehicleModel:        "Clio",
		DepartureLocation:   "Rabat",
		ArrivalLocation:     "Casa",
	}
}
