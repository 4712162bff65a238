package service

import (
	"context"
	"testing"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")

	services := []string{"Tow", "Ambulance", "Tow", "Battery", "Tow", "Ambulance"}
	ids := make([]int64, 0, len(services))
	for i, s := range services {
		in := validMission()
		in.ServiceType = s
		if i%2 == 1 {
			in.MissionDate = "2024-04-30"
		}
		m, err := f.missions.Create(ctx, alice, in)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	stats, err := f.stats.Dashboard(ctx, f.admin)
	require.NoError(t, err)

	assert.Equal(t, int64(6), stats.TotalMissions)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TodayMissions)
	assert.Equal(t, []domain.ServiceTypeCount{
		{ServiceType: "Tow", Count: 3},
		{ServiceType: "Ambulance", Count: 2},
		{ServiceType: "Battery", Count: 1},
	}, stats.MissionsByService)

	require.Len(t, stats.RecentMissions, 5)
	assert.Equal(t, ids[5], stats.RecentMissions[0].ID)
	assert.Equal(t, ids[1], stats.RecentMissions[4].ID)
	assert.Equal(t, "Alice Martin", stats.RecentMissions[0].DriverName)
}

func TestDashboardRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.createDriver(t, "alice", "Alice Martin")

	_, err := f.stats.Dashboard(context.Background(), alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
