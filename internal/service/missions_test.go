package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMissionOwnedByCaller(t *testing.T) {
	f := newFixture(t)
	alice := f.createDriver(t, "alice", "Alice Martin")

	m, err := f.missions.Create(context.Background(), alice, validMission())
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, alice.UserID, m.DriverID)
	assert.Equal(t, "Alice Martin", m.DriverName)

	require.Len(t, f.notifier.missions, 1)
	assert.Equal(t, m.ID, f.notifier.missions[0].ID)
}

func TestCreateMissionSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	alice := f.createDriver(t, "alice", "Alice Martin")

	_, err := f.missions.Create(context.Background(), alice, validMission())
	assert.NoError(t, err)
}

func TestCreateMissionNormalizesInput(t *testing.T) {
	f := newFixture(t)
	alice := f.createDriver(t, "alice", "Alice Martin")

	in := validMission()
	in.MissionTime = "9:05"
	in.VehicleModel = "  Clio  "

	m, err := f.missions.Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.Equal(t, "09:05", m.MissionTime)
	assert.Equal(t, "Clio", m.VehicleModel)
}

func TestCreateMissionValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.createDriver(t, "alice", "Alice Martin")

	cases := map[string]func(in *domain.MissionInput){
		"missionDate":         func(in *domain.MissionInput) { in.MissionDate = "2024-02-30" },
		"missionTime":         func(in *domain.MissionInput) { in.MissionTime = "24:00" },
		"serviceType":         func(in *domain.MissionInput) { in.ServiceType = "T" },
		"vehicleRegistration": func(in *domain.MissionInput) { in.VehicleRegistration = " " },
		"vehicleModel":        func(in *domain.MissionInput) { in.VehicleModel = "" },
		"departureLocation":   func(in *domain.MissionInput) { in.DepartureLocation = "Ra" },
		"arrivalLocation":     func(in *domain.MissionInput) { in.ArrivalLocation = "Ca" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validMission()
			mutate(&in)

			_, err := f.missions.Create(context.Background(), alice, in)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, field, verr.Fields[0].Field)
		})
	}
}

func TestDriversOnlySeeTheirOwnMissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")
	bob := f.createDriver(t, "bobby", "Bob Stone")

	aliceMission, err := f.missions.Create(ctx, alice, validMission())
	require.NoError(t, err)
	bobMission, err := f.missions.Create(ctx, bob, validMission())
	require.NoError(t, err)

	list, err := f.missions.List(ctx, alice, domain.MissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aliceMission.ID, list[0].ID)

	// a client supplied driver scope never widens visibility
	bobID := bob.UserID
	list, err = f.missions.List(ctx, alice, domain.MissionFilter{DriverID: &bobID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alice.UserID, list[0].DriverID)

	_, err = f.missions.Get(ctx, alice, bobMission.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.missions.Get(ctx, alice, aliceMission.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Martin", got.DriverName)

	all, err := f.missions.List(ctx, f.admin, domain.MissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListFiltersAreConjunctive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")

	a := validMission()
	a.MissionDate = "2024-01-01"
	a.ServiceType = "Tow"
	_, err := f.missions.Create(ctx, alice, a)
	require.NoError(t, err)

	b := validMission()
	b.MissionDate = "2024-02-01"
	b.ServiceType = "Ambulance"
	missionB, err := f.missions.Create(ctx, alice, b)
	require.NoError(t, err)

	list, err := f.missions.List(ctx, f.admin, domain.MissionFilter{StartDate: "2024-01-15"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, missionB.ID, list[0].ID)

	list, err = f.missions.List(ctx, f.admin, domain.MissionFilter{StartDate: "2024-01-15", ServiceType: "Ambulance"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, missionB.ID, list[0].ID)

	list, err = f.missions.List(ctx, f.admin, domain.MissionFilter{StartDate: "2024-01-15", ServiceType: "Tow"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListSearchAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")
	bob := f.createDriver(t, "bobby", "Bob Stone")

	early := validMission()
	early.MissionTime = "08:00"
	_, err := f.missions.Create(ctx, alice, early)
	require.NoError(t, err)

	late := validMission()
	late.MissionTime = "18:00"
	_, err = f.missions.Create(ctx, alice, late)
	require.NoError(t, err)

	other := validMission()
	other.MissionDate = "2024-04-01"
	other.VehicleModel = "Peugeot 208"
	_, err = f.missions.Create(ctx, bob, other)
	require.NoError(t, err)

	list, err := f.missions.List(ctx, f.admin, domain.MissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "18:00", list[0].MissionTime)
	assert.Equal(t, "08:00", list[1].MissionTime)
	assert.Equal(t, "2024-04-01", list[2].MissionDate)

	list, err = f.missions.List(ctx, f.admin, domain.MissionFilter{Search: "peugeot"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// the driver's name is searchable too
	list, err = f.missions.List(ctx, f.admin, domain.MissionFilter{Search: "STONE"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.UserID, list[0].DriverID)
}

func TestListRejectsMalformedDates(t *testing.T) {
	f := newFixture(t)

	_, err := f.missions.List(context.Background(), f.admin, domain.MissionFilter{EndDate: "01/02/2024"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate", verr.Fields[0].Field)
}

func TestUpdateMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")

	m, err := f.missions.Create(ctx, alice, validMission())
	require.NoError(t, err)

	in := validMission()
	in.ServiceType = "Ambulance"
	in.Observations = "moved to the hospital"

	_, err = f.missions.Update(ctx, alice, m.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.missions.Update(ctx, f.admin, m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Ambulance", updated.ServiceType)
	assert.Equal(t, alice.UserID, updated.DriverID)
	assert.Equal(t, "Alice Martin", updated.DriverName)
	assert.True(t, updated.UpdatedAt.After(m.CreatedAt))

	_, err = f.missions.Update(ctx, f.admin, 999, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createDriver(t, "alice", "Alice Martin")

	m, err := f.missions.Create(ctx, alice, validMission())
	require.NoError(t, err)

	assert.ErrorIs(t, f.missions.Delete(ctx, alice, m.ID), domain.ErrForbidden)
	require.NoError(t, f.missions.Delete(ctx, f.admin, m.ID))
	assert.ErrorIs(t, f.missions.Delete(ctx, f.admin, m.ID), domain.ErrNotFound)
}

func TestExportCSVWithoutMissionsIsHeaderOnly(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, f.missions.ExportCSV(context.Background(), f.admin, &buf))

	assert.Equal(t, strings.Join(export.MissionColumns, ",")+"\n", buf.String())
	assert.Len(t, export.MissionColumns, 11)
}

func TestExportCSVRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.createDriver(t, "alice", "Alice Martin")

	var buf bytes.Buffer
	err := f.missions.ExportCSV(context.Background(), alice, &buf)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, buf.Len())
}
