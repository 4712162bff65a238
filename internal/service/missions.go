package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/export"
	"github.com/roadside-ops/mission-log/backend/internal/metrics"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
)

type MissionService struct {
	missions  MissionStore
	notifier  Notifier
	validator *utils.Validator
}

// NewMissionService builds the mission service. notifier may be nil.
func NewMissionService(missions MissionStore, notifier Notifier, validator *utils.Validator) *MissionService {
	return &MissionService{
		missions:  missions,
		notifier:  notifier,
		validator: validator,
	}
}

// Create records a mission owned by the caller.
func (s *MissionService) Create(ctx context.Context, caller *domain.Identity, in domain.MissionInput) (*domain.Mission, error) {
	if err := domain.Authorize(caller, domain.CapabilityDriver); err != nil {
		return nil, err
	}

	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	m := &domain.Mission{
		DriverID:       caller.UserID,
		DriverName:     caller.FullName,
		DriverUsername: caller.Username,
	}
	in.Apply(m)

	if err := s.missions.CreateMission(ctx, m); err != nil {
		return nil, storeError("create mission", err)
	}
	metrics.MissionsCreatedTotal.Inc()

	if s.notifier != nil {
		if err := s.notifier.MissionSubmitted(ctx, m); err != nil {
			slog.Error("failed to publish mission notification", "missionId", m.ID, "error", err)
		}
	}

	return m, nil
}

// List returns the missions the caller may see that match filter.
func (s *MissionService) List(ctx context.Context, caller *domain.Identity, filter domain.MissionFilter) ([]*domain.Mission, error) {
	if err := domain.Authorize(caller, domain.CapabilityDriver); err != nil {
		return nil, err
	}

	filter.Search = strings.TrimSpace(filter.Search)
	filter.StartDate = strings.TrimSpace(filter.StartDate)
	filter.EndDate = strings.TrimSpace(filter.EndDate)
	filter.ServiceType = strings.TrimSpace(filter.ServiceType)
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	missions, err := s.missions.ListMissions(ctx, filter.Merge(domain.VisibleTo(*caller)))
	if err != nil {
		return nil, storeError("list missions", err)
	}

	return missions, nil
}

// Get returns mission id. A mission the caller may not see is reported as
// domain.ErrNotFound, exactly like a missing one.
func (s *MissionService) Get(ctx context.Context, caller *domain.Identity, id int64) (*domain.Mission, error) {
	if err := domain.Authorize(caller, domain.CapabilityDriver); err != nil {
		return nil, err
	}

	m, err := s.missions.GetMission(ctx, id, domain.VisibleTo(*caller))
	if err != nil {
		return nil, storeError("get mission", err)
	}

	return m, nil
}

// Update replaces every mutable field of mission id.
func (s *MissionService) Update(ctx context.Context, caller *domain.Identity, id int64, in domain.MissionInput) (*domain.Mission, error) {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	m := &domain.Mission{ID: id}
	in.Apply(m)

	if err := s.missions.UpdateMission(ctx, m); err != nil {
		return nil, storeError("update mission", err)
	}

	return m, nil
}

func (s *MissionService) Delete(ctx context.Context, caller *domain.Identity, id int64) error {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return err
	}

	if err := s.missions.DeleteMission(ctx, id); err != nil {
		return storeError("delete mission", err)
	}

	return nil
}

// ExportCSV writes every mission to w as CSV.
func (s *MissionService) ExportCSV(ctx context.Context, caller *domain.Identity, w io.Writer) error {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return err
	}

	missions, err := s.missions.ListMissions(ctx, domain.MissionFilter{})
	if err != nil {
		return storeError("list missions", err)
	}

	return export.WriteMissionsCSV(w, missions)
}

func (s *MissionService) validateInput(in *domain.MissionInput) error {
	utils.TrimMissionInput(in)
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	in.MissionTime = utils.NormalizeMissionTime(in.MissionTime)
	return nil
}
