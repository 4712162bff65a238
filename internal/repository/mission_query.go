package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

const missionSelect = `
		SELECT
			m.id,
			m.driver_id,
			m.mission_date,
			m.mission_time,
			m.service_type,
			m.vehicle_registration,
			m.vehicle_model,
			m.departure_location,
			m.arrival_location,
			m.observations,
			m.created_at,
			m.updated_at,
			u.full_name,
			u.username
		FROM missions m
		JOIN users u ON u.id = m.driver_id`

const missionOrder = `
		ORDER BY m.mission_date DESC, m.mission_time DESC, m.id DESC`

// missionQuery builds the WHERE clause of a mission SELECT. The driver scope of
// the filter is part of the SQL itself, so rows another driver owns are never read.
type missionQuery struct {
	conds []string
	args  []any
}

func newMissionQuery(f domain.MissionFilter) *missionQuery {
	q := &missionQuery{}

	if f.DriverID != nil {
		q.where("m.driver_id = " + q.arg(*f.DriverID))
	}
	if f.Search != "" {
		p := q.arg("%" + escapeLike(f.Search) + "%")
		q.where(fmt.Sprintf(
			"(m.vehicle_registration ILIKE %[1]s OR m.vehicle_model ILIKE %[1]s OR m.departure_location ILIKE %[1]s OR m.arrival_location ILIKE %[1]s OR u.full_name ILIKE %[1]s)",
			p,
		))
	}
	if f.StartDate != "" {
		q.where("m.mission_date >= " + q.arg(f.StartDate) + "::date")
	}
	if f.EndDate != "" {
		q.where("m.mission_date <= " + q.arg(f.EndDate) + "::date")
	}
	if f.ServiceType != "" {
		q.where("m.service_type = " + q.arg(f.ServiceType))
	}

	return q
}

// arg appends v and returns its placeholder.
func (q *missionQuery) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *missionQuery) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *missionQuery) String() string {
	var b strings.Builder
	b.WriteString(missionSelect)
	if len(q.conds) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(q.conds, "\n\t\t\tAND "))
	}
	return b.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a search term match literally inside ILIKE.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
