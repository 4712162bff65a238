package domain

type ServiceTypeCount struct {
	ServiceType string `json:"service_type"`
	Count       int64  `json:"count"`
}

// Stats is the admin dashboard summary, read from a single snapshot.
type Stats struct {
	TotalMissions     int64              `json:"totalMissions"`
	TotalUsers        int64              `json:"totalDrivers"` // every account, whatever the role
	TodayMissions     int64              `json:"todayMissions"`
	MissionsByService []ServiceTypeCount `json:"missionsByService"`
	RecentMissions    []*Mission         `json:"recentMissions"`
}
