package domain

import "time"

// Mission is one logged towing or assistance job, owned by the driver who submitted it.
type Mission struct {
	ID                  int64     `json:"id"`
	DriverID            int64     `json:"driver_id"`
	MissionDate         string    `json:"mission_date"`
	MissionTime         string    `json:"mission_time"`
	ServiceType         string    `json:"service_type"`
	VehicleRegistration string    `json:"vehicle_registration"`
	VehicleModel        string    `json:"vehicle_model"`
	DepartureLocation   string    `json:"departure_location"`
	ArrivalLocation     string    `json:"arrival_location"`
	Observations        string    `json:"observations"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// joined from users
	DriverName     string `json:"driver_name"`
	DriverUsername string `json:"driver_username"`
}

// MissionInput holds the mutable fields of a mission, shared by create and update.
type MissionInput struct {
	MissionDate         string `json:"missionDate" validate:"isodate"`
	MissionTime         string `json:"missionTime" validate:"hhmm"`
	ServiceType         string `json:"serviceType" validate:"min=2"`
	VehicleRegistration string `json:"vehicleRegistration" validate:"min=2"`
	VehicleModel        string `json:"vehicleModel" validate:"min=2"`
	DepartureLocation   string `json:"departureLocation" validate:"min=3"`
	ArrivalLocation     string `json:"arrivalLocation" validate:"min=3"`
	Observations        string `json:"observations"`
}

// Apply copies the input onto m. DriverID, ID and timestamps are left untouched.
func (in *MissionInput) Apply(m *Mission) {
	m.MissionDate = in.MissionDate
	m.MissionTime = in.MissionTime
	m.ServiceType = in.ServiceType
	m.VehicleRegistration = in.VehicleRegistration
	m.VehicleModel = in.VehicleModel
	m.DepartureLocation = in.DepartureLocation
	m.ArrivalLocation = in.ArrivalLocation
	m.Observations = in.Observations
}

// MissionFilter narrows a mission query. Every set field must match.
type MissionFilter struct {
	DriverID    *int64
	Search      string
	StartDate   string `json:"startDate" validate:"omitempty,isodate"`
	EndDate     string `json:"endDate" validate:"omitempty,isodate"`
	ServiceType string
}

// Merge returns f restricted by the visibility predicate v. The driver scope
// always comes from v so a client filter can never widen it.
func (f MissionFilter) Merge(v MissionFilter) MissionFilter {
	f.DriverID = v.DriverID
	return f
}
