package domain

const MailTypeMissionSubmitted = "mission_submitted"

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type MissionSubmittedMailData struct {
	MissionID           int64  `json:"missionId"`
	DriverName          string `json:"driverName"`
	MissionDate         string `json:"missionDate"`
	MissionTime         string `json:"missionTime"`
	ServiceType         string `json:"serviceType"`
	VehicleRegistration string `json:"vehicleRegistration"`
	VehicleModel        string `json:"vehicleModel"`
	DepartureLocation   string `json:"departureLocation"`
	ArrivalLocation     string `json:"arrivalLocation"`
	Observations        string `json:"observations"`
}
