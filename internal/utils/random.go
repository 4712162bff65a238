package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonFirstNames = []string{
	"Youssef", "Mohamed", "Ayoub", "Hamza", "Omar", "Karim", "Rachid", "Said",
	"Khalid", "Mehdi", "Anas", "Yassine", "Abdelaali", "Kamal", "Hicham", "Nabil",
	"Samir", "Adil", "Reda", "Imane", "Salma", "Fatima", "Khadija", "Sanae",
}
var commonLastNames = []string{
	"Alaoui", "Benali", "Bennani", "Cherkaoui", "El Idrissi", "Fassi", "Haddad",
	"Kettani", "Lahlou", "Mansouri", "Naciri", "Ouazzani", "Rami", "Sebti",
	"Tazi", "Zouadi", "Mouzouri", "Berrada", "Amrani", "Chraibi",
}

func GenerateRandomFullName() string {
	first := commonFirstNames[rand.Intn(len(commonFirstNames))]
	last := commonLastNames[rand.Intn(len(commonLastNames))]
	return first + " " + last
}

var digits = "0123456789"

// GenerateUsernameFromFullName builds "<first>.<last-initials><digits>" in lower case.
func GenerateUsernameFromFullName(fullName string) string {
	parts := strings.Fields(strings.ToLower(fullName))
	if len(parts) == 0 {
		return "driver"
	}

	username := parts[0]
	if len(parts) > 1 {
		username += "."
		for _, p := range parts[1:] {
			username += p[:1]
		}
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomDriver(password string, cost int) (*domain.User, error) {
	fullName := GenerateRandomFullName()
	username := GenerateUsernameFromFullName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Role:         domain.RoleDriver,
		IsActive:     true,
	}

	return user, nil
}

var serviceTypes = []string{"Remorquage", "Dépannage", "Ambulance", "Crevaison", "Batterie"}
var vehicleModels = []string{"Dacia Logan", "Renault Clio", "Peugeot 208", "Hyundai Accent", "Fiat Tipo", "Toyota Hilux", "Volkswagen Golf"}
var cities = []string{"Rabat", "Casablanca", "Salé", "Kénitra", "Témara", "Mohammedia", "Meknès", "Fès", "Tanger", "Marrakech"}
var observations = []string{"", "", "Client présent sur place", "Véhicule accidenté", "Accès difficile", "Autoroute A1, sortie 12"}

// GenerateRandomRegistration returns a plate shaped like "12345-A-6".
func GenerateRandomRegistration() string {
	letters := []string{"A", "B", "D", "H", "W"}
	return fmt.Sprintf("%05d-%s-%d", rand.Intn(100000), letters[rand.Intn(len(letters))], rand.Intn(90)+1)
}

// GenerateRandomMission returns an unsaved mission for driverID dated within
// the last 60 days of now.
func GenerateRandomMission(driverID int64, now time.Time) *domain.Mission {
	date := now.AddDate(0, 0, -rand.Intn(60))
	departure := cities[rand.Intn(len(cities))]
	arrival := cities[rand.Intn(len(cities))]
	for arrival == departure {
		arrival = cities[rand.Intn(len(cities))]
	}

	return &domain.Mission{
		DriverID:            driverID,
		MissionDate:         date.Format(time.DateOnly),
		MissionTime:         fmt.Sprintf("%02d:%02d", rand.Intn(24), rand.Intn(60)),
		ServiceType:         serviceTypes[rand.Intn(len(serviceTypes))],
		VehicleRegistration: GenerateRandomRegistration(),
		VehicleModel:        vehicleModels[rand.Intn(len(vehicleModels))],
		DepartureLocation:   departure,
		ArrivalLocation:     arrival,
		Observations:        observations[rand.Intn(len(observations))],
	}
}
