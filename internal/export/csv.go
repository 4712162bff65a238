// Package export serializes missions for download.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

var MissionColumns = []string{
	"ID",
	"Date",
	"Time",
	"Driver",
	"Service Type",
	"Vehicle Registration",
	"Vehicle Model",
	"Departure",
	"Arrival",
	"Observations",
	"Created At",
}

const createdAtLayout = "2006-01-02 15:04:05"

// WriteMissionsCSV writes the header and one row per mission. Free-text columns
// are always quoted and embedded quotes are doubled, as RFC 4180 requires.
func WriteMissionsCSV(w io.Writer, missions []*domain.Mission) error {
	bw := bufio.NewWriter(w)

	writeRow(bw, MissionColumns)
	for _, m := range missions {
		writeRow(bw, []string{
			strconv.FormatInt(m.ID, 10),
			m.MissionDate,
			m.MissionTime,
			quote(m.DriverName),
			quote(m.ServiceType),
			quote(m.VehicleRegistration),
			quote(m.VehicleModel),
			quote(m.DepartureLocation),
			quote(m.ArrivalLocation),
			quote(m.Observations),
			m.CreatedAt.UTC().Format(createdAtLayout),
		})
	}

	// bufio keeps the first write error and reports it here
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, fields []string) {
	_, _ = bw.WriteString(strings.Join(fields, ","))
	_ = bw.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
