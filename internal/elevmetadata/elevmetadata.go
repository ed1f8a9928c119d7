package elevmetadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xyproto/randomstring"

	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Log = logger.GetLogger()

const IDENTIFIER_DEFAULT_LEN = 10

// FleetMetaData identifies one dispatcher run: a stable identifier chosen by
// the operator plus a fresh run id per process start.
type FleetMetaData struct {
	SoftwareVersion string    `json:"software_version"`
	IpAddress       string    `json:"ip_address"`
	PortNumber      uint16    `json:"port_number"`
	Identifier      string    `json:"identifier"`
	RunID           uuid.UUID `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
}

// New fills in the run id and start time. A blank identifier gets a random
// one, like an unnamed elevator would.
func New(identifier, softwareVersion, ipAddress string, portNumber uint16) *FleetMetaData {
	if identifier == "" {
		identifier = randomstring.EnglishFrequencyString(IDENTIFIER_DEFAULT_LEN)
		Log.Warn().Msgf("No fleet identifier provided, generated random identifier %q", identifier)
	}
	return &FleetMetaData{
		SoftwareVersion: softwareVersion,
		IpAddress:       ipAddress,
		PortNumber:      portNumber,
		Identifier:      identifier,
		RunID:           uuid.New(),
		StartedAt:       time.Now(),
	}
}

func (m *FleetMetaData) String() string {
	jsonData, err := json.Marshal(m)
	if err != nil {
		Log.Error().Msg("Error serialising FleetMetaData object to JSON")
		return ""
	}
	return string(jsonData)
}

func (m *FleetMetaData) GetIPAddressPort() string {
	return fmt.Sprintf("%s:%d", m.IpAddress, m.PortNumber)
}
