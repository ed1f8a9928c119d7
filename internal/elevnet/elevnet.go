package elevnet

import (
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevdispatch"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Logger = logger.GetLogger()

const (
	BUFFER_LENGTH = 8192 //for receiving and transmitting
)

// StatusFrame is what goes over the wire: the run metadata plus the current
// fleet status snapshot.
type StatusFrame struct {
	Meta   elevmetadata.FleetMetaData  `json:"meta"`
	Status elevdispatch.StatusSnapshot `json:"status"`
}

// FleetNetwork bundles the periodic status broadcaster and the matching
// listener.
type FleetNetwork struct {
	Broadcast *FleetNetBroadcast
	Listen    *FleetNetListen
}

func NewFleetNetwork(meta *elevmetadata.FleetMetaData, statusFn func() elevdispatch.StatusSnapshot) *FleetNetwork {
	return &FleetNetwork{
		Broadcast: NewFleetNetBroadcast(meta, statusFn),
		Listen:    NewFleetNetListen(meta),
	}
}
