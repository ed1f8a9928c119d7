package elevnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevdispatch"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Log = logger.GetLogger()

// FleetNetBroadcast periodically marshals the fleet status to JSON and
// writes it to a UDP socket, so external tooling can watch a running
// dispatcher without going through the REST layer.
type FleetNetBroadcast struct {
	broadcasting       bool                                //internal variable
	startStopCh        chan int                            //internal variable
	conn               *net.UDPConn                        //internal variable
	broadCastingPeriod time.Duration                       //internal variable
	metaData           *elevmetadata.FleetMetaData         //internal variable
	statusFn           func() elevdispatch.StatusSnapshot //internal variable
}

func NewFleetNetBroadcast(metaData *elevmetadata.FleetMetaData, statusFn func() elevdispatch.StatusSnapshot) *FleetNetBroadcast {
	return &FleetNetBroadcast{
		broadcasting: false,
		startStopCh:  make(chan int),
		metaData:     metaData,
		statusFn:     statusFn,
	}
}

func (fnb *FleetNetBroadcast) Start(broadcastPeriod time.Duration) error {
	if fnb.broadcasting {
		return errors.New("fleetBroadcast is already broadcasting")
	}
	if fnb.metaData == nil {
		return errors.New("metaData is nil")
	}
	if fnb.statusFn == nil {
		return errors.New("statusFn is nil")
	}
	fnb.broadCastingPeriod = broadcastPeriod

	udpAddress, err := net.ResolveUDPAddr("udp", fnb.metaData.GetIPAddressPort())
	if err != nil {
		return fmt.Errorf("error resolving UDP Address: %v", err)
	}

	fnb.conn, err = net.DialUDP("udp", nil, udpAddress)
	if err != nil {
		return fmt.Errorf("error creating UDP Socket: %v", err)
	}
	fnb.conn.SetWriteBuffer(BUFFER_LENGTH)

	go func() {
		timeTicker := time.NewTicker(fnb.broadCastingPeriod)
		defer timeTicker.Stop()
		defer fnb.conn.Close()
		fnb.broadcasting = true

		for {
			select {
			case <-timeTicker.C:
				frame := StatusFrame{Meta: *fnb.metaData, Status: fnb.statusFn()}
				jsonData, err := json.Marshal(frame)
				if err != nil {
					Log.Error().Msgf("Error marshalling JSON: %v", err)
					continue
				}
				_, err = fnb.conn.Write(jsonData)
				if err != nil {
					Log.Error().Msgf("Error writing to UDP Socket: %v", err)
				}

				Log.Debug().Msgf("Sent status frame (%d bytes)", len(jsonData))

			case val := <-fnb.startStopCh:
				if val == 0 {
					Log.Info().Msgf("Stopping Broadcasting task...")
					return
				}
			}
		}
	}()

	Log.Info().Msgf("Started to broadcast fleet status")

	return nil
}

func (fnb *FleetNetBroadcast) Stop() error {
	if !fnb.broadcasting {
		return errors.New("cannot stop broadcasting if FleetNetBroadcast is not broadcasting")
	}

	fnb.startStopCh <- 0
	fnb.broadcasting = false

	return nil
}
