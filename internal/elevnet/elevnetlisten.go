package elevnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
)

// FleetNetListen decodes status frames broadcast by a dispatcher on the
// configured address.
type FleetNetListen struct {
	FramesFound chan StatusFrame //status frames seen on the network

	listening   bool                        //internal variable
	startStopCh chan int                    //internal variable
	conn        *net.UDPConn                //internal variable
	metaData    *elevmetadata.FleetMetaData //internal variable
}

func NewFleetNetListen(metaData *elevmetadata.FleetMetaData) *FleetNetListen {
	return &FleetNetListen{
		FramesFound: make(chan StatusFrame),
		listening:   false,
		startStopCh: make(chan int),
		conn:        nil,
		metaData:    metaData,
	}
}

func (fnl *FleetNetListen) Start() error {
	udpAddress, err := net.ResolveUDPAddr("udp", fnl.metaData.GetIPAddressPort())
	if err != nil {
		return fmt.Errorf("error resolving UDP Address: %v", err)
	}

	fnl.conn, err = net.ListenUDP("udp", udpAddress)
	if err != nil {
		return fmt.Errorf("error creating UDP Socket: %v", err)
	}
	listenBuffer := make([]byte, BUFFER_LENGTH)
	fnl.listening = true

	go func() {
		for {
			n, _, err := fnl.conn.ReadFromUDP(listenBuffer)
			if err != nil {
				Log.Error().Msgf("Error reading UDP message: %v", err)
				continue
			}
			var frame StatusFrame
			err = json.Unmarshal(listenBuffer[:n], &frame)
			if err != nil {
				Log.Error().Msgf("Error deserialising JSON: %v", err)
			} else {
				fnl.FramesFound <- frame
			}
		}
	}()

	go func() {
		defer fnl.conn.Close()
		for {
			select {
			case val := <-fnl.startStopCh:
				if val == 0 {
					Log.Info().Msgf("Stopping Listening task...")
					return
				}
			}
		}
	}()

	return nil
}

func (fnl *FleetNetListen) Stop() error {
	if !fnl.listening {
		return errors.New("cannot stop listening if FleetNetListen is not listening")
	}

	fnl.startStopCh <- 0
	fnl.listening = false

	return nil
}
