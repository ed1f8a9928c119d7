package elevconsts

import "time"

const (
	DEFAULT_N_FLOORS   = 20
	DEFAULT_LOBBY      = 1
	DEFAULT_CAPACITY   = 8
	FREIGHT_CAPACITY   = 20
	EXPRESS_BAND_START = 15

	DEFAULT_FLOOR_TRAVEL_TIME    = 150 * time.Millisecond
	DEFAULT_DOOR_TRANSITION_TIME = 100 * time.Millisecond
	DEFAULT_DOOR_DWELL_TIME      = 200 * time.Millisecond
	DEFAULT_POLL_INTERVAL        = 30 * time.Millisecond
	DEFAULT_IDLE_WAIT            = 20 * time.Millisecond

	// A pending request that survives this many scheduling cycles without an
	// eligible worker is dropped and surfaced as unassignable.
	MAX_ASSIGN_ATTEMPTS = 200
)

type Direction int

const (
	Down Direction = -1
	Stop Direction = 0
	Up   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Stop:
		return "Stop"
	default:
		return "Undefined"
	}
}

type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	default:
		return "Undefined"
	}
}

type ElevatorType int

const (
	Local ElevatorType = iota
	Express
	Freight
)

func (t ElevatorType) String() string {
	switch t {
	case Local:
		return "Local"
	case Express:
		return "Express"
	case Freight:
		return "Freight"
	default:
		return "Undefined"
	}
}

type ElevatorState int

const (
	Idle ElevatorState = iota
	MovingUp
	MovingDown
	DoorOpening
	DoorOpen
	DoorClosing
)

func (s ElevatorState) String() string {
	switch s {
	case Idle:
		return "ES_Idle"
	case MovingUp:
		return "ES_MovingUp"
	case MovingDown:
		return "ES_MovingDown"
	case DoorOpening:
		return "ES_DoorOpening"
	case DoorOpen:
		return "ES_DoorOpen"
	case DoorClosing:
		return "ES_DoorClosing"
	default:
		return "ES_UNDEFINED"
	}
}

type Algorithm int

const (
	AlgorithmNearest Algorithm = iota
	AlgorithmScan
	AlgorithmLook
	AlgorithmCustom
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNearest:
		return "nearest"
	case AlgorithmScan:
		return "scan"
	case AlgorithmLook:
		return "look"
	case AlgorithmCustom:
		return "custom"
	default:
		return "undefined"
	}
}

// ParseAlgorithm maps a configuration string to an Algorithm value.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "nearest":
		return AlgorithmNearest, true
	case "scan":
		return AlgorithmScan, true
	case "look":
		return AlgorithmLook, true
	case "custom":
		return AlgorithmCustom, true
	default:
		return AlgorithmNearest, false
	}
}
