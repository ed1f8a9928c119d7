package elevator

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xyproto/randomstring"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconf"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

// Elevator is one simulated car. The floor/state pair and the two orthogonal
// flags are only touched under mu: the owning worker loop mutates them and the
// scoring pass reads them through Snapshot. Simulated delays are slept outside
// the lock so status queries never stall behind a moving car.
type Elevator struct {
	mu sync.Mutex

	label        string
	minFloor     int
	maxFloor     int
	currentFloor int
	state        elevconsts.ElevatorState
	elevType     elevconsts.ElevatorType
	servedFloors map[int]bool
	capacity     int

	inMaintenance   bool
	inEmergencyStop bool

	floorTravelTime    time.Duration
	doorTransitionTime time.Duration
	doorDwellTime      time.Duration

	log zerolog.Logger
}

// Snapshot is a read-only copy of the mutable car state, taken under the
// car's lock. Scoring works exclusively on snapshots.
type Snapshot struct {
	Label         string
	Floor         int
	State         elevconsts.ElevatorState
	Type          elevconsts.ElevatorType
	Capacity      int
	Maintenance   bool
	EmergencyStop bool
}

// New builds one car from its descriptor. A blank label gets a random one,
// matching the fleet identifier fallback.
func New(ec elevconf.ElevatorConfig, cfg elevconf.SystemConfig) *Elevator {
	label := ec.Label
	if label == "" {
		label = randomstring.EnglishFrequencyString(6)
	}
	return &Elevator{
		label:              label,
		minFloor:           cfg.MinFloor,
		maxFloor:           cfg.MaxFloor,
		currentFloor:       ec.InitialFloor,
		state:              elevconsts.Idle,
		elevType:           ec.Type,
		servedFloors:       ec.ServedFloors,
		capacity:           ec.Capacity,
		floorTravelTime:    cfg.FloorTravelTime,
		doorTransitionTime: cfg.DoorTransitionTime,
		doorDwellTime:      cfg.DoorDwellTime,
		log:                logger.ForWorker(label),
	}
}

func (e *Elevator) Label() string { return e.label }

func (e *Elevator) Type() elevconsts.ElevatorType { return e.elevType }

func (e *Elevator) Capacity() int { return e.capacity }

// ServedFloors returns the restricted floor set, or nil when unrestricted.
func (e *Elevator) ServedFloors() map[int]bool { return e.servedFloors }

// CanServeFloor reports whether the car may stop at floor.
func (e *Elevator) CanServeFloor(floor int) bool {
	if e.servedFloors == nil {
		return true
	}
	return e.servedFloors[floor]
}

func (e *Elevator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Label:         e.label,
		Floor:         e.currentFloor,
		State:         e.state,
		Type:          e.elevType,
		Capacity:      e.capacity,
		Maintenance:   e.inMaintenance,
		EmergencyStop: e.inEmergencyStop,
	}
}

// CurrentFloor returns the floor last reached.
func (e *Elevator) CurrentFloor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentFloor
}

// Available reports whether the car may be considered by scoring at all.
func (e *Elevator) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.inMaintenance && !e.inEmergencyStop
}

// MoveUp advances the car one floor upward, holding the simulated per-floor
// travel time. A started step always runs to completion; callers check for
// cancellation between steps.
func (e *Elevator) MoveUp() error {
	return e.move(elevconsts.Up)
}

// MoveDown advances the car one floor downward.
func (e *Elevator) MoveDown() error {
	return e.move(elevconsts.Down)
}

func (e *Elevator) move(dir elevconsts.Direction) error {
	e.mu.Lock()
	if e.inMaintenance || e.inEmergencyStop {
		e.mu.Unlock()
		return fmt.Errorf("%s: movement blocked (maintenance=%v, emergencyStop=%v)",
			e.label, e.inMaintenance, e.inEmergencyStop)
	}
	if dir == elevconsts.Up && e.currentFloor >= e.maxFloor {
		e.mu.Unlock()
		return fmt.Errorf("%s: already at top floor %d", e.label, e.maxFloor)
	}
	if dir == elevconsts.Down && e.currentFloor <= e.minFloor {
		e.mu.Unlock()
		return fmt.Errorf("%s: already at bottom floor %d", e.label, e.minFloor)
	}
	if dir == elevconsts.Up {
		e.state = elevconsts.MovingUp
	} else {
		e.state = elevconsts.MovingDown
	}
	e.mu.Unlock()

	time.Sleep(e.floorTravelTime)

	e.mu.Lock()
	e.currentFloor += int(dir)
	e.state = e.restingState()
	floor := e.currentFloor
	e.mu.Unlock()

	e.log.Debug().Msgf("Reached floor %d", floor)
	return nil
}

// OpenDoor runs the opening transition and holds the door fully open for the
// configured dwell time.
func (e *Elevator) OpenDoor() {
	e.setState(elevconsts.DoorOpening)
	time.Sleep(e.doorTransitionTime)
	e.setState(elevconsts.DoorOpen)
	time.Sleep(e.doorDwellTime)
}

// CloseDoor runs the closing transition and returns the car to rest.
func (e *Elevator) CloseDoor() {
	e.setState(elevconsts.DoorClosing)
	time.Sleep(e.doorTransitionTime)
	e.mu.Lock()
	e.state = e.restingState()
	e.mu.Unlock()
}

func (e *Elevator) setState(s elevconsts.ElevatorState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// restingState must be called with mu held.
func (e *Elevator) restingState() elevconsts.ElevatorState {
	return elevconsts.Idle
}

// EnterMaintenance takes the car out of dispatch without touching the
// emergency flag.
func (e *Elevator) EnterMaintenance() {
	e.mu.Lock()
	e.inMaintenance = true
	e.mu.Unlock()
	e.log.Warn().Msg("Entering maintenance")
}

// ExitMaintenance clears the maintenance flag. The car returns to Idle only
// if the emergency flag is also clear.
func (e *Elevator) ExitMaintenance() {
	e.mu.Lock()
	e.inMaintenance = false
	if !e.inEmergencyStop {
		e.state = elevconsts.Idle
	}
	e.mu.Unlock()
	e.log.Info().Msg("Exiting maintenance")
}

// ToggleMaintenance flips the maintenance flag and returns the new value.
func (e *Elevator) ToggleMaintenance() bool {
	e.mu.Lock()
	active := e.inMaintenance
	e.mu.Unlock()
	if active {
		e.ExitMaintenance()
		return false
	}
	e.EnterMaintenance()
	return true
}

// EmergencyStop halts dispatch eligibility until Resume.
func (e *Elevator) EmergencyStop() {
	e.mu.Lock()
	e.inEmergencyStop = true
	e.mu.Unlock()
	e.log.Warn().Msg("Emergency stop engaged")
}

// Resume clears the emergency flag. The car returns to Idle only if the
// maintenance flag is also clear.
func (e *Elevator) Resume() {
	e.mu.Lock()
	e.inEmergencyStop = false
	if !e.inMaintenance {
		e.state = elevconsts.Idle
	}
	e.mu.Unlock()
	e.log.Info().Msg("Resumed from emergency stop")
}
