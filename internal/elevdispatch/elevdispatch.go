package elevdispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevaccess"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconf"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevator"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetrics"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevreq"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Log = logger.GetLogger()

const PENDING_QUEUE_SIZE = 4096

var ErrInvalidWorker = errors.New("no worker at that index")

// ValidationError rejects a submission before anything is enqueued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// pendingRequest carries a request through the scheduling loop together with
// the number of cycles it has failed to find an eligible worker.
type pendingRequest struct {
	req      elevreq.Request
	attempts int
}

// progress tracks one assigned request until both floors are visited.
type progress struct {
	requestID        int64
	pickupFloor      int
	destinationFloor int
	priority         elevconsts.Priority
	worker           int

	pickupReached      bool
	destinationReached bool

	submittedAt   time.Time
	pickupAt      time.Time
	destinationAt time.Time
}

// Dispatcher owns the pending queue, every car's stop queue, and the
// in-flight request bookkeeping. One scheduling loop plus one execution loop
// per car run between Start and Stop.
//
// Lock layout: each car guards its own floor/state; stopMu guards the
// index-to-stop-queue map; progressMu guards the in-flight map and the
// completed/unassigned id lists. Scoring only ever reads car snapshots and
// the stop-queue map, never one car from another's loop.
type Dispatcher struct {
	cfg       elevconf.SystemConfig
	meta      *elevmetadata.FleetMetaData
	access    *elevaccess.Controller
	metrics   *elevmetrics.Tracker
	elevators []*elevator.Elevator

	pending chan pendingRequest

	stopMu     sync.Mutex
	stopQueues map[int][]int

	algorithm atomic.Int32

	progressMu    sync.Mutex
	inFlight      map[int64]*progress
	completedIDs  []int64
	unassignedIDs []int64

	emergencyStopped atomic.Bool

	initialised bool
	running     bool

	// used for graceful shutdown
	waitGroupArray []*sync.WaitGroup
	cancelArray    []context.CancelFunc
}

func NewDispatcher(cfg elevconf.SystemConfig, meta *elevmetadata.FleetMetaData) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatcher configuration: %w", err)
	}

	elevators := make([]*elevator.Elevator, len(cfg.Elevators))
	for i, ec := range cfg.Elevators {
		elevators[i] = elevator.New(ec, cfg)
	}

	d := &Dispatcher{
		cfg:         cfg,
		meta:        meta,
		access:      elevaccess.NewController(),
		metrics:     elevmetrics.NewTracker(len(elevators)),
		elevators:   elevators,
		pending:     make(chan pendingRequest, PENDING_QUEUE_SIZE),
		stopQueues:  make(map[int][]int),
		inFlight:    make(map[int64]*progress),
		initialised: true,
	}
	d.algorithm.Store(int32(cfg.Algorithm))
	return d, nil
}

// Access exposes the controller so collaborators can install custom levels
// and restrictions before traffic starts.
func (d *Dispatcher) Access() *elevaccess.Controller { return d.access }

// Start launches the scheduling loop and one execution loop per car.
func (d *Dispatcher) Start() {
	if !d.initialised {
		Log.Error().Msg("Dispatcher not initialised")
		return
	}
	if d.running {
		Log.Error().Msg("Dispatcher already running")
		return
	}

	ctxSched, cancelSched := context.WithCancel(context.Background())
	wgSched := &sync.WaitGroup{}
	d.waitGroupArray = append(d.waitGroupArray, wgSched)
	d.cancelArray = append(d.cancelArray, cancelSched)
	wgSched.Add(1)
	go d.schedulingLoop(ctxSched, wgSched)

	ctxWorkers, cancelWorkers := context.WithCancel(context.Background())
	wgWorkers := &sync.WaitGroup{}
	d.waitGroupArray = append(d.waitGroupArray, wgWorkers)
	d.cancelArray = append(d.cancelArray, cancelWorkers)
	for i := range d.elevators {
		wgWorkers.Add(1)
		go d.workerLoop(ctxWorkers, wgWorkers, i)
	}

	d.running = true
	Log.Info().Msgf("Dispatcher started with %d cars, algorithm %v",
		len(d.elevators), d.Algorithm())
}

// Stop shuts the loops down in reverse start order and waits for them.
func (d *Dispatcher) Stop() {
	if !d.running {
		Log.Error().Msg("Dispatcher not running, so cannot stop it")
		return
	}

	Log.Debug().Msg("Stopping dispatcher")
	for i := len(d.cancelArray) - 1; i >= 0; i-- {
		d.cancelArray[i]()
		d.waitGroupArray[i].Wait()
	}
	d.cancelArray = nil
	d.waitGroupArray = nil
	d.running = false
	Log.Debug().Msg("Stopped dispatcher")
}

// Submit validates and authorizes a ride request. On success the request is
// queued for scheduling and its id returned; nothing is enqueued on error.
// Submission never waits on the scheduling loop.
func (d *Dispatcher) Submit(pickup, destination int, priority elevconsts.Priority, level elevaccess.AccessLevel, preferredType *elevconsts.ElevatorType) (int64, error) {
	if pickup < d.cfg.MinFloor || pickup > d.cfg.MaxFloor {
		return 0, &ValidationError{Reason: fmt.Sprintf("pickup floor %d outside [%d, %d]", pickup, d.cfg.MinFloor, d.cfg.MaxFloor)}
	}
	if destination < d.cfg.MinFloor || destination > d.cfg.MaxFloor {
		return 0, &ValidationError{Reason: fmt.Sprintf("destination floor %d outside [%d, %d]", destination, d.cfg.MinFloor, d.cfg.MaxFloor)}
	}
	if pickup == destination {
		return 0, &ValidationError{Reason: fmt.Sprintf("pickup and destination are both floor %d", pickup)}
	}
	if err := d.access.CanAccess(level, pickup); err != nil {
		return 0, fmt.Errorf("pickup: %w", err)
	}
	if err := d.access.CanAccess(level, destination); err != nil {
		return 0, fmt.Errorf("destination: %w", err)
	}

	req := elevreq.New(pickup, destination, priority, level)
	req.PreferredType = preferredType

	select {
	case d.pending <- pendingRequest{req: req}:
	default:
		return 0, &ValidationError{Reason: "pending queue full"}
	}

	d.metrics.RecordSubmission(pickup, destination,
		req.Priority == elevconsts.PriorityHigh, level.IsVIP)
	Log.Info().Msgf("Accepted %v", req)
	return req.ID, nil
}

// Algorithm returns the active scoring algorithm.
func (d *Dispatcher) Algorithm() elevconsts.Algorithm {
	return elevconsts.Algorithm(d.algorithm.Load())
}

// SetAlgorithm switches the scoring algorithm by name. Takes effect on the
// next scheduling cycle.
func (d *Dispatcher) SetAlgorithm(name string) error {
	alg, ok := elevconsts.ParseAlgorithm(name)
	if !ok {
		return fmt.Errorf("unknown algorithm %q", name)
	}
	d.algorithm.Store(int32(alg))
	Log.Info().Msgf("Dispatch algorithm set to %v", alg)
	return nil
}

// EmergencyStopAll flags every car. Each car's own flag set is atomic; a
// scoring pass running alongside may observe a partially stopped fleet for
// one cycle, which the per-cycle eligibility filter absorbs.
func (d *Dispatcher) EmergencyStopAll() {
	for _, e := range d.elevators {
		e.EmergencyStop()
	}
	d.emergencyStopped.Store(true)
	Log.Warn().Msg("Emergency stop: all cars flagged")
}

// ResumeAll clears the emergency flag on every car.
func (d *Dispatcher) ResumeAll() {
	for _, e := range d.elevators {
		e.Resume()
	}
	d.emergencyStopped.Store(false)
	Log.Info().Msg("All cars resumed")
}

// ToggleMaintenance flips the maintenance flag of one car.
func (d *Dispatcher) ToggleMaintenance(worker int) (bool, error) {
	if worker < 0 || worker >= len(d.elevators) {
		return false, fmt.Errorf("%w: %d", ErrInvalidWorker, worker)
	}
	return d.elevators[worker].ToggleMaintenance(), nil
}

// SetFloorRestriction installs a per-floor access policy at runtime.
func (d *Dispatcher) SetFloorRestriction(floor int, r elevaccess.FloorRestriction) {
	d.access.SetFloorRestriction(floor, r)
}

// Metrics returns a point-in-time copy of the performance counters.
func (d *Dispatcher) Metrics() elevmetrics.Snapshot {
	return d.metrics.Snapshot()
}

// DrainCompletedRequestIDs returns and clears the set of request ids whose
// pickup and destination have both been visited.
func (d *Dispatcher) DrainCompletedRequestIDs() []int64 {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	ids := d.completedIDs
	d.completedIDs = nil
	return ids
}

// ClearCompleted drops the completed-id set without returning it.
func (d *Dispatcher) ClearCompleted() {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	d.completedIDs = nil
}

// DrainUnassignedRequestIDs returns and clears the ids of requests dropped
// after exhausting their scheduling attempts.
func (d *Dispatcher) DrainUnassignedRequestIDs() []int64 {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	ids := d.unassignedIDs
	d.unassignedIDs = nil
	return ids
}

// PendingStops returns a copy of one car's stop queue.
func (d *Dispatcher) PendingStops(worker int) ([]int, error) {
	if worker < 0 || worker >= len(d.elevators) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorker, worker)
	}
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	queue := d.stopQueues[worker]
	out := make([]int, len(queue))
	copy(out, queue)
	return out, nil
}
