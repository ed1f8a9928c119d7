package elevdispatch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevaccess"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconf"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevreq"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

const TEST_TIMEOUT = 5 * time.Second

// testConfig builds a fast fleet of local cars parked at the given floors.
func testConfig(floors ...int) elevconf.SystemConfig {
	cfg := elevconf.Default()
	cfg.FloorTravelTime = time.Millisecond
	cfg.DoorTransitionTime = time.Millisecond
	cfg.DoorDwellTime = time.Millisecond
	cfg.PollInterval = 2 * time.Millisecond
	cfg.IdleWait = time.Millisecond

	cfg.Elevators = nil
	for i, f := range floors {
		cfg.Elevators = append(cfg.Elevators, elevconf.ElevatorConfig{
			Label:        "T" + string(rune('1'+i)),
			InitialFloor: f,
			Type:         elevconsts.Local,
			Capacity:     8,
		})
	}
	return cfg
}

func testDispatcher(t *testing.T, cfg elevconf.SystemConfig) *Dispatcher {
	t.Helper()
	_ = logger.GetLoggerConfigured(zerolog.Disabled)
	meta := elevmetadata.New("testfleet", "dev", "127.0.0.1", 9999)
	d, err := NewDispatcher(cfg, meta)
	if err != nil {
		t.Fatalf("Could not build dispatcher: %v", err)
	}
	return d
}

func testRequest(pickup, destination int, priority elevconsts.Priority) elevreq.Request {
	return elevreq.New(pickup, destination, priority, elevaccess.Standard())
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestSubmitRejectsOutOfBounds(t *testing.T) {
	d := testDispatcher(t, testConfig(1))

	var verr *ValidationError
	if _, err := d.Submit(0, 5, elevconsts.PriorityNormal, elevaccess.Standard(), nil); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for pickup below bounds, got %v", err)
	}
	if _, err := d.Submit(5, 99, elevconsts.PriorityNormal, elevaccess.Standard(), nil); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for destination above bounds, got %v", err)
	}
	if _, err := d.Submit(5, 5, elevconsts.PriorityNormal, elevaccess.Standard(), nil); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for equal floors, got %v", err)
	}

	if status := d.Status(); status.PendingCount != 0 {
		t.Errorf("Expected nothing enqueued after rejections, got %d", status.PendingCount)
	}
}

func TestSubmitAccessDenied(t *testing.T) {
	d := testDispatcher(t, testConfig(1))
	d.SetFloorRestriction(18, elevaccess.FloorRestriction{RequiresVIP: true})

	_, err := d.Submit(1, 18, elevconsts.PriorityNormal, elevaccess.Standard(), nil)
	var denied *elevaccess.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Expected DeniedError, got %v", err)
	}
	if denied.Floor != 18 {
		t.Errorf("Expected denial to name floor 18, got %d", denied.Floor)
	}

	if _, err := d.Submit(1, 18, elevconsts.PriorityNormal, elevaccess.VIP(), nil); err != nil {
		t.Errorf("Expected VIP submission accepted, got %v", err)
	}
}

func TestNearestPrefersClosestIdle(t *testing.T) {
	d := testDispatcher(t, testConfig(1, 10, 20))

	worker, ok := d.score(testRequest(12, 14, elevconsts.PriorityNormal))
	if !ok {
		t.Fatal("Expected an eligible car")
	}
	if worker != 1 {
		t.Errorf("Expected idle car at floor 10, got car %d", worker)
	}
}

func TestHighPriorityIgnoresIdlePartition(t *testing.T) {
	d := testDispatcher(t, testConfig(1, 9, 20))

	// The car at floor 9 has queued work, so it does not count as idle.
	d.stopMu.Lock()
	d.stopQueues[1] = []int{15}
	d.stopMu.Unlock()

	worker, ok := d.score(testRequest(9, 12, elevconsts.PriorityNormal))
	if !ok {
		t.Fatal("Expected an eligible car")
	}
	if worker != 0 {
		t.Errorf("Expected normal request to take the closest idle car (0), got %d", worker)
	}

	worker, ok = d.score(testRequest(9, 12, elevconsts.PriorityHigh))
	if !ok {
		t.Fatal("Expected an eligible car")
	}
	if worker != 1 {
		t.Errorf("Expected high priority to take the busy car at floor 9, got %d", worker)
	}
}

func TestMaintenanceFiltersCar(t *testing.T) {
	d := testDispatcher(t, testConfig(5, 12))
	d.elevators[0].EnterMaintenance()

	worker, ok := d.score(testRequest(5, 8, elevconsts.PriorityNormal))
	if !ok {
		t.Fatal("Expected the healthy car to remain eligible")
	}
	if worker != 1 {
		t.Errorf("Expected car 1, got %d", worker)
	}
}

func TestNoEligibleCar(t *testing.T) {
	d := testDispatcher(t, testConfig(5))
	d.elevators[0].EnterMaintenance()

	if _, ok := d.score(testRequest(5, 8, elevconsts.PriorityNormal)); ok {
		t.Error("Expected no eligible car with the only car in maintenance")
	}
}

func TestServedFloorsFilterCar(t *testing.T) {
	cfg := testConfig(1)
	cfg.Elevators[0].Type = elevconsts.Express
	cfg.Elevators[0].ServedFloors = elevconf.ExpressFloors(cfg.MinFloor, cfg.MaxFloor)
	d := testDispatcher(t, cfg)

	// Mid-building pickup: the express car cannot serve it.
	if _, ok := d.score(testRequest(5, 8, elevconsts.PriorityNormal)); ok {
		t.Error("Expected no eligible car for a floor outside the express band")
	}
	// Lobby to top band is fine.
	if _, ok := d.score(testRequest(1, 18, elevconsts.PriorityNormal)); !ok {
		t.Error("Expected the express car to serve lobby to top band")
	}
}

func TestSweepVariantBonuses(t *testing.T) {
	cfg := testConfig(5, 9)
	cfg.FloorTravelTime = time.Second
	d := testDispatcher(t, cfg)

	// Put car 0 in flight toward the pickup floor.
	go d.elevators[0].MoveUp()
	waitFor(t, TEST_TIMEOUT, "car 0 to start moving", func() bool {
		return d.elevators[0].Snapshot().State == elevconsts.MovingUp
	})

	req := testRequest(10, 12, elevconsts.PriorityNormal)

	if err := d.SetAlgorithm("scan"); err != nil {
		t.Fatal(err)
	}
	if worker, _ := d.score(req); worker != 0 {
		t.Errorf("Expected scan to favor the car sweeping toward the pickup, got %d", worker)
	}

	if err := d.SetAlgorithm("look"); err != nil {
		t.Fatal(err)
	}
	if worker, _ := d.score(req); worker != 1 {
		t.Errorf("Expected look to favor the idle car, got %d", worker)
	}
}

func TestCustomReplacesStopQueue(t *testing.T) {
	cfg := testConfig(1)
	cfg.Algorithm = elevconsts.AlgorithmCustom
	d := testDispatcher(t, cfg)

	first := testRequest(15, 18, elevconsts.PriorityNormal)
	worker, ok := d.score(first)
	if !ok {
		t.Fatal("Expected an eligible car")
	}
	d.assign(first, worker)

	second := testRequest(3, 5, elevconsts.PriorityNormal)
	worker, ok = d.score(second)
	if !ok {
		t.Fatal("Expected an eligible car")
	}
	d.assign(second, worker)

	stops, err := d.PendingStops(0)
	if err != nil {
		t.Fatal(err)
	}
	expected := []int{3, 5, 15, 18}
	if len(stops) != len(expected) {
		t.Fatalf("Expected stops %v, got %v", expected, stops)
	}
	for i := range expected {
		if stops[i] != expected[i] {
			t.Fatalf("Expected stops %v, got %v", expected, stops)
		}
	}
}

func TestCompletionEndToEnd(t *testing.T) {
	d := testDispatcher(t, testConfig(1))
	d.Start()
	defer d.Stop()

	id, err := d.Submit(3, 5, elevconsts.PriorityNormal, elevaccess.Standard(), nil)
	if err != nil {
		t.Fatalf("Expected submission accepted, got %v", err)
	}

	var completed []int64
	waitFor(t, TEST_TIMEOUT, "request completion", func() bool {
		completed = append(completed, d.DrainCompletedRequestIDs()...)
		for _, c := range completed {
			if c == id {
				return true
			}
		}
		return false
	})

	metrics := d.Metrics()
	if metrics.CompletedRequests != 1 {
		t.Errorf("Expected 1 completed request, got %d", metrics.CompletedRequests)
	}
	if metrics.AvgWaitTime < 0 || metrics.AvgRideTime < 0 {
		t.Errorf("Expected non-negative wait/ride times, got %v / %v",
			metrics.AvgWaitTime, metrics.AvgRideTime)
	}
	if metrics.Workers[0].TripsCompleted < 2 {
		t.Errorf("Expected at least 2 trips (pickup + destination), got %d",
			metrics.Workers[0].TripsCompleted)
	}
}

func TestUnassignableRequestSurfaced(t *testing.T) {
	cfg := testConfig(1)
	cfg.PollInterval = time.Millisecond
	d := testDispatcher(t, cfg)
	d.elevators[0].EnterMaintenance()
	d.Start()
	defer d.Stop()

	id, err := d.Submit(3, 5, elevconsts.PriorityNormal, elevaccess.Standard(), nil)
	if err != nil {
		t.Fatalf("Expected submission accepted, got %v", err)
	}

	var dropped []int64
	waitFor(t, TEST_TIMEOUT, "request to be dropped as unassignable", func() bool {
		dropped = append(dropped, d.DrainUnassignedRequestIDs()...)
		for _, u := range dropped {
			if u == id {
				return true
			}
		}
		return false
	})

	if metrics := d.Metrics(); metrics.UnassignableRequests != 1 {
		t.Errorf("Expected 1 unassignable request, got %d", metrics.UnassignableRequests)
	}
}

func TestToggleMaintenanceInvalidIndex(t *testing.T) {
	d := testDispatcher(t, testConfig(1))
	if _, err := d.ToggleMaintenance(5); !errors.Is(err, ErrInvalidWorker) {
		t.Errorf("Expected ErrInvalidWorker, got %v", err)
	}
	if _, err := d.ToggleMaintenance(-1); !errors.Is(err, ErrInvalidWorker) {
		t.Errorf("Expected ErrInvalidWorker, got %v", err)
	}
}

func TestEmergencyStopAllAndResume(t *testing.T) {
	d := testDispatcher(t, testConfig(2, 8))
	d.EmergencyStopAll()

	if _, ok := d.score(testRequest(3, 6, elevconsts.PriorityNormal)); ok {
		t.Error("Expected no eligible car while emergency stopped")
	}
	status := d.Status()
	if !status.EmergencyStopped {
		t.Error("Expected status to report emergency stop")
	}
	for _, w := range status.Workers {
		if !w.EmergencyStop {
			t.Errorf("Expected car %s flagged", w.Label)
		}
	}

	d.ResumeAll()
	if _, ok := d.score(testRequest(3, 6, elevconsts.PriorityNormal)); !ok {
		t.Error("Expected eligible cars after resume")
	}
	if d.Status().EmergencyStopped {
		t.Error("Expected status cleared after resume")
	}
}

func TestPreferredTypeNarrowsPool(t *testing.T) {
	cfg := testConfig(8, 10)
	cfg.Elevators[1].Type = elevconsts.Freight
	cfg.Elevators[1].Capacity = elevconsts.FREIGHT_CAPACITY
	d := testDispatcher(t, cfg)

	freight := elevconsts.Freight
	req := elevreq.New(9, 12, elevconsts.PriorityNormal, elevaccess.Standard())
	req.PreferredType = &freight
	if worker, _ := d.score(req); worker != 1 {
		t.Errorf("Expected the freight car, got %d", worker)
	}

	// No car of the preferred type: fall back to the whole pool.
	express := elevconsts.Express
	req = elevreq.New(9, 12, elevconsts.PriorityNormal, elevaccess.Standard())
	req.PreferredType = &express
	if _, ok := d.score(req); !ok {
		t.Error("Expected a fallback assignment when no preferred-type car exists")
	}
}

func TestStatusSnapshotShape(t *testing.T) {
	d := testDispatcher(t, testConfig(1, 5))
	status := d.Status()

	if status.WorkerCount != 2 {
		t.Errorf("Expected 2 workers, got %d", status.WorkerCount)
	}
	if status.ActiveAlgorithm != "nearest" {
		t.Errorf("Expected nearest algorithm, got %s", status.ActiveAlgorithm)
	}
	if status.Identifier != "testfleet" {
		t.Errorf("Expected identifier testfleet, got %s", status.Identifier)
	}
	if status.RunID == "" {
		t.Error("Expected a run id")
	}
	if status.Workers[1].Floor != 5 {
		t.Errorf("Expected worker 1 at floor 5, got %d", status.Workers[1].Floor)
	}
}

func TestConcurrentSubmissionsGetDistinctIDs(t *testing.T) {
	d := testDispatcher(t, testConfig(1))

	const goroutines = 8
	const perGoroutine = 50

	var mu sync.Mutex
	seen := make(map[int64]bool)
	wg := &sync.WaitGroup{}
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id, err := d.Submit(2, 7, elevconsts.PriorityNormal, elevaccess.Standard(), nil)
				if err != nil {
					t.Errorf("Unexpected rejection: %v", err)
					continue
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("Duplicate request id %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("Expected %d distinct ids, got %d", goroutines*perGoroutine, len(seen))
	}
}
