package elevmetrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker aggregates dispatch telemetry. Plain counters are atomics; each
// metric family that needs multi-field consistency (latency sums, per-worker
// activity, the floor heatmap) has its own lock. No lock spans two workers.
type Tracker struct {
	totalRequests    atomic.Int64
	highPriority     atomic.Int64
	normalPriority   atomic.Int64
	vipRequests      atomic.Int64
	standardRequests atomic.Int64
	completed        atomic.Int64
	unassignable     atomic.Int64

	inFlight     atomic.Int64
	peakInFlight atomic.Int64

	latencyMu   sync.Mutex
	dispatchSum time.Duration
	dispatchN   int64
	waitSum     time.Duration
	waitN       int64
	rideSum     time.Duration
	rideN       int64

	heatMu    sync.Mutex
	floorHits map[int]int64

	workers []*workerStats
}

type workerStats struct {
	mu              sync.Mutex
	tripsCompleted  int64
	floorsTraversed int64
	movingTime      time.Duration
	idleTime        time.Duration
	doorTime        time.Duration
}

// WorkerMetrics is the per-car slice of a Snapshot.
type WorkerMetrics struct {
	TripsCompleted  int64
	FloorsTraversed int64
	MovingTime      time.Duration
	IdleTime        time.Duration
	DoorTime        time.Duration
	Utilization     float64
}

// Snapshot is a read-only copy of every metric family.
type Snapshot struct {
	TotalRequests          int64
	HighPriorityRequests   int64
	NormalPriorityRequests int64
	VIPRequests            int64
	StandardRequests       int64
	CompletedRequests      int64
	UnassignableRequests   int64
	PeakInFlight           int64

	AvgDispatchTime time.Duration
	AvgWaitTime     time.Duration
	AvgRideTime     time.Duration

	FloorHits map[int]int64
	Workers   []WorkerMetrics
}

func NewTracker(workerCount int) *Tracker {
	t := &Tracker{
		floorHits: make(map[int]int64),
		workers:   make([]*workerStats, workerCount),
	}
	for i := range t.workers {
		t.workers[i] = &workerStats{}
	}
	return t
}

// RecordSubmission counts one accepted request and its priority/VIP buckets,
// and marks both floors in the heatmap.
func (t *Tracker) RecordSubmission(pickup, destination int, high, vip bool) {
	t.totalRequests.Add(1)
	if high {
		t.highPriority.Add(1)
	} else {
		t.normalPriority.Add(1)
	}
	if vip {
		t.vipRequests.Add(1)
	} else {
		t.standardRequests.Add(1)
	}

	t.heatMu.Lock()
	t.floorHits[pickup]++
	t.floorHits[destination]++
	t.heatMu.Unlock()
}

// RecordAssignment tracks one in-flight request and its dispatch latency.
func (t *Tracker) RecordAssignment(dispatchLatency time.Duration) {
	n := t.inFlight.Add(1)
	for {
		peak := t.peakInFlight.Load()
		if n <= peak || t.peakInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	t.latencyMu.Lock()
	t.dispatchSum += dispatchLatency
	t.dispatchN++
	t.latencyMu.Unlock()
}

// RecordCompletion closes out one request with its wait and ride latencies.
func (t *Tracker) RecordCompletion(wait, ride time.Duration) {
	t.inFlight.Add(-1)
	t.completed.Add(1)

	t.latencyMu.Lock()
	t.waitSum += wait
	t.waitN++
	t.rideSum += ride
	t.rideN++
	t.latencyMu.Unlock()
}

// RecordUnassignable counts a request dropped after exhausting its
// scheduling attempts.
func (t *Tracker) RecordUnassignable() {
	t.unassignable.Add(1)
}

// RecordTrip accumulates one completed stop for a worker.
func (t *Tracker) RecordTrip(worker int, floors int, moving, door time.Duration) {
	if worker < 0 || worker >= len(t.workers) {
		return
	}
	ws := t.workers[worker]
	ws.mu.Lock()
	ws.tripsCompleted++
	ws.floorsTraversed += int64(floors)
	ws.movingTime += moving
	ws.doorTime += door
	ws.mu.Unlock()
}

// RecordIdle accumulates idle time for a worker.
func (t *Tracker) RecordIdle(worker int, idle time.Duration) {
	if worker < 0 || worker >= len(t.workers) {
		return
	}
	ws := t.workers[worker]
	ws.mu.Lock()
	ws.idleTime += idle
	ws.mu.Unlock()
}

func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:          t.totalRequests.Load(),
		HighPriorityRequests:   t.highPriority.Load(),
		NormalPriorityRequests: t.normalPriority.Load(),
		VIPRequests:            t.vipRequests.Load(),
		StandardRequests:       t.standardRequests.Load(),
		CompletedRequests:      t.completed.Load(),
		UnassignableRequests:   t.unassignable.Load(),
		PeakInFlight:           t.peakInFlight.Load(),
		FloorHits:              make(map[int]int64),
		Workers:                make([]WorkerMetrics, len(t.workers)),
	}

	t.latencyMu.Lock()
	snap.AvgDispatchTime = avg(t.dispatchSum, t.dispatchN)
	snap.AvgWaitTime = avg(t.waitSum, t.waitN)
	snap.AvgRideTime = avg(t.rideSum, t.rideN)
	t.latencyMu.Unlock()

	t.heatMu.Lock()
	for floor, hits := range t.floorHits {
		snap.FloorHits[floor] = hits
	}
	t.heatMu.Unlock()

	for i, ws := range t.workers {
		ws.mu.Lock()
		wm := WorkerMetrics{
			TripsCompleted:  ws.tripsCompleted,
			FloorsTraversed: ws.floorsTraversed,
			MovingTime:      ws.movingTime,
			IdleTime:        ws.idleTime,
			DoorTime:        ws.doorTime,
		}
		ws.mu.Unlock()
		total := wm.MovingTime + wm.IdleTime + wm.DoorTime
		if total > 0 {
			wm.Utilization = float64(wm.MovingTime) / float64(total)
		}
		snap.Workers[i] = wm
	}

	return snap
}

func avg(sum time.Duration, n int64) time.Duration {
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}
