package elevdispatch

import (
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevator"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevreq"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevroute"
)

// Sweep bonuses. Scan rewards cars already sweeping toward the pickup, look
// rewards cars that are free to start immediately.
const (
	SCAN_DIRECTION_BONUS = 50
	SCAN_IDLE_BONUS      = 10
	LOOK_DIRECTION_BONUS = 10
	LOOK_IDLE_BONUS      = 50
)

// candidate is one eligible car as seen by a single scoring pass: a state
// snapshot plus the length of its stop queue at the start of the pass.
type candidate struct {
	index        int
	snap         elevator.Snapshot
	pendingStops int
}

func (c candidate) idle() bool {
	return c.snap.State == elevconsts.Idle && c.pendingStops == 0
}

func (c candidate) distanceTo(floor int) int {
	return abs(c.snap.Floor - floor)
}

// eligibleCandidates filters out cars in maintenance or emergency stop and
// cars that cannot serve both floors of the request. A preferred car type
// narrows the pool only when at least one car of that type survives the
// other filters; "preferred" is not "required".
func (d *Dispatcher) eligibleCandidates(req elevreq.Request) []candidate {
	d.stopMu.Lock()
	queueLens := make([]int, len(d.elevators))
	for i := range d.elevators {
		queueLens[i] = len(d.stopQueues[i])
	}
	d.stopMu.Unlock()

	var cands []candidate
	for i, e := range d.elevators {
		snap := e.Snapshot()
		if snap.Maintenance || snap.EmergencyStop {
			continue
		}
		if !e.CanServeFloor(req.PickupFloor) || !e.CanServeFloor(req.DestinationFloor) {
			continue
		}
		cands = append(cands, candidate{index: i, snap: snap, pendingStops: queueLens[i]})
	}

	if req.PreferredType != nil {
		var preferred []candidate
		for _, c := range cands {
			if c.snap.Type == *req.PreferredType {
				preferred = append(preferred, c)
			}
		}
		if len(preferred) > 0 {
			cands = preferred
		}
	}
	return cands
}

// score picks a car for the request under the active algorithm. The second
// return value is false when no eligible car exists.
func (d *Dispatcher) score(req elevreq.Request) (int, bool) {
	cands := d.eligibleCandidates(req)
	if len(cands) == 0 {
		return 0, false
	}

	switch d.Algorithm() {
	case elevconsts.AlgorithmScan:
		return scoreSweep(req, cands, SCAN_DIRECTION_BONUS, SCAN_IDLE_BONUS), true
	case elevconsts.AlgorithmLook:
		return scoreSweep(req, cands, LOOK_DIRECTION_BONUS, LOOK_IDLE_BONUS), true
	case elevconsts.AlgorithmCustom:
		return d.scoreCustom(req, cands), true
	default:
		return scoreNearest(req, cands), true
	}
}

// scoreNearest prefers the closest idle car for normal requests, falling back
// to the closest busy one. High priority ignores the idle/busy partition and
// takes the globally closest car.
func scoreNearest(req elevreq.Request, cands []candidate) int {
	if req.Priority == elevconsts.PriorityHigh {
		return closestOf(req.PickupFloor, cands)
	}

	var idle []candidate
	for _, c := range cands {
		if c.idle() {
			idle = append(idle, c)
		}
	}
	if len(idle) > 0 {
		return closestOf(req.PickupFloor, idle)
	}
	return closestOf(req.PickupFloor, cands)
}

// scoreSweep scores each car as negative distance to the pickup, plus a
// direction bonus when the car is already moving toward it and an idle bonus
// when it is free. High priority bypasses the bonuses entirely.
func scoreSweep(req elevreq.Request, cands []candidate, directionBonus, idleBonus int) int {
	if req.Priority == elevconsts.PriorityHigh {
		return closestOf(req.PickupFloor, cands)
	}

	best := cands[0].index
	bestScore := 0
	for i, c := range cands {
		score := -c.distanceTo(req.PickupFloor)
		if movingToward(c.snap, req.PickupFloor) {
			score += directionBonus
		}
		if c.idle() {
			score += idleBonus
		}
		if i == 0 || score > bestScore {
			best = c.index
			bestScore = score
		}
	}
	return best
}

// scoreCustom projects the new pickup/destination pair onto each car's
// remaining work and picks the car with the smallest recomputed route. Ties
// resolve to the first car encountered, which is the lowest index. High
// priority falls back to plain closest-by-distance.
func (d *Dispatcher) scoreCustom(req elevreq.Request, cands []candidate) int {
	if req.Priority == elevconsts.PriorityHigh {
		return closestOf(req.PickupFloor, cands)
	}

	best := cands[0].index
	bestTotal := 0
	for i, c := range cands {
		pairs, fixed := d.remainingWork(c.index)
		pairs = append(pairs, elevroute.Pair{Pickup: req.PickupFloor, Destination: req.DestinationFloor})
		_, total := elevroute.Plan(c.snap.Floor, pairs, fixed)
		if i == 0 || total < bestTotal {
			best = c.index
			bestTotal = total
		}
	}
	return best
}

// remainingWork reconstructs one car's outstanding stops from the in-flight
// entries: unvisited pickup/destination pairs keep their precedence, while a
// destination whose pickup is already served becomes a free stop.
func (d *Dispatcher) remainingWork(worker int) ([]elevroute.Pair, []int) {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()

	var pairs []elevroute.Pair
	var fixed []int
	for _, p := range d.inFlight {
		if p.worker != worker {
			continue
		}
		switch {
		case !p.pickupReached:
			pairs = append(pairs, elevroute.Pair{Pickup: p.pickupFloor, Destination: p.destinationFloor})
		case !p.destinationReached:
			fixed = append(fixed, p.destinationFloor)
		}
	}
	return pairs, fixed
}

func closestOf(floor int, cands []candidate) int {
	best := cands[0].index
	bestDist := cands[0].distanceTo(floor)
	for _, c := range cands[1:] {
		if d := c.distanceTo(floor); d < bestDist {
			best = c.index
			bestDist = d
		}
	}
	return best
}

func movingToward(snap elevator.Snapshot, pickup int) bool {
	switch snap.State {
	case elevconsts.MovingUp:
		return pickup > snap.Floor
	case elevconsts.MovingDown:
		return pickup < snap.Floor
	default:
		return false
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
