package elevdispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevator"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevreq"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevroute"
)

// schedulingLoop drains and re-sorts the pending queue at a fixed interval,
// assigning at most one request per cycle.
func (d *Dispatcher) schedulingLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Log.Warn().Msg("Scheduling loop has been signaled to stop")
			return
		case <-ticker.C:
			d.runSchedulingCycle()
		}
	}
}

func (d *Dispatcher) runSchedulingCycle() {
	var batch []pendingRequest
drain:
	for {
		select {
		case pr := <-d.pending:
			batch = append(batch, pr)
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].req.Priority != batch[j].req.Priority {
			return batch[i].req.Priority > batch[j].req.Priority
		}
		return batch[i].req.SubmittedAt.Before(batch[j].req.SubmittedAt)
	})

	head := batch[0]
	if worker, ok := d.score(head.req); ok {
		d.assign(head.req, worker)
	} else {
		head.attempts++
		if head.attempts >= elevconsts.MAX_ASSIGN_ATTEMPTS {
			d.dropUnassignable(head.req)
		} else {
			d.requeue(head)
		}
	}

	for _, pr := range batch[1:] {
		d.requeue(pr)
	}
}

// assign hands the request to the chosen car. Under the custom algorithm the
// car's whole stop queue is recomputed and replaced; the other algorithms
// append pickup then destination.
func (d *Dispatcher) assign(req elevreq.Request, worker int) {
	p := &progress{
		requestID:        req.ID,
		pickupFloor:      req.PickupFloor,
		destinationFloor: req.DestinationFloor,
		priority:         req.Priority,
		worker:           worker,
		submittedAt:      req.SubmittedAt,
	}
	d.progressMu.Lock()
	d.inFlight[req.ID] = p
	d.progressMu.Unlock()

	if d.Algorithm() == elevconsts.AlgorithmCustom {
		pairs, fixed := d.remainingWork(worker)
		floor := d.elevators[worker].CurrentFloor()
		stops, _ := elevroute.Plan(floor, pairs, fixed)
		d.stopMu.Lock()
		d.stopQueues[worker] = stops
		d.stopMu.Unlock()
	} else {
		d.stopMu.Lock()
		d.stopQueues[worker] = append(d.stopQueues[worker], req.PickupFloor, req.DestinationFloor)
		d.stopMu.Unlock()
	}

	d.metrics.RecordAssignment(time.Since(req.SubmittedAt))
	Log.Info().Msgf("Assigned request #%d (%d->%d, %v) to car %s",
		req.ID, req.PickupFloor, req.DestinationFloor, req.Priority,
		d.elevators[worker].Label())
}

func (d *Dispatcher) dropUnassignable(req elevreq.Request) {
	d.metrics.RecordUnassignable()
	d.progressMu.Lock()
	d.unassignedIDs = append(d.unassignedIDs, req.ID)
	d.progressMu.Unlock()
	Log.Warn().Msgf("Dropping request #%d (%d->%d): no eligible car after %d scheduling cycles",
		req.ID, req.PickupFloor, req.DestinationFloor, elevconsts.MAX_ASSIGN_ATTEMPTS)
}

func (d *Dispatcher) requeue(pr pendingRequest) {
	select {
	case d.pending <- pr:
	default:
		Log.Error().Msgf("Pending queue full, dropping request #%d", pr.req.ID)
		d.dropUnassignable(pr.req)
	}
}

// workerLoop serves one car's stop queue for the lifetime of the system.
func (d *Dispatcher) workerLoop(ctx context.Context, wg *sync.WaitGroup, worker int) {
	defer wg.Done()
	e := d.elevators[worker]

	for {
		select {
		case <-ctx.Done():
			Log.Warn().Msgf("Worker loop for car %s has been signaled to stop", e.Label())
			return
		default:
		}

		stop, ok := d.popStop(worker)
		if !ok {
			d.metrics.RecordIdle(worker, d.cfg.IdleWait)
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.IdleWait):
			}
			continue
		}
		d.serveStop(ctx, worker, e, stop)
	}
}

func (d *Dispatcher) popStop(worker int) (int, bool) {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	queue := d.stopQueues[worker]
	if len(queue) == 0 {
		return 0, false
	}
	d.stopQueues[worker] = queue[1:]
	return queue[0], true
}

// serveStop moves the car one floor at a time toward the stop, runs the door
// cycle, and reports the arrival. Cancellation is observed between steps; a
// step that has started runs to completion. A car flagged while underway
// simply waits in place until the flag clears.
func (d *Dispatcher) serveStop(ctx context.Context, worker int, e *elevator.Elevator, stop int) {
	floors := 0
	movingStart := time.Now()
	for {
		current := e.CurrentFloor()
		if current == stop {
			break
		}

		var err error
		if stop > current {
			err = e.MoveUp()
		} else {
			err = e.MoveDown()
		}
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.cfg.IdleWait):
			}
			continue
		}
		floors++

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	movingTime := time.Since(movingStart)

	doorStart := time.Now()
	e.OpenDoor()
	e.CloseDoor()
	doorTime := time.Since(doorStart)

	d.metrics.RecordTrip(worker, floors, movingTime, doorTime)
	d.handleArrival(worker, stop)
}

// handleArrival walks the in-flight entries assigned to this car and marks
// the arrived floor off against them. A destination only counts once its own
// pickup has been visited. Requests with both floors visited move to the
// completed set with their wait and ride latencies recorded.
func (d *Dispatcher) handleArrival(worker, floor int) {
	now := time.Now()

	d.progressMu.Lock()
	var completed []*progress
	for _, p := range d.inFlight {
		if p.worker != worker {
			continue
		}
		if !p.pickupReached && p.pickupFloor == floor {
			p.pickupReached = true
			p.pickupAt = now
			continue
		}
		if p.pickupReached && !p.destinationReached && p.destinationFloor == floor {
			p.destinationReached = true
			p.destinationAt = now
			completed = append(completed, p)
		}
	}
	for _, p := range completed {
		delete(d.inFlight, p.requestID)
		d.completedIDs = append(d.completedIDs, p.requestID)
	}
	d.progressMu.Unlock()

	for _, p := range completed {
		d.metrics.RecordCompletion(p.pickupAt.Sub(p.submittedAt), p.destinationAt.Sub(p.pickupAt))
		Log.Info().Msgf("Completed request #%d (%d->%d) on car %s",
			p.requestID, p.pickupFloor, p.destinationFloor, d.elevators[worker].Label())
	}
}
