package elevreq

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevaccess"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
)

var idCounter atomic.Int64

// Request is an immutable ride request. Build one with New; the id is
// assigned from a process-wide monotonic counter.
type Request struct {
	ID               int64
	PickupFloor      int
	DestinationFloor int
	Direction        elevconsts.Direction
	Priority         elevconsts.Priority
	AccessLevel      elevaccess.AccessLevel
	PreferredType    *elevconsts.ElevatorType
	SubmittedAt      time.Time
}

// New derives the travel direction from the floor pair and escalates the
// priority to High when the access level is a VIP one, regardless of the
// requested priority.
func New(pickup, destination int, priority elevconsts.Priority, level elevaccess.AccessLevel) Request {
	dir := elevconsts.Up
	if destination < pickup {
		dir = elevconsts.Down
	}
	if level.IsVIP {
		priority = elevconsts.PriorityHigh
	}
	return Request{
		ID:               idCounter.Add(1),
		PickupFloor:      pickup,
		DestinationFloor: destination,
		Direction:        dir,
		Priority:         priority,
		AccessLevel:      level,
		SubmittedAt:      time.Now(),
	}
}

func (r Request) String() string {
	return fmt.Sprintf("Request(#%d %d->%d %s %s %s)",
		r.ID, r.PickupFloor, r.DestinationFloor, r.Direction, r.Priority, r.AccessLevel.Name)
}
