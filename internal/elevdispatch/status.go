package elevdispatch

import "sort"

// WorkerStatus is one car's row in a status snapshot.
type WorkerStatus struct {
	Label         string `json:"label"`
	Floor         int    `json:"floor"`
	State         string `json:"state"`
	Type          string `json:"type"`
	Maintenance   bool   `json:"maintenance"`
	EmergencyStop bool   `json:"emergency_stop"`
	Capacity      int    `json:"capacity"`
	ServedFloors  []int  `json:"served_floors,omitempty"`
	PendingStops  int    `json:"pending_stops"`
}

// StatusSnapshot is the read-only system view handed to collaborators (REST
// layer, console, status broadcaster). Pure query, no side effects.
type StatusSnapshot struct {
	Identifier       string         `json:"identifier"`
	SoftwareVersion  string         `json:"software_version"`
	RunID            string         `json:"run_id"`
	WorkerCount      int            `json:"worker_count"`
	PendingCount     int            `json:"pending_count"`
	EmergencyStopped bool           `json:"emergency_stopped"`
	ActiveAlgorithm  string         `json:"active_algorithm"`
	UnassignedCount  int            `json:"unassigned_count"`
	Workers          []WorkerStatus `json:"workers"`
}

// Status assembles a point-in-time view of the fleet. Each car is snapshotted
// under its own lock; the result is not a single atomic cut across cars.
func (d *Dispatcher) Status() StatusSnapshot {
	snap := StatusSnapshot{
		WorkerCount:      len(d.elevators),
		PendingCount:     len(d.pending),
		EmergencyStopped: d.emergencyStopped.Load(),
		ActiveAlgorithm:  d.Algorithm().String(),
		Workers:          make([]WorkerStatus, len(d.elevators)),
	}
	if d.meta != nil {
		snap.Identifier = d.meta.Identifier
		snap.SoftwareVersion = d.meta.SoftwareVersion
		snap.RunID = d.meta.RunID.String()
	}

	d.progressMu.Lock()
	snap.UnassignedCount = len(d.unassignedIDs)
	d.progressMu.Unlock()

	d.stopMu.Lock()
	queueLens := make([]int, len(d.elevators))
	for i := range d.elevators {
		queueLens[i] = len(d.stopQueues[i])
	}
	d.stopMu.Unlock()

	for i, e := range d.elevators {
		es := e.Snapshot()
		ws := WorkerStatus{
			Label:         es.Label,
			Floor:         es.Floor,
			State:         es.State.String(),
			Type:          es.Type.String(),
			Maintenance:   es.Maintenance,
			EmergencyStop: es.EmergencyStop,
			Capacity:      es.Capacity,
			PendingStops:  queueLens[i],
		}
		if served := e.ServedFloors(); served != nil {
			for f := range served {
				ws.ServedFloors = append(ws.ServedFloors, f)
			}
			sort.Ints(ws.ServedFloors)
		}
		snap.Workers[i] = ws
	}
	return snap
}
