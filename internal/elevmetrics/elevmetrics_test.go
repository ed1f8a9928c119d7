package elevmetrics

import (
	"sync"
	"testing"
	"time"
)

func TestSubmissionCounters(t *testing.T) {
	tr := NewTracker(2)
	tr.RecordSubmission(1, 5, false, false)
	tr.RecordSubmission(2, 8, true, true)
	tr.RecordSubmission(5, 1, false, false)

	snap := tr.Snapshot()
	if snap.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", snap.TotalRequests)
	}
	if snap.HighPriorityRequests != 1 || snap.NormalPriorityRequests != 2 {
		t.Errorf("Expected 1 high / 2 normal, got %d / %d",
			snap.HighPriorityRequests, snap.NormalPriorityRequests)
	}
	if snap.VIPRequests != 1 || snap.StandardRequests != 2 {
		t.Errorf("Expected 1 VIP / 2 standard, got %d / %d",
			snap.VIPRequests, snap.StandardRequests)
	}
	if snap.FloorHits[1] != 2 {
		t.Errorf("Expected floor 1 hit twice, got %d", snap.FloorHits[1])
	}
	if snap.FloorHits[5] != 2 {
		t.Errorf("Expected floor 5 hit twice, got %d", snap.FloorHits[5])
	}
}

func TestLatencyAverages(t *testing.T) {
	tr := NewTracker(1)
	tr.RecordAssignment(10 * time.Millisecond)
	tr.RecordAssignment(30 * time.Millisecond)
	tr.RecordCompletion(100*time.Millisecond, 200*time.Millisecond)
	tr.RecordCompletion(300*time.Millisecond, 400*time.Millisecond)

	snap := tr.Snapshot()
	if snap.AvgDispatchTime != 20*time.Millisecond {
		t.Errorf("Expected 20ms average dispatch, got %v", snap.AvgDispatchTime)
	}
	if snap.AvgWaitTime != 200*time.Millisecond {
		t.Errorf("Expected 200ms average wait, got %v", snap.AvgWaitTime)
	}
	if snap.AvgRideTime != 300*time.Millisecond {
		t.Errorf("Expected 300ms average ride, got %v", snap.AvgRideTime)
	}
}

func TestPeakInFlight(t *testing.T) {
	tr := NewTracker(1)
	tr.RecordAssignment(0)
	tr.RecordAssignment(0)
	tr.RecordAssignment(0)
	tr.RecordCompletion(0, 0)
	tr.RecordAssignment(0)

	snap := tr.Snapshot()
	if snap.PeakInFlight != 3 {
		t.Errorf("Expected peak 3, got %d", snap.PeakInFlight)
	}
	if snap.CompletedRequests != 1 {
		t.Errorf("Expected 1 completed, got %d", snap.CompletedRequests)
	}
}

func TestWorkerUtilization(t *testing.T) {
	tr := NewTracker(2)
	tr.RecordTrip(0, 4, 60*time.Millisecond, 20*time.Millisecond)
	tr.RecordIdle(0, 20*time.Millisecond)
	tr.RecordIdle(1, 50*time.Millisecond)

	snap := tr.Snapshot()
	w0 := snap.Workers[0]
	if w0.TripsCompleted != 1 || w0.FloorsTraversed != 4 {
		t.Errorf("Expected 1 trip over 4 floors, got %d trips / %d floors",
			w0.TripsCompleted, w0.FloorsTraversed)
	}
	if w0.Utilization != 0.6 {
		t.Errorf("Expected utilization 0.6, got %f", w0.Utilization)
	}
	w1 := snap.Workers[1]
	if w1.Utilization != 0 {
		t.Errorf("Expected idle-only car utilization 0, got %f", w1.Utilization)
	}
}

func TestOutOfRangeWorkerIgnored(t *testing.T) {
	tr := NewTracker(1)
	tr.RecordTrip(5, 1, time.Millisecond, time.Millisecond)
	tr.RecordIdle(-1, time.Millisecond)

	snap := tr.Snapshot()
	if snap.Workers[0].TripsCompleted != 0 {
		t.Errorf("Expected no trips recorded, got %d", snap.Workers[0].TripsCompleted)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	tr := NewTracker(4)
	wg := &sync.WaitGroup{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.RecordSubmission(1, 2, i%2 == 0, false)
				tr.RecordAssignment(time.Millisecond)
				tr.RecordTrip(worker%4, 1, time.Millisecond, time.Millisecond)
				tr.RecordCompletion(time.Millisecond, time.Millisecond)
			}
		}(g)
	}
	wg.Wait()

	snap := tr.Snapshot()
	if snap.TotalRequests != 800 {
		t.Errorf("Expected 800 submissions, got %d", snap.TotalRequests)
	}
	if snap.CompletedRequests != 800 {
		t.Errorf("Expected 800 completions, got %d", snap.CompletedRequests)
	}
	var trips int64
	for _, w := range snap.Workers {
		trips += w.TripsCompleted
	}
	if trips != 800 {
		t.Errorf("Expected 800 trips total, got %d", trips)
	}
}
