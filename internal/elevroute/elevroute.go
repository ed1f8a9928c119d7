package elevroute

// Pair is one pickup/destination constraint fed to the planner.
type Pair struct {
	Pickup      int
	Destination int
}

// Plan orders the floors of the given pairs using a nearest-neighbor walk
// from start. A destination only becomes a candidate once its own pickup has
// been visited, so every pickup precedes its paired destination in the
// output. A visit clears every pending pickup and every satisfiable
// destination on that floor, which collapses shared floors into one stop.
// The fixed floors are stops without precedence constraints (destinations
// whose pickup was already served); they compete with the pair floors on
// distance alone. The second return value is the total distance walked, in
// floors.
func Plan(start int, pairs []Pair, fixed []int) ([]int, int) {
	type state struct {
		pair       Pair
		pickupDone bool
		destDone   bool
	}

	states := make([]state, len(pairs))
	for i, p := range pairs {
		states[i] = state{pair: p}
	}
	fixedPending := make([]bool, len(fixed))
	for i := range fixedPending {
		fixedPending[i] = true
	}

	stops := make([]int, 0, 2*len(pairs)+len(fixed))
	current := start
	total := 0

	for {
		best := 0
		found := false
		for _, s := range states {
			var candidate int
			switch {
			case !s.pickupDone:
				candidate = s.pair.Pickup
			case !s.destDone:
				candidate = s.pair.Destination
			default:
				continue
			}
			if !found || abs(candidate-current) < abs(best-current) {
				best = candidate
				found = true
			}
		}
		for i, pending := range fixedPending {
			if !pending {
				continue
			}
			if !found || abs(fixed[i]-current) < abs(best-current) {
				best = fixed[i]
				found = true
			}
		}
		if !found {
			break
		}

		total += abs(best - current)
		current = best
		stops = append(stops, best)

		// Clear everything this stop satisfies. Pickups first, so a
		// destination sharing the floor with its own pickup would still wait
		// for a later visit (the request model forbids that pair anyway).
		for i := range states {
			if !states[i].pickupDone && states[i].pair.Pickup == best {
				states[i].pickupDone = true
			} else if states[i].pickupDone && !states[i].destDone && states[i].pair.Destination == best {
				states[i].destDone = true
			}
		}
		for i := range fixedPending {
			if fixedPending[i] && fixed[i] == best {
				fixedPending[i] = false
			}
		}
	}

	return stops, total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
