package main

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevaccess"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconf"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevdispatch"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevnet"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevutils"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Logger = logger.GetLoggerConfigured(zerolog.InfoLevel)

const (
	TRAFFIC_REQUESTS = 25
	RUN_FOR          = 30 * time.Second
)

// Scripted load run: fires random traffic at an in-process dispatcher and
// prints the resulting metrics. Useful for eyeballing algorithm behavior.
func main() {
	identifier, portNumber, algorithm, envFile := elevutils.ProcessCmdArgs()

	Logger.Info().Msg("Starting Dispatcher Tester Programme")

	cfg := elevconf.LoadEnv(elevconf.Default(), envFile)
	if algorithm != "" {
		if alg, ok := elevconsts.ParseAlgorithm(algorithm); ok {
			cfg.Algorithm = alg
		} else {
			Logger.Fatal().Msgf("Unknown algorithm %q", algorithm)
		}
	}

	meta := elevmetadata.New(identifier, elevutils.GetGitHash(), "127.0.0.1", portNumber)
	dispatcher, err := elevdispatch.NewDispatcher(cfg, meta)
	if err != nil {
		Logger.Fatal().Msgf("Could not build dispatcher: %v", err)
	}
	dispatcher.Start()

	// Loopback status frames: broadcast on the configured port and watch for
	// our own frames, the way external tooling would.
	network := elevnet.NewFleetNetwork(meta, dispatcher.Status)
	if err := network.Listen.Start(); err != nil {
		Logger.Warn().Msgf("Status listener not available: %v", err)
	} else if err := network.Broadcast.Start(2 * time.Second); err != nil {
		Logger.Warn().Msgf("Status broadcast not available: %v", err)
	} else {
		go func() {
			for frame := range network.Listen.FramesFound {
				Logger.Debug().Msgf("Status frame from %s: pending=%d",
					frame.Meta.Identifier, frame.Status.PendingCount)
			}
		}()
	}

	levels := []elevaccess.AccessLevel{
		elevaccess.Standard(),
		elevaccess.Standard(),
		elevaccess.Standard(),
		elevaccess.VIP(),
	}

	for i := 0; i < TRAFFIC_REQUESTS; i++ {
		pickup := cfg.MinFloor + rand.Intn(cfg.MaxFloor-cfg.MinFloor+1)
		destination := cfg.MinFloor + rand.Intn(cfg.MaxFloor-cfg.MinFloor+1)
		if pickup == destination {
			continue
		}
		level := levels[rand.Intn(len(levels))]
		id, err := dispatcher.Submit(pickup, destination, elevconsts.PriorityNormal, level, nil)
		if err != nil {
			Logger.Warn().Msgf("Submission rejected: %v", err)
			continue
		}
		Logger.Info().Msgf("Submitted request #%d (%d->%d, %s)", id, pickup, destination, level.Name)
		time.Sleep(200 * time.Millisecond)
	}

	deadline := time.After(RUN_FOR)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
			status := dispatcher.Status()
			Logger.Info().Msgf("Pending=%d, unassigned=%d", status.PendingCount, status.UnassignedCount)
			for _, w := range status.Workers {
				Logger.Info().Msgf("  %s floor=%d state=%s stops=%d", w.Label, w.Floor, w.State, w.PendingStops)
			}
			if done := dispatcher.DrainCompletedRequestIDs(); len(done) > 0 {
				Logger.Info().Msgf("Completed: %v", done)
			}
		}
	}

	metrics := dispatcher.Metrics()
	Logger.Info().Msgf("Totals: submitted=%d completed=%d unassignable=%d peakInFlight=%d",
		metrics.TotalRequests, metrics.CompletedRequests, metrics.UnassignableRequests, metrics.PeakInFlight)
	Logger.Info().Msgf("Latency: dispatch=%v wait=%v ride=%v",
		metrics.AvgDispatchTime, metrics.AvgWaitTime, metrics.AvgRideTime)
	for i, w := range metrics.Workers {
		Logger.Info().Msgf("Car %d: trips=%d floors=%d utilization=%.2f",
			i, w.TripsCompleted, w.FloorsTraversed, w.Utilization)
	}

	dispatcher.Stop()
}
