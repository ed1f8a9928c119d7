package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconf"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevdispatch"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevmetadata"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevnet"
	"github.com/fvcoelho/elevator-sys-sub000/internal/elevutils"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Logger = logger.GetLoggerConfigured(zerolog.DebugLevel)

func main() {
	identifier, portNumber, algorithm, envFile := elevutils.ProcessCmdArgs()

	// Starting Programme
	Logger.Info().Msg("Starting Dispatcher Programme")

	cfg := elevconf.LoadEnv(elevconf.Default(), envFile)
	if algorithm != "" {
		if alg, ok := elevconsts.ParseAlgorithm(algorithm); ok {
			cfg.Algorithm = alg
		} else {
			Logger.Fatal().Msgf("Unknown algorithm %q", algorithm)
		}
	}

	meta := elevmetadata.New(identifier, elevutils.GetGitHash(), elevutils.GetLocalIP(), portNumber)

	dispatcher, err := elevdispatch.NewDispatcher(cfg, meta)
	if err != nil {
		Logger.Fatal().Msgf("Could not build dispatcher: %v", err)
	}
	dispatcher.Start()

	Logger.Info().Msgf("Fleet: %v", meta.String())

	network := elevnet.NewFleetNetwork(meta, dispatcher.Status)
	if err := network.Broadcast.Start(time.Millisecond * 1000); err != nil {
		Logger.Error().Msgf("Status broadcast not available: %v", err)
	}

	select {}
}
