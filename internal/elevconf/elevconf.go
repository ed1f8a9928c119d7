package elevconf

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fvcoelho/elevator-sys-sub000/internal/elevconsts"
	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Log = logger.GetLogger()

// ElevatorConfig describes one car at construction time. A nil ServedFloors
// means the car serves every floor of the system.
type ElevatorConfig struct {
	Label        string
	InitialFloor int
	Type         elevconsts.ElevatorType
	ServedFloors map[int]bool
	Capacity     int
}

// CanServeFloor reports whether this configuration allows stopping at floor.
func (ec ElevatorConfig) CanServeFloor(floor int) bool {
	if ec.ServedFloors == nil {
		return true
	}
	return ec.ServedFloors[floor]
}

type SystemConfig struct {
	MinFloor int
	MaxFloor int

	Elevators []ElevatorConfig

	Algorithm elevconsts.Algorithm

	FloorTravelTime    time.Duration
	DoorTransitionTime time.Duration
	DoorDwellTime      time.Duration
	PollInterval       time.Duration
	IdleWait           time.Duration
}

// Default returns the compiled-in fleet: two local cars, one express car
// restricted to the lobby plus the top band, and one freight car.
func Default() SystemConfig {
	cfg := SystemConfig{
		MinFloor:           elevconsts.DEFAULT_LOBBY,
		MaxFloor:           elevconsts.DEFAULT_N_FLOORS,
		Algorithm:          elevconsts.AlgorithmNearest,
		FloorTravelTime:    elevconsts.DEFAULT_FLOOR_TRAVEL_TIME,
		DoorTransitionTime: elevconsts.DEFAULT_DOOR_TRANSITION_TIME,
		DoorDwellTime:      elevconsts.DEFAULT_DOOR_DWELL_TIME,
		PollInterval:       elevconsts.DEFAULT_POLL_INTERVAL,
		IdleWait:           elevconsts.DEFAULT_IDLE_WAIT,
	}

	cfg.Elevators = Fleet(2, 1, 1, cfg.MinFloor, cfg.MaxFloor)
	return cfg
}

// Fleet builds a fleet of the given composition, all cars parked at the lobby
// and labeled per type (L1, L2, E1, F1, ...). Express cars serve the lobby
// plus the top band.
func Fleet(locals, expresses, freights, minFloor, maxFloor int) []ElevatorConfig {
	var out []ElevatorConfig
	for i := 1; i <= locals; i++ {
		out = append(out, ElevatorConfig{
			Label:        fmt.Sprintf("L%d", i),
			InitialFloor: minFloor,
			Type:         elevconsts.Local,
			Capacity:     elevconsts.DEFAULT_CAPACITY,
		})
	}
	for i := 1; i <= expresses; i++ {
		out = append(out, ElevatorConfig{
			Label:        fmt.Sprintf("E%d", i),
			InitialFloor: minFloor,
			Type:         elevconsts.Express,
			ServedFloors: ExpressFloors(minFloor, maxFloor),
			Capacity:     elevconsts.DEFAULT_CAPACITY,
		})
	}
	for i := 1; i <= freights; i++ {
		out = append(out, ElevatorConfig{
			Label:        fmt.Sprintf("F%d", i),
			InitialFloor: minFloor,
			Type:         elevconsts.Freight,
			Capacity:     elevconsts.FREIGHT_CAPACITY,
		})
	}
	return out
}

// ExpressFloors builds the served-floor set of an express car: the lobby plus
// the upper band of the building.
func ExpressFloors(lobby, maxFloor int) map[int]bool {
	served := map[int]bool{lobby: true}
	start := elevconsts.EXPRESS_BAND_START
	if start > maxFloor {
		start = maxFloor
	}
	for f := start; f <= maxFloor; f++ {
		served[f] = true
	}
	return served
}

// Validate checks the invariants the dispatcher relies on.
func (cfg SystemConfig) Validate() error {
	if cfg.MinFloor >= cfg.MaxFloor {
		return fmt.Errorf("invalid floor range [%d, %d]", cfg.MinFloor, cfg.MaxFloor)
	}
	if len(cfg.Elevators) == 0 {
		return fmt.Errorf("no elevators configured")
	}
	for i, ec := range cfg.Elevators {
		if ec.InitialFloor < cfg.MinFloor || ec.InitialFloor > cfg.MaxFloor {
			return fmt.Errorf("elevator %d (%s): initial floor %d outside [%d, %d]",
				i, ec.Label, ec.InitialFloor, cfg.MinFloor, cfg.MaxFloor)
		}
		if !ec.CanServeFloor(ec.InitialFloor) {
			return fmt.Errorf("elevator %d (%s): initial floor %d not in served floors",
				i, ec.Label, ec.InitialFloor)
		}
		if ec.Capacity <= 0 {
			return fmt.Errorf("elevator %d (%s): capacity must be positive", i, ec.Label)
		}
	}
	if cfg.FloorTravelTime <= 0 || cfg.DoorTransitionTime <= 0 || cfg.DoorDwellTime <= 0 {
		return fmt.Errorf("simulated durations must be positive")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// LoadEnv applies overrides from a .env file (if present) and the process
// environment on top of the given config. Unknown or malformed values keep
// the existing setting and are logged.
func LoadEnv(cfg SystemConfig, envFile string) SystemConfig {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			Log.Warn().Msgf("Could not load env file %q: %v", envFile, err)
		}
	}

	if v := os.Getenv("DISPATCH_ALGORITHM"); v != "" {
		if alg, ok := elevconsts.ParseAlgorithm(v); ok {
			cfg.Algorithm = alg
		} else {
			Log.Warn().Msgf("Unknown DISPATCH_ALGORITHM %q, keeping %v", v, cfg.Algorithm)
		}
	}
	if v := os.Getenv("DISPATCH_MAX_FLOOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFloor = n
		} else {
			Log.Warn().Msgf("Malformed DISPATCH_MAX_FLOOR %q", v)
		}
	}
	locals := envInt("DISPATCH_LOCAL_CARS", -1)
	expresses := envInt("DISPATCH_EXPRESS_CARS", -1)
	freights := envInt("DISPATCH_FREIGHT_CARS", -1)
	if locals >= 0 || expresses >= 0 || freights >= 0 {
		current := make(map[elevconsts.ElevatorType]int)
		for _, ec := range cfg.Elevators {
			current[ec.Type]++
		}
		if locals < 0 {
			locals = current[elevconsts.Local]
		}
		if expresses < 0 {
			expresses = current[elevconsts.Express]
		}
		if freights < 0 {
			freights = current[elevconsts.Freight]
		}
		cfg.Elevators = Fleet(locals, expresses, freights, cfg.MinFloor, cfg.MaxFloor)
	}

	cfg.FloorTravelTime = envDuration("DISPATCH_FLOOR_TRAVEL_TIME", cfg.FloorTravelTime)
	cfg.DoorTransitionTime = envDuration("DISPATCH_DOOR_TRANSITION_TIME", cfg.DoorTransitionTime)
	cfg.DoorDwellTime = envDuration("DISPATCH_DOOR_DWELL_TIME", cfg.DoorDwellTime)
	cfg.PollInterval = envDuration("DISPATCH_POLL_INTERVAL", cfg.PollInterval)

	return cfg
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		Log.Warn().Msgf("Malformed %s %q", key, v)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		Log.Warn().Msgf("Malformed %s %q: %v", key, v, err)
		return fallback
	}
	return d
}
