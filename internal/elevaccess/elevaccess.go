package elevaccess

import (
	"fmt"
	"sync"

	"github.com/fvcoelho/elevator-sys-sub000/internal/logger"
)

var Log = logger.GetLogger()

// AccessLevel is a value shared between requests. A nil AllowedFloors map
// means the level may use every floor.
type AccessLevel struct {
	Name          string
	AllowedFloors map[int]bool
	IsVIP         bool
}

// AllowsFloor reports whether the level's own floor set permits floor.
func (al AccessLevel) AllowsFloor(floor int) bool {
	if al.AllowedFloors == nil {
		return true
	}
	return al.AllowedFloors[floor]
}

// Built-in levels. Collaborators may construct their own.
func Standard() AccessLevel {
	return AccessLevel{Name: "standard"}
}

func VIP() AccessLevel {
	return AccessLevel{Name: "vip", IsVIP: true}
}

func Service() AccessLevel {
	return AccessLevel{Name: "service"}
}

// FloorRestriction is a per-floor policy. An empty AllowedLevelNames set
// admits every level name (subject to RequiresVIP).
type FloorRestriction struct {
	RequiresVIP       bool
	AllowedLevelNames map[string]bool
}

// DeniedError names the floor an access check rejected.
type DeniedError struct {
	Floor int
	Level string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access level %q denied to floor %d", e.Level, e.Floor)
}

// Controller evaluates floor restrictions. Restrictions can be replaced at
// runtime while submissions are checked concurrently.
type Controller struct {
	mu           sync.RWMutex
	restrictions map[int]FloorRestriction
}

func NewController() *Controller {
	return &Controller{restrictions: make(map[int]FloorRestriction)}
}

// SetFloorRestriction installs or replaces the policy for one floor.
func (c *Controller) SetFloorRestriction(floor int, r FloorRestriction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restrictions[floor] = r
	Log.Info().Msgf("Floor %d restriction set (requiresVIP=%v, levels=%d)",
		floor, r.RequiresVIP, len(r.AllowedLevelNames))
}

// ClearFloorRestriction removes the policy for one floor, if any.
func (c *Controller) ClearFloorRestriction(floor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.restrictions, floor)
}

// CanAccess checks one floor against the level's own floor set and any
// installed restriction. A nil error means access is granted.
func (c *Controller) CanAccess(level AccessLevel, floor int) error {
	if !level.AllowsFloor(floor) {
		return &DeniedError{Floor: floor, Level: level.Name}
	}

	c.mu.RLock()
	r, ok := c.restrictions[floor]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if r.RequiresVIP && !level.IsVIP {
		return &DeniedError{Floor: floor, Level: level.Name}
	}
	if len(r.AllowedLevelNames) > 0 && !r.AllowedLevelNames[level.Name] {
		return &DeniedError{Floor: floor, Level: level.Name}
	}
	return nil
}
