package engine

import (
	"fmt"

	"github.com/flamingods/glow/plan"
)

// Event is a transition trigger consumed by the Controller. Events are
// transient: they are queued by their sources and drained once per tick.
type Event interface {
	isEvent()
}

// CommandEvent is an explicit operator command to switch plans. Origin
// names the source ("http", "gpio", "station:<id>") for logging.
type CommandEvent struct {
	Plan   plan.Plan
	Origin string
}

// ConnectivityEvent reports a change of the network link state.
type ConnectivityEvent struct {
	Connected bool
}

// UpdatePhase is one step of the firmware-update lifecycle.
type UpdatePhase int

const (
	UpdateStarted UpdatePhase = iota
	UpdateProgress
	UpdateEnded
	UpdateFailed
)

func (p UpdatePhase) String() string {
	switch p {
	case UpdateStarted:
		return "started"
	case UpdateProgress:
		return "progress"
	case UpdateEnded:
		return "ended"
	case UpdateFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// UpdateEvent reports firmware-update lifecycle activity. Progress is a
// percentage and only meaningful for UpdateProgress.
type UpdateEvent struct {
	Phase    UpdatePhase
	Progress int
}

func (CommandEvent) isEvent()      {}
func (ConnectivityEvent) isEvent() {}
func (UpdateEvent) isEvent()       {}

// MapColor returns the target plan for a single station color. The mapping
// is a static table: party colors map to the button plan, calm colors to
// idle, blue to the fallback ambience.
func MapColor(color string) (plan.Plan, error) {
	switch color {
	case "red", "yellow":
		return plan.Button, nil
	case "green", "white":
		return plan.Idle, nil
	case "blue":
		return plan.Fallback, nil
	}
	return "", fmt.Errorf("unknown station color %q", color)
}

// MapColors returns the target plan for a station color set. A set of two
// or more colors always maps to the button plan regardless of its members,
// even ones outside the single-color table; a single-element set behaves
// like MapColor. An empty set is an error.
func MapColors(colors []string) (plan.Plan, error) {
	switch len(colors) {
	case 0:
		return "", fmt.Errorf("empty color set")
	case 1:
		return MapColor(colors[0])
	}
	return plan.Button, nil
}
