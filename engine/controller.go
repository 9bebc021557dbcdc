package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/flamingods/glow/plan"
	"github.com/flamingods/glow/util"
)

// Policy configures the transition controller for one device.
type Policy struct {
	// SafePlan is forced when a firmware update starts.
	SafePlan plan.Plan
	// ConnLocked plans are not interrupted by connectivity changes (a
	// running party plan keeps running when the wifi drops).
	ConnLocked map[plan.Plan]bool
	// CommandLocked plans are not interrupted by operator commands.
	CommandLocked map[plan.Plan]bool
}

// Controller consumes transition events and applies the fixed priority
// policy: update lifecycle, then operator command, then connectivity
// change, then expiry. At most one transition is applied per tick, before
// that tick's frame is rendered.
type Controller struct {
	machine *Machine
	queue   *util.EventQueue[Event]
	policy  Policy

	// mu guards the flags below; the tick loop writes them, the HTTP
	// handlers read them.
	mu        sync.RWMutex
	connected bool
	// updateActive suppresses all other transitions between update start
	// and its end or failure.
	updateActive bool
	// terminal is set after a successful update; the device is expected to
	// restart, no further transition matters.
	terminal bool
}

// NewController creates a controller driving machine. connected is the
// link state at startup.
func NewController(machine *Machine, policy Policy, connected bool) *Controller {
	return &Controller{
		machine:   machine,
		queue:     util.NewEventQueue[Event](),
		policy:    policy,
		connected: connected,
	}
}

// Enqueue adds an event for the next tick. Safe from any goroutine.
func (c *Controller) Enqueue(ev Event) {
	c.queue.Push(ev)
}

// UpdateActive reports whether a firmware update is suppressing
// transitions.
func (c *Controller) UpdateActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updateActive
}

// Connected reports the link state as last observed by the controller.
func (c *Controller) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Tick drains the event queue, applies at most one transition, then
// renders the active plan's frame for this tick.
func (c *Controller) Tick(now time.Time) {
	c.apply(c.queue.Drain(), now)
	c.machine.Tick(now)
}

func (c *Controller) apply(events []Event, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	transitioned := false

	// Rule 1: update lifecycle dominates everything else.
	for _, ev := range events {
		up, ok := ev.(UpdateEvent)
		if !ok {
			continue
		}
		switch up.Phase {
		case UpdateStarted:
			c.updateActive = true
			c.setPlan(c.policy.SafePlan, now, "update started")
			transitioned = true
		case UpdateFailed:
			c.updateActive = false
			slog.Warn("Firmware update failed, resuming normal transitions")
		case UpdateEnded:
			c.updateActive = false
			c.terminal = true
			slog.Info("Firmware update complete, awaiting restart")
		case UpdateProgress:
			// informational only
		}
	}

	// Connectivity state is tracked even while transitions are suppressed,
	// so a later rule evaluation sees the current link state.
	connChanged := false
	for _, ev := range events {
		ce, ok := ev.(ConnectivityEvent)
		if !ok {
			continue
		}
		if ce.Connected != c.connected {
			c.connected = ce.Connected
			connChanged = true
		}
	}

	if c.updateActive || c.terminal || transitioned {
		return
	}

	// Rule 2: explicit operator command; the latest one wins.
	for i := len(events) - 1; i >= 0; i-- {
		cmd, ok := events[i].(CommandEvent)
		if !ok {
			continue
		}
		cur := c.machine.CurrentPlan()
		if c.policy.CommandLocked[cur] {
			slog.Info("Command ignored, current plan is command-locked", "plan", cur, "requested", cmd.Plan)
		} else if !c.machine.Supports(cmd.Plan) {
			slog.Warn("Command for unsupported plan ignored", "requested", cmd.Plan, "origin", cmd.Origin)
		} else {
			c.setPlan(cmd.Plan, now, "command from "+cmd.Origin)
			transitioned = true
		}
		break
	}
	if transitioned {
		return
	}

	// Rule 3: connectivity edge, unless the current plan is locked
	// against it.
	if connChanged {
		cur := c.machine.CurrentPlan()
		if c.policy.ConnLocked[cur] {
			slog.Info("Connectivity change leaves locked plan running", "plan", cur, "connected", c.connected)
		} else if c.connected {
			c.setPlan(plan.Idle, now, "link restored")
			return
		} else if c.machine.Supports(plan.Fallback) {
			c.setPlan(plan.Fallback, now, "link lost")
			return
		}
	}

	// Rule 4: bounded-plan expiry, lowest priority.
	if c.machine.Expired(now) {
		target := plan.Idle
		if !c.connected && c.machine.Supports(plan.Fallback) {
			target = plan.Fallback
		}
		c.setPlan(target, now, "plan expired")
	}
}

func (c *Controller) setPlan(p plan.Plan, now time.Time, reason string) {
	from := c.machine.CurrentPlan()
	c.machine.SetPlan(p, now)
	slog.Info("Plan transition", "from", from, "to", p, "reason", reason)
}
