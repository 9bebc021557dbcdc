package engine

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/flamingods/glow/plan"
)

// planEntry couples a renderer with its bound. A zero duration marks an
// unbounded plan.
type planEntry struct {
	renderer plan.Renderer
	duration time.Duration
}

// Machine owns the active plan tag, its animation state and the pixel
// buffer. All mutation happens on the tick loop; the active tag is guarded
// so the HTTP handlers can read it concurrently.
type Machine struct {
	mu      sync.RWMutex
	active  plan.Plan
	plans   map[plan.Plan]planEntry
	state   plan.State
	buf     []plan.Led
	expired bool
}

// NewMachine creates a machine with a fixed-length pixel buffer. The buffer
// length never changes for the lifetime of the device.
func NewMachine(ledsTotal int) *Machine {
	return &Machine{
		plans: make(map[plan.Plan]planEntry),
		buf:   make([]plan.Led, ledsTotal),
	}
}

// AddPlan registers a renderer for p. A zero duration makes the plan
// unbounded; a positive duration makes it expire after that much active
// time.
func (m *Machine) AddPlan(p plan.Plan, r plan.Renderer, duration time.Duration) {
	m.plans[p] = planEntry{renderer: r, duration: duration}
}

// Supports reports whether p is in the device's plan set.
func (m *Machine) Supports(p plan.Plan) bool {
	_, ok := m.plans[p]
	return ok
}

// Plans returns the supported plan set in stable order.
func (m *Machine) Plans() []plan.Plan {
	out := maps.Keys(m.plans)
	slices.Sort(out)
	return out
}

// SetPlan replaces the active plan and resets its state to the plan's
// canonical initial values. Repeated SetPlan to the same plan restarts the
// animation. It never fails for a registered plan; an unregistered plan is
// ignored with a warning.
func (m *Machine) SetPlan(p plan.Plan, now time.Time) {
	entry, ok := m.plans[p]
	if !ok {
		slog.Warn("Ignoring switch to unsupported plan", "plan", p)
		return
	}
	m.mu.Lock()
	m.active = p
	m.mu.Unlock()
	entry.renderer.Reset(&m.state, now)
	m.expired = false
}

// CurrentPlan returns the active plan tag.
func (m *Machine) CurrentPlan() plan.Plan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// ActivatedAt returns when the active plan was last (re)started.
func (m *Machine) ActivatedAt() time.Time {
	return m.state.ActivatedAt
}

// Expired reports whether the active plan is bounded and its duration has
// elapsed at now. It reports true at most once per activation; the caller
// is expected to transition away immediately.
func (m *Machine) Expired(now time.Time) bool {
	m.mu.RLock()
	entry := m.plans[m.active]
	m.mu.RUnlock()
	if entry.duration == 0 || m.expired {
		return false
	}
	if now.Sub(m.state.ActivatedAt) > entry.duration {
		m.expired = true
		return true
	}
	return false
}

// Tick renders one frame of the active plan into the pixel buffer,
// advancing the animation state. The expiry check belongs to the
// controller and must have run before Tick so the frame that exceeds a
// bound is never drawn in the old plan.
func (m *Machine) Tick(now time.Time) {
	m.mu.RLock()
	entry, ok := m.plans[m.active]
	m.mu.RUnlock()
	if !ok {
		return
	}
	entry.renderer.Render(&m.state, now, m.buf)
}

// Leds returns the pixel buffer. It is only safe to read between a Tick
// and the next one, from the tick loop itself.
func (m *Machine) Leds() []plan.Led {
	return m.buf
}
