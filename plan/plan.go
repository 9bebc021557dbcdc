package plan

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Plan is the tag of a lighting plan. Each device supports a subset of the
// known plans; exactly one is active at any time.
type Plan string

const (
	Idle     Plan = "idle"
	Button   Plan = "button"
	Skip     Plan = "skip"
	Show     Plan = "show"
	Special  Plan = "special"
	Fallback Plan = "fallback"
	Rainbow  Plan = "rainbow"
)

// Parse returns the Plan for a tag string, or an error for unknown tags.
func Parse(tag string) (Plan, error) {
	switch Plan(tag) {
	case Idle, Button, Skip, Show, Special, Fallback, Rainbow:
		return Plan(tag), nil
	}
	return "", fmt.Errorf("unknown plan %q", tag)
}

// State is the per-plan animation state. It is created fresh on every plan
// activation and mutated only by the active renderer on each tick; no state
// survives a plan switch.
type State struct {
	// ActivatedAt anchors elapsed-time behaviour (bounded plans, phase
	// tables, sub-pattern selection).
	ActivatedAt time.Time
	// Step is the free-running pulse counter. Renderers wrap it at a
	// plan-specific threshold below the natural uint8 overflow so the
	// perceived period stays stable.
	Step uint8
	// Hue is the free-running color index, wrapping at 256.
	Hue uint8
	// Pattern is the currently selected sub-pattern (party plan).
	Pattern uint8
	// Pos is the comet head position (fallback plan), wrapping at the
	// buffer length.
	Pos int
}

// Renderer produces one plan's animation. Reset establishes the plan's
// canonical initial state; Render mutates state and paints the buffer for
// one tick. Implementations are deterministic except through the injected
// random source.
type Renderer interface {
	Reset(s *State, now time.Time)
	Render(s *State, now time.Time, buf []Led)
}

// Rand is the random source renderers draw from. It matches the subset of
// math/rand/v2 the animations need so tests can substitute a fixed sequence.
type Rand interface {
	IntN(n int) int
}

// DefaultRand returns the process-wide math/rand/v2 source.
func DefaultRand() Rand {
	return defaultRand{}
}

type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// Color is an RGB triple from configuration. At render time it is scaled by
// the current pulse brightness.
type Color [3]float64

// At returns the color scaled to brightness (0..255).
func (c Color) At(brightness uint8) Led {
	f := float64(brightness) / 255.0
	return Led{Red: c[0] * f, Green: c[1] * f, Blue: c[2] * f}
}
