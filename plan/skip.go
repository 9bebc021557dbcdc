package plan

import "time"

// SkipRenderer is the short bounded skip plan: alternating full-white and
// black windows at fixed offsets. The plan's duration (owned by the state
// machine) ends it after the last black window.
type SkipRenderer struct {
	flashInterval time.Duration
}

// NewSkipRenderer creates a skip renderer with the given flash window
// length. The original phase table uses 150ms windows over a 600ms plan.
func NewSkipRenderer(flashInterval time.Duration) *SkipRenderer {
	return &SkipRenderer{flashInterval: flashInterval}
}

func (r *SkipRenderer) Reset(s *State, now time.Time) {
	*s = State{ActivatedAt: now}
}

func (r *SkipRenderer) Render(s *State, now time.Time, buf []Led) {
	elapsed := now.Sub(s.ActivatedAt)
	phase := int(elapsed / r.flashInterval)
	if phase%2 == 0 {
		Fill(buf, White)
	} else {
		Clear(buf)
	}
}
