package plan

import "time"

// PulseRenderer paints the whole buffer in one color whose brightness
// follows Sin8. Idle, Show, Special and the fallback halo base all share
// this structure; they differ in color, speed multiplier and the step wrap
// threshold.
type PulseRenderer struct {
	color Color
	speed uint8
	wrap  uint8
}

// NewPulseRenderer creates a pulse renderer. speed multiplies the step
// before the sine lookup; wrap is the step value after which the counter
// resets to keep the pulse period stable.
func NewPulseRenderer(color Color, speed, wrap uint8) *PulseRenderer {
	return &PulseRenderer{color: color, speed: speed, wrap: wrap}
}

func (r *PulseRenderer) Reset(s *State, now time.Time) {
	*s = State{ActivatedAt: now}
}

func (r *PulseRenderer) Render(s *State, now time.Time, buf []Led) {
	s.Step++
	brightness := Sin8(s.Step * r.speed)
	Fill(buf, r.color.At(brightness))
	if s.Step > r.wrap {
		s.Step = 0
	}
}
