package plan

import "time"

// FallbackRenderer is the wifi-fallback plan: a soft pulsing halo base with
// a small number of independently colored comets running along the strip,
// each trailing a short fade.
type FallbackRenderer struct {
	base      Color
	speed     uint8
	wrap      uint8
	comets    int
	spacing   int
	hueStep   uint8
	trailLen  int
	trailFade uint8
}

// NewFallbackRenderer creates a fallback renderer. spacing is the head
// distance between comets; trailFade is the per-pixel fade increment of the
// trail.
func NewFallbackRenderer(base Color, speed, wrap uint8, comets, spacing int, hueStep uint8, trailLen int, trailFade uint8) *FallbackRenderer {
	return &FallbackRenderer{
		base:      base,
		speed:     speed,
		wrap:      wrap,
		comets:    comets,
		spacing:   spacing,
		hueStep:   hueStep,
		trailLen:  trailLen,
		trailFade: trailFade,
	}
}

func (r *FallbackRenderer) Reset(s *State, now time.Time) {
	*s = State{ActivatedAt: now}
}

func (r *FallbackRenderer) Render(s *State, now time.Time, buf []Led) {
	s.Step++
	s.Pos++
	s.Hue += r.hueStep

	brightness := Sin8(s.Step * r.speed)
	Fill(buf, r.base.At(brightness))

	for i := 0; i < r.comets; i++ {
		pos := (s.Pos + i*r.spacing) % len(buf)
		hue := s.Hue + uint8(i)*85
		head := HSV(hue, 255)

		buf[pos] = head
		for j := 1; j <= r.trailLen; j++ {
			p := pos + j
			if p < len(buf) {
				buf[p] = head.FadeBy(uint8(j) * r.trailFade)
			}
		}
	}

	if s.Step > r.wrap {
		s.Step = 0
	}
	if s.Pos >= len(buf) {
		s.Pos = 0
	}
}
