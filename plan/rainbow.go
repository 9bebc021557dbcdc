package plan

import "time"

// RainbowRenderer is the flowing-wave ambient plan used by the wave-type
// fixtures: per-pixel brightness follows a travelling sine while the hue
// drifts slowly across the whole strip.
type RainbowRenderer struct {
	waveSpeed uint8 // per-pixel phase offset
	waveStep  uint8 // per-tick wave advance
	maxBright uint8
}

// NewRainbowRenderer creates a rainbow wave renderer.
func NewRainbowRenderer(waveSpeed, waveStep, maxBright uint8) *RainbowRenderer {
	return &RainbowRenderer{waveSpeed: waveSpeed, waveStep: waveStep, maxBright: maxBright}
}

func (r *RainbowRenderer) Reset(s *State, now time.Time) {
	*s = State{ActivatedAt: now}
}

func (r *RainbowRenderer) Render(s *State, now time.Time, buf []Led) {
	for i := range buf {
		wavePos := s.Step + uint8(i)*r.waveSpeed
		brightness := uint8(uint16(Sin8(wavePos)) * uint16(r.maxBright) >> 8)
		buf[i] = HSV(s.Hue, brightness)
	}
	s.Step += r.waveStep
	s.Hue++
}
