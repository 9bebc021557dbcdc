package plan

import "time"

// Party sub-patterns, selected by elapsed seconds modulo four.
const (
	partyRainbowWave = iota
	partyExplosion
	partyStripes
	partySparkle
)

// PartyRenderer is the bounded button/party plan: fast hue cycling through
// four one-second sub-patterns, with a low-probability additive white
// glitter pixel on every tick.
type PartyRenderer struct {
	rng           Rand
	hueStep       uint8
	glitterChance int // out of 256
}

// NewPartyRenderer creates a party renderer. hueStep is the per-tick hue
// advance; glitterChance is the per-tick glitter probability out of 256.
func NewPartyRenderer(rng Rand, hueStep uint8, glitterChance int) *PartyRenderer {
	return &PartyRenderer{rng: rng, hueStep: hueStep, glitterChance: glitterChance}
}

func (r *PartyRenderer) Reset(s *State, now time.Time) {
	*s = State{ActivatedAt: now}
}

func (r *PartyRenderer) Render(s *State, now time.Time, buf []Led) {
	s.Step++
	s.Hue += r.hueStep

	elapsed := now.Sub(s.ActivatedAt)
	s.Pattern = uint8((elapsed.Milliseconds() / 1000) % 4)

	switch s.Pattern {
	case partyRainbowWave:
		for i := range buf {
			buf[i] = HSV(s.Hue+uint8(i*3), 255)
		}
	case partyExplosion:
		for i := range buf {
			if r.rng.IntN(256) < 128 {
				buf[i] = HSV(s.Hue+uint8(r.rng.IntN(64)), 255)
			} else {
				buf[i] = Led{}
			}
		}
	case partyStripes:
		for i := range buf {
			if i%2 == 0 {
				buf[i] = HSV(s.Hue, 255)
			} else {
				buf[i] = HSV(s.Hue+128, 255)
			}
		}
	case partySparkle:
		Clear(buf)
		for i := 0; i < len(buf)/4; i++ {
			buf[r.rng.IntN(len(buf))] = HSV(s.Hue+uint8(r.rng.IntN(64)), 255)
		}
	}

	if r.rng.IntN(256) < r.glitterChance {
		idx := r.rng.IntN(len(buf))
		buf[idx] = buf[idx].Add(White)
	}
}
