package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackRendererCometsAndHalo(t *testing.T) {
	base := Color{255, 180, 80}
	r := NewFallbackRenderer(base, 2, 127, 2, 5, 5, 3, 50)
	var s State
	r.Reset(&s, time.Now())

	buf := make([]Led, 20)
	r.Render(&s, time.Now(), buf)

	assert.Equal(t, uint8(1), s.Step)
	assert.Equal(t, 1, s.Pos)
	assert.Equal(t, uint8(5), s.Hue)

	// Halo base where no comet painted over it.
	halo := base.At(Sin8(2))
	assert.Equal(t, halo, buf[0])
	assert.Equal(t, halo, buf[12])

	// Comet heads at pos and pos+spacing, hues 85 apart.
	head0 := HSV(5, 255)
	head1 := HSV(90, 255)
	assert.Equal(t, head0, buf[1])
	assert.Equal(t, head1, buf[6])

	// Trail fades in fixed increments behind each head.
	assert.Equal(t, head0.FadeBy(50), buf[2])
	assert.Equal(t, head0.FadeBy(100), buf[3])
	assert.Equal(t, head0.FadeBy(150), buf[4])
}

func TestFallbackRendererPositionWraps(t *testing.T) {
	r := NewFallbackRenderer(Color{10, 10, 10}, 2, 127, 1, 0, 5, 3, 50)
	var s State
	r.Reset(&s, time.Now())
	s.Pos = 19

	buf := make([]Led, 20)
	r.Render(&s, time.Now(), buf)

	// Pos advanced to 20, the head lands on index 0 and the counter wraps.
	assert.Equal(t, 0, s.Pos)
	assert.Equal(t, HSV(5, 255), buf[0])
}

func TestFallbackRendererTrailStopsAtEnd(t *testing.T) {
	r := NewFallbackRenderer(Color{0, 0, 0}, 2, 127, 1, 0, 0, 3, 50)
	var s State
	r.Reset(&s, time.Now())
	s.Pos = 17

	// Head lands on the last pixel; the trail would run past the end and
	// must be dropped instead of wrapping.
	buf := make([]Led, 19)
	assert.NotPanics(t, func() { r.Render(&s, time.Now(), buf) })
	assert.Equal(t, HSV(0, 255), buf[18])
}

func TestFallbackRendererStepWraps(t *testing.T) {
	r := NewFallbackRenderer(Color{10, 10, 10}, 2, 127, 1, 0, 5, 0, 50)
	var s State
	r.Reset(&s, time.Now())
	s.Step = 127

	buf := make([]Led, 10)
	r.Render(&s, time.Now(), buf)
	assert.Equal(t, uint8(0), s.Step)
}
