package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedRand always returns the same value (modulo n), which makes the
// random sub-patterns fully predictable.
type fixedRand struct{ v int }

func (f fixedRand) IntN(n int) int { return f.v % n }

func TestPartyRendererRainbowWave(t *testing.T) {
	r := NewPartyRenderer(fixedRand{100}, 3, 0)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 10)
	r.Render(&s, start, buf)

	// First second selects the rainbow wave; hue has advanced once.
	assert.Equal(t, uint8(0), s.Pattern)
	for i := range buf {
		assert.Equal(t, HSV(3+uint8(i*3), 255), buf[i])
	}
}

func TestPartyRendererStripes(t *testing.T) {
	r := NewPartyRenderer(fixedRand{100}, 3, 0)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 6)
	r.Render(&s, start.Add(2*time.Second), buf)

	assert.Equal(t, uint8(2), s.Pattern)
	for i := range buf {
		if i%2 == 0 {
			assert.Equal(t, HSV(3, 255), buf[i])
		} else {
			assert.Equal(t, HSV(131, 255), buf[i], "odd pixels carry the opposite hue")
		}
	}
}

func TestPartyRendererExplosion(t *testing.T) {
	// A rand stuck at 0 lights every pixel with a zero hue offset.
	r := NewPartyRenderer(fixedRand{0}, 3, 0)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 5)
	r.Render(&s, start.Add(1*time.Second), buf)

	assert.Equal(t, uint8(1), s.Pattern)
	for i := range buf {
		assert.Equal(t, HSV(3, 255), buf[i])
	}
}

func TestPartyRendererSparkle(t *testing.T) {
	r := NewPartyRenderer(fixedRand{0}, 3, 0)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 8)
	Fill(buf, White)
	r.Render(&s, start.Add(3*time.Second), buf)

	// Sparkle clears the buffer and lights len/4 random pixels; the stuck
	// rand keeps hitting index 0.
	assert.Equal(t, uint8(3), s.Pattern)
	assert.False(t, buf[0].IsEmpty())
	for i := 1; i < len(buf); i++ {
		assert.True(t, buf[i].IsEmpty(), "pixel %d should have been cleared", i)
	}
}

func TestPartyRendererGlitter(t *testing.T) {
	// Chance 256 out of 256 guarantees a glitter pixel every tick.
	r := NewPartyRenderer(fixedRand{0}, 3, 256)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 4)
	r.Render(&s, start.Add(2*time.Second), buf)

	// Stripes paints buf[0] with HSV(3,255); glitter adds white on top,
	// clamped at full.
	assert.Equal(t, HSV(3, 255).Add(White), buf[0])
}

func TestPartyRendererSubPatternCycles(t *testing.T) {
	r := NewPartyRenderer(fixedRand{100}, 3, 0)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	buf := make([]Led, 4)
	r.Render(&s, start.Add(4500*time.Millisecond), buf)
	assert.Equal(t, uint8(0), s.Pattern, "the cycle restarts after four seconds")
}
