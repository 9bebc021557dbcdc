package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSkipRendererPhases(t *testing.T) {
	r := NewSkipRenderer(150 * time.Millisecond)
	var s State
	start := time.Now()
	r.Reset(&s, start)

	cases := []struct {
		elapsed time.Duration
		white   bool
	}{
		{0, true},
		{149 * time.Millisecond, true},
		{150 * time.Millisecond, false},
		{299 * time.Millisecond, false},
		{300 * time.Millisecond, true},
		{450 * time.Millisecond, false},
	}

	buf := make([]Led, 4)
	for _, tc := range cases {
		r.Render(&s, start.Add(tc.elapsed), buf)
		for i := range buf {
			if tc.white {
				assert.Equal(t, White, buf[i], "expected white at %v", tc.elapsed)
			} else {
				assert.True(t, buf[i].IsEmpty(), "expected black at %v", tc.elapsed)
			}
		}
	}
}
