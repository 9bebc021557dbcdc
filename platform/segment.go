package platform

import (
	"log/slog"

	c "github.com/flamingods/glow/config"
	p "github.com/flamingods/glow/plan"
)

// segment maps a range of the logical pixel buffer onto a section of the
// physical chain. Devices with several strips daisy-chained into one SPI
// line describe each strip as a segment; a Reverse segment is wired
// tail-first.
type segment struct {
	firstLed int
	lastLed  int
	reverse  bool
	leds     []p.Led
}

// parseSegments builds the segment list from config. Without any
// configured segments the whole buffer is one segment.
func parseSegments(hw c.HardwareConfig, ledsTotal int) []*segment {
	if len(hw.LedSegments) == 0 {
		return []*segment{newSegment(0, ledsTotal-1, false, ledsTotal)}
	}
	segments := make([]*segment, 0, len(hw.LedSegments))
	for _, seg := range hw.LedSegments {
		segments = append(segments, newSegment(seg.FirstLed, seg.LastLed, seg.Reverse, ledsTotal))
	}
	return segments
}

func newSegment(firstled, lastled int, reverse bool, ledsTotal int) *segment {
	if firstled > lastled {
		slog.Warn("First led index is bigger than last led index - swapping", "first", firstled, "last", lastled)
		firstled, lastled = lastled, firstled
	}
	firstled = clamp(firstled, ledsTotal)
	lastled = clamp(lastled, ledsTotal)
	return &segment{
		firstLed: firstled,
		lastLed:  lastled,
		reverse:  reverse,
		leds:     make([]p.Led, lastled-firstled+1),
	}
}

// setLeds copies the segment's slice of the logical buffer, applying
// reversal if configured.
func (s *segment) setLeds(sumleds []p.Led) {
	copy(s.leds, sumleds[s.firstLed:s.lastLed+1])
	if s.reverse {
		for i, j := 0, len(s.leds)-1; i < j; i, j = i+1, j-1 {
			s.leds[i], s.leds[j] = s.leds[j], s.leds[i]
		}
	}
}

// clamp ensures the LED index is within bounds.
func clamp(led int, ledsTotal int) int {
	if led < 0 {
		slog.Warn("led index smaller than 0 - using 0", "index", led)
		return 0
	}
	if led > ledsTotal-1 {
		slog.Warn("led index bigger than max index - using max", "index", led, "max", ledsTotal-1)
		return ledsTotal - 1
	}
	return led
}
