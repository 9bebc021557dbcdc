package platform

import (
	p "github.com/flamingods/glow/plan"
)

// Platform abstracts the physical pixel output from the simulation. The
// tick loop hands over the rendered buffer once per tick together with the
// global brightness scalar.
type Platform interface {
	// Start initializes the platform (opens SPI, or starts the TUI).
	Start() error

	// Stop cleans up all platform resources.
	Stop()

	// DisplayLeds sends the complete state of all LEDs to the output
	// device. brightness is a global scalar in [0, 1].
	DisplayLeds(leds []p.Led, brightness float64)

	// Ready is closed when the platform can accept DisplayLeds calls.
	Ready() <-chan bool
}
