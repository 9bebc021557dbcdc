package daylight

import (
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/flamingods/glow/config"
)

// Dimmer scales the global brightness during daylight hours. The
// installation runs outdoors; between sunrise and sunset the full output
// is invisible anyway, so it is dimmed to save the power budget.
type Dimmer struct {
	conf config.DaylightConfig
}

// NewDimmer creates a dimmer from the daylight config.
func NewDimmer(conf config.DaylightConfig) *Dimmer {
	return &Dimmer{conf: conf}
}

// Factor returns the brightness factor for now: 1.0 at night, the
// configured DayFactor between sunrise and sunset. Disabled dimmers always
// return 1.0.
func (d *Dimmer) Factor(now time.Time) float64 {
	if !d.conf.Enabled {
		return 1.0
	}
	rise, set := sunrise.SunriseSunset(
		d.conf.Latitude, d.conf.Longitude,
		now.Year(), now.Month(), now.Day(),
	)
	if now.After(rise) && now.Before(set) {
		return d.conf.DayFactor
	}
	return 1.0
}
