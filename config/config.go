package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full device profile, read from the YAML config file. One
// physical unit runs one instance of the daemon with one Config.
type Config struct {
	RealHW     bool   `yaml:"-"`
	Configfile string `yaml:"-"`

	Device   DeviceConfig   `yaml:"Device"`
	Plans    PlansConfig    `yaml:"Plans"`
	Server   ServerConfig   `yaml:"Server"`
	WiFi     WiFiConfig     `yaml:"WiFi"`
	Trigger  TriggerConfig  `yaml:"Trigger"`
	OTA      OTAConfig      `yaml:"OTA"`
	Daylight DaylightConfig `yaml:"Daylight"`
	Hardware HardwareConfig `yaml:"Hardware"`
	Logging  LoggingConfig  `yaml:"Logging"`
}

// DeviceConfig identifies the unit and fixes its render loop parameters.
type DeviceConfig struct {
	Name         string        `yaml:"Name"`
	LedsTotal    int           `yaml:"LedsTotal"`
	TickInterval time.Duration `yaml:"TickInterval"`
	Brightness   float64       `yaml:"Brightness"`
	StartPlan    string        `yaml:"StartPlan"`
	SafePlan     string        `yaml:"SafePlan"`
}

// PlansConfig enables and parameterizes the plans this device supports.
type PlansConfig struct {
	Idle     PulsePlanConfig    `yaml:"Idle"`
	Show     PulsePlanConfig    `yaml:"Show"`
	Special  PulsePlanConfig    `yaml:"Special"`
	Button   PartyPlanConfig    `yaml:"Button"`
	Skip     SkipPlanConfig     `yaml:"Skip"`
	Fallback FallbackPlanConfig `yaml:"Fallback"`
	Rainbow  RainbowPlanConfig  `yaml:"Rainbow"`
}

// PulsePlanConfig drives the single-hue pulse plans (Idle, Show, Special).
type PulsePlanConfig struct {
	Enabled bool       `yaml:"Enabled"`
	Color   [3]float64 `yaml:"Color"`
	Speed   uint8      `yaml:"Speed"`
	Wrap    uint8      `yaml:"Wrap"`
}

// PartyPlanConfig drives the bounded button/party plan.
type PartyPlanConfig struct {
	Enabled       bool          `yaml:"Enabled"`
	Duration      time.Duration `yaml:"Duration"`
	HueStep       uint8         `yaml:"HueStep"`
	GlitterChance int           `yaml:"GlitterChance"`
	// CommandLocked and ConnLocked protect a running party plan from
	// being preempted by operator commands or connectivity changes.
	CommandLocked bool `yaml:"CommandLocked"`
	ConnLocked    bool `yaml:"ConnLocked"`
}

// SkipPlanConfig drives the short white-flash plan.
type SkipPlanConfig struct {
	Enabled       bool          `yaml:"Enabled"`
	Duration      time.Duration `yaml:"Duration"`
	FlashInterval time.Duration `yaml:"FlashInterval"`
}

// FallbackPlanConfig drives the offline halo-plus-comets plan.
type FallbackPlanConfig struct {
	Enabled      bool       `yaml:"Enabled"`
	Color        [3]float64 `yaml:"Color"`
	Speed        uint8      `yaml:"Speed"`
	Wrap         uint8      `yaml:"Wrap"`
	Comets       int        `yaml:"Comets"`
	CometSpacing int        `yaml:"CometSpacing"`
	HueStep      uint8      `yaml:"HueStep"`
	TrailLen     int        `yaml:"TrailLen"`
	TrailFade    uint8      `yaml:"TrailFade"`
}

// RainbowPlanConfig drives the flowing-wave ambient plan.
type RainbowPlanConfig struct {
	Enabled       bool  `yaml:"Enabled"`
	WaveSpeed     uint8 `yaml:"WaveSpeed"`
	WaveStep      uint8 `yaml:"WaveStep"`
	MaxBrightness uint8 `yaml:"MaxBrightness"`
}

// ServerConfig configures the HTTP command surface.
type ServerConfig struct {
	Addr string `yaml:"Addr"`
}

// WiFiConfig configures the connectivity monitor. ProbeAddr is dialed
// periodically to decide the link state; Interface is used for the status
// report (IP address, RSSI).
type WiFiConfig struct {
	Enabled       bool          `yaml:"Enabled"`
	Interface     string        `yaml:"Interface"`
	ProbeAddr     string        `yaml:"ProbeAddr"`
	ProbeInterval time.Duration `yaml:"ProbeInterval"`
	ProbeTimeout  time.Duration `yaml:"ProbeTimeout"`
}

// TriggerConfig configures the optional GPIO trigger button that fires the
// party plan, the way the original button units did.
type TriggerConfig struct {
	Enabled  bool          `yaml:"Enabled"`
	Pin      uint8         `yaml:"Pin"`
	Debounce time.Duration `yaml:"Debounce"`
	Poll     time.Duration `yaml:"Poll"`
}

// OTAConfig configures the firmware update receiver.
type OTAConfig struct {
	StagingPath string `yaml:"StagingPath"`
}

// DaylightConfig dims the installation during daylight hours.
type DaylightConfig struct {
	Enabled   bool    `yaml:"Enabled"`
	Latitude  float64 `yaml:"Latitude"`
	Longitude float64 `yaml:"Longitude"`
	DayFactor float64 `yaml:"DayFactor"`
}

// SegmentConfig maps a range of the logical pixel buffer onto a physical
// strip section.
type SegmentConfig struct {
	FirstLed int  `yaml:"FirstLed"`
	LastLed  int  `yaml:"LastLed"`
	Reverse  bool `yaml:"Reverse"`
}

// HardwareConfig configures the SPI LED output.
type HardwareConfig struct {
	LEDType         string          `yaml:"LEDType"`
	SPIDevice       string          `yaml:"SPIDevice"`
	SPIFrequency    int64           `yaml:"SPIFrequency"`
	ColorCorrection [3]float64      `yaml:"ColorCorrection"`
	LedSegments     []SegmentConfig `yaml:"LedSegments"`
}

// LoggingConfig configures the slog backend.
type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// ReadConfig reads and validates the config file.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	var conf Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.Configfile = cfile

	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) applyDefaults() {
	if c.Device.TickInterval == 0 {
		c.Device.TickInterval = 20 * time.Millisecond
	}
	if c.Device.Brightness == 0 {
		c.Device.Brightness = 255
	}
	if c.Device.StartPlan == "" {
		c.Device.StartPlan = "idle"
	}
	if c.Device.SafePlan == "" {
		c.Device.SafePlan = "idle"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.WiFi.ProbeInterval == 0 {
		c.WiFi.ProbeInterval = 10 * time.Second
	}
	if c.WiFi.ProbeTimeout == 0 {
		c.WiFi.ProbeTimeout = 2 * time.Second
	}
	if c.Trigger.Debounce == 0 {
		c.Trigger.Debounce = 50 * time.Millisecond
	}
	if c.Trigger.Poll == 0 {
		c.Trigger.Poll = 10 * time.Millisecond
	}
	if c.OTA.StagingPath == "" {
		c.OTA.StagingPath = os.TempDir() + "/glow-firmware.bin"
	}
	if c.Daylight.DayFactor == 0 {
		c.Daylight.DayFactor = 0.2
	}
	if c.Hardware.ColorCorrection == [3]float64{} {
		c.Hardware.ColorCorrection = [3]float64{1, 1, 1}
	}
}

// Validate checks the configuration for consistency. It is called on
// startup and again whenever the runtime config API rewrites the file.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("Device.Name must be set")
	}
	if c.Device.LedsTotal <= 0 {
		return fmt.Errorf("Device.LedsTotal must be positive, got %d", c.Device.LedsTotal)
	}
	if c.Device.TickInterval <= 0 {
		return fmt.Errorf("Device.TickInterval must be positive")
	}
	if c.Device.Brightness < 0 || c.Device.Brightness > 255 {
		return fmt.Errorf("Device.Brightness must be between 0 and 255, got %f", c.Device.Brightness)
	}
	if !c.Plans.Idle.Enabled {
		return fmt.Errorf("the Idle plan must be enabled, it is the expiry and reconnect target")
	}
	enabled := c.enabledPlans()
	if !enabled[c.Device.StartPlan] {
		return fmt.Errorf("StartPlan %q is not an enabled plan", c.Device.StartPlan)
	}
	if !enabled[c.Device.SafePlan] {
		return fmt.Errorf("SafePlan %q is not an enabled plan", c.Device.SafePlan)
	}
	for _, col := range [][3]float64{c.Plans.Idle.Color, c.Plans.Show.Color, c.Plans.Special.Color, c.Plans.Fallback.Color} {
		for _, v := range col {
			if v < 0 || v > 255 {
				return fmt.Errorf("plan color component %f must be between 0 and 255", v)
			}
		}
	}
	if c.Plans.Button.Enabled && c.Plans.Button.Duration <= 0 {
		return fmt.Errorf("Button plan needs a positive Duration")
	}
	if c.Plans.Skip.Enabled {
		if c.Plans.Skip.Duration <= 0 || c.Plans.Skip.FlashInterval <= 0 {
			return fmt.Errorf("Skip plan needs positive Duration and FlashInterval")
		}
	}
	if c.Plans.Fallback.Enabled && c.Plans.Fallback.Comets <= 0 {
		return fmt.Errorf("Fallback plan needs at least one comet")
	}
	for _, seg := range c.Hardware.LedSegments {
		first, last := seg.FirstLed, seg.LastLed
		if first > last {
			first, last = last, first
		}
		if first < 0 || last >= c.Device.LedsTotal {
			return fmt.Errorf("segment [%d,%d] must be between 0 and %d", seg.FirstLed, seg.LastLed, c.Device.LedsTotal-1)
		}
	}
	if c.Daylight.Enabled {
		if c.Daylight.Latitude < -90 || c.Daylight.Latitude > 90 {
			return fmt.Errorf("Daylight.Latitude out of range: %f", c.Daylight.Latitude)
		}
		if c.Daylight.Longitude < -180 || c.Daylight.Longitude > 180 {
			return fmt.Errorf("Daylight.Longitude out of range: %f", c.Daylight.Longitude)
		}
		if c.Daylight.DayFactor < 0 || c.Daylight.DayFactor > 1 {
			return fmt.Errorf("Daylight.DayFactor must be between 0 and 1, got %f", c.Daylight.DayFactor)
		}
	}
	return nil
}

func (c *Config) enabledPlans() map[string]bool {
	return map[string]bool{
		"idle":     c.Plans.Idle.Enabled,
		"show":     c.Plans.Show.Enabled,
		"special":  c.Plans.Special.Enabled,
		"button":   c.Plans.Button.Enabled,
		"skip":     c.Plans.Skip.Enabled,
		"fallback": c.Plans.Fallback.Enabled,
		"rainbow":  c.Plans.Rainbow.Enabled,
	}
}
