package config

// RuntimeConfig defines the subset of the configuration that can be safely
// modified at runtime through the config API. It excludes hardware,
// network and device identity settings.
type RuntimeConfig struct {
	Plans      PlansConfig `yaml:"Plans" json:"Plans"`
	Brightness float64     `yaml:"Brightness" json:"Brightness"`
}
