// Package boilerconf loads a boiler's physical characteristics from a
// YAML file.
package boilerconf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/holla2040/steamboiler/internal/ctlstate"
)

// Config is the YAML shape of a boiler's characteristics file.
type Config struct {
	Capacity         float64   `yaml:"capacity"`
	MinimalLimit     float64   `yaml:"minimal_limit"`
	MaximalLimit     float64   `yaml:"maximal_limit"`
	MinimalNormal    float64   `yaml:"minimal_normal"`
	MaximalNormal    float64   `yaml:"maximal_normal"`
	MaximalSteamRate float64   `yaml:"maximal_steam_rate"`
	PumpCapacity     []float64 `yaml:"pump_capacity"`
}

// Load reads and parses a boiler characteristics file at path, and
// validates it before returning.
func Load(path string) (ctlstate.BoilerCharacteristics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ctlstate.BoilerCharacteristics{}, fmt.Errorf("boilerconf: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses boiler characteristics YAML from raw bytes.
func Parse(data []byte) (ctlstate.BoilerCharacteristics, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ctlstate.BoilerCharacteristics{}, fmt.Errorf("boilerconf: parse: %w", err)
	}

	chars := ctlstate.BoilerCharacteristics{
		Capacity:         c.Capacity,
		MinimalLimit:     c.MinimalLimit,
		MaximalLimit:     c.MaximalLimit,
		MinimalNormal:    c.MinimalNormal,
		MaximalNormal:    c.MaximalNormal,
		MaximalSteamRate: c.MaximalSteamRate,
		PumpCapacity:     append([]float64(nil), c.PumpCapacity...),
	}
	if err := chars.Validate(); err != nil {
		return ctlstate.BoilerCharacteristics{}, fmt.Errorf("boilerconf: %w", err)
	}
	return chars, nil
}
