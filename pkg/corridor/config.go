package corridor

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/travigo/corridor/pkg/ctdf"
	"gopkg.in/yaml.v3"
)

//go:embed corridor.yaml
var defaultConfig []byte

type Config struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`

	StationA StationConfig `yaml:"stationA"`
	StationB StationConfig `yaml:"stationB"`

	Path []ctdf.Location `yaml:"path"`

	RoutePrefixes []string                  `yaml:"routePrefixes"`
	DirectionIDs  map[int]ctdf.Direction    `yaml:"directionIds"`
	Endpoints     map[ctdf.Direction]string `yaml:"endpoints"`

	RunningTimeMinutes         int `yaml:"runningTimeMinutes"`
	FreightTraverseMinutes     int `yaml:"freightTraverseMinutes"`
	FreightOffsetJitterMinutes int `yaml:"freightOffsetJitterMinutes"`

	Freight   []CommodityConfig `yaml:"freight"`
	Synthetic SyntheticConfig   `yaml:"synthetic"`
}

type StationConfig struct {
	Name      string            `yaml:"name"`
	StopIDs   []string          `yaml:"stopIds"`
	Platforms map[string]string `yaml:"platforms"`
	Anchor    ctdf.Location     `yaml:"anchor"`
}

// CommodityConfig describes one class of freight that regularly uses the
// corridor.
type CommodityConfig struct {
	Class       string `yaml:"class"`
	DailyCount  int    `yaml:"dailyCount"`
	Consist     string `yaml:"consist"`
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
}

// SyntheticConfig drives the built-in passenger timetable used when no
// published timetable is usable.
type SyntheticConfig struct {
	FirstDeparture string `yaml:"firstDeparture"`
	LastDeparture  string `yaml:"lastDeparture"`
	HeadwayMinutes int    `yaml:"headwayMinutes"`
	RoutePrefix    string `yaml:"routePrefix"`
}

func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse corridor config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func DefaultConfig() *Config {
	config, err := ParseConfig(defaultConfig)
	if err != nil {
		panic(err)
	}
	return config
}

// LoadConfig reads the corridor definition from path, or the built-in one
// when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return ParseConfig(defaultConfig)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corridor config: %w", err)
	}

	return ParseConfig(data)
}

func (c *Config) validate() error {
	if c.Timezone == "" {
		return errors.New("corridor config has no timezone")
	}
	if len(c.StationA.StopIDs) == 0 || len(c.StationB.StopIDs) == 0 {
		return errors.New("corridor config needs stop ids for both stations")
	}
	if c.RunningTimeMinutes <= 0 {
		return errors.New("corridor config needs a positive runningTimeMinutes")
	}
	if c.Synthetic.HeadwayMinutes <= 0 {
		return errors.New("corridor config needs a positive synthetic headwayMinutes")
	}

	return nil
}
