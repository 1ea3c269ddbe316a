package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// DefaultTracePath is the trace read by annotate when no path is given.
const DefaultTracePath = "log.txt"

// Viper keys. Flags are bound to the same names.
const (
	KeyTrace     = "trace"
	KeyOutput    = "output"
	KeyColor     = "color"
	KeyFilter    = "filter"
	KeyRules     = "rules"
	KeyPort      = "port"
	KeyStateFile = "state-file"
	KeyVerbose   = "verbose"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Trace     string `env:"TRACEMON_TRACE"      envDefault:"log.txt"`
	Output    string `env:"TRACEMON_OUTPUT"     envDefault:"text"`
	Color     bool   `env:"TRACEMON_COLOR"      envDefault:"false"`
	Filter    string `env:"TRACEMON_FILTER"`
	Rules     string `env:"TRACEMON_RULES"`
	Port      string `env:"TRACEMON_PORT"       envDefault:"7777"`
	StateFile string `env:"TRACEMON_STATE_FILE" envDefault:".tracemon-state.json"`
	Verbose   bool   `env:"TRACEMON_VERBOSE"    envDefault:"false"`
}

// Load reads Settings from the environment, then applies every key that v
// has explicitly set (changed flags or config file entries).
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if v == nil {
		return &s, nil
	}

	strs := map[string]*string{
		KeyTrace:     &s.Trace,
		KeyOutput:    &s.Output,
		KeyFilter:    &s.Filter,
		KeyRules:     &s.Rules,
		KeyPort:      &s.Port,
		KeyStateFile: &s.StateFile,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	if v.IsSet(KeyColor) {
		s.Color = v.GetBool(KeyColor)
	}
	if v.IsSet(KeyVerbose) {
		s.Verbose = v.GetBool(KeyVerbose)
	}

	return &s, nil
}
