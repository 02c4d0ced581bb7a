package station

import (
	"flag"
	"time"
)

// Config defines the configuration for the station.
type Config struct {
	// StaleAfter is the robot expiry timeout.
	StaleAfter time.Duration
}

var defaultConfig = Config{
	StaleAfter: DefaultStaleAfter,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.StaleAfter, "stale-after", defaultConfig.StaleAfter, "Drop robots silent for this long.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewStation creates a Station using the config.
func (c *Config) NewStation(conn Conn) *Station {
	st := New(conn)
	st.Registry.StaleAfter = c.StaleAfter
	return st
}
