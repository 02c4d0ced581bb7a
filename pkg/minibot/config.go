package minibot

import (
	"flag"
	"fmt"
	"strings"

	"github.com/denisbrodbeck/machineid"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// Config defines the configuration for a robot session.
type Config struct {
	// ID is the robot's protocol identity. Defaults to a machine
	// derived id trimmed to fit the wire format.
	ID string
	// Addr is the address advertised in discovery pings.
	Addr string
	// PWM peripheral setup.
	FreqHz         int
	ResolutionBits uint
}

var defaultConfig = Config{
	FreqHz:         DefaultFreqHz,
	ResolutionBits: DefaultResolutionBits,
}

func init() {
	if id, err := machineid.ID(); err == nil {
		id = strings.Replace(id, "-", "", -1)
		if len(id) > wire.MaxIDLen {
			id = id[:wire.MaxIDLen]
		}
		defaultConfig.ID = id
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Robot identity, at most 15 ASCII chars.")
	flag.StringVar(&defaultConfig.Addr, "addr", defaultConfig.Addr, "Advertised address, empty for auto detection.")
	flag.IntVar(&defaultConfig.FreqHz, "pwm-freq", defaultConfig.FreqHz, "PWM carrier frequency (Hz).")
	flag.UintVar(&defaultConfig.ResolutionBits, "pwm-bits", defaultConfig.ResolutionBits, "PWM duty register width (bits).")
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

// NewSession creates a Session using the config.
func (c *Config) NewSession(socket DatagramSocket, driver ActuationDriver) (*Session, error) {
	id := wire.DeviceID(c.ID)
	if !id.IsValid() {
		return nil, fmt.Errorf("invalid robot id %q", c.ID)
	}
	s := NewSession(id, c.Addr, socket, driver)
	s.Mapper = Mapper{FreqHz: c.FreqHz, ResolutionBits: c.ResolutionBits}
	return s, nil
}
