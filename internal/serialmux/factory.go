package serialmux

import (
	"fmt"

	"go.bug.st/serial"

	"github.com/banshee-data/yardwatch/internal/config"
	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/timeutil"
)

// NewRealSerialMux opens the gateway port at path with opts.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSerialMux[serial.Port](port), nil
}

// Open picks the transport cfg describes: the gateway serial port, a fixture
// replay, or a disabled mux when neither is set. A port wins over a fixture.
func Open(cfg *config.Config, clock timeutil.Clock) (SerialMuxInterface, error) {
	if path := cfg.GetSerialPort(); path != "" {
		opts := PortOptionsFromConfig(cfg.GetSerial())
		monitoring.Logf("opening gateway port %s (%d baud, %d%s%d)", path, opts.BaudRate, opts.DataBits, opts.Parity, opts.StopBits)
		mux, err := NewRealSerialMux(path, opts)
		if err != nil {
			return nil, err
		}
		return mux, nil
	}
	if path := cfg.GetFixturePath(); path != "" {
		lines, err := LoadFixture(path)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("replaying %d fixture lines from %s every %s", len(lines), path, cfg.GetFixtureInterval())
		return NewSerialMux(NewFixturePort(lines, clock, cfg.GetFixtureInterval())), nil
	}
	monitoring.Warnf("no serial_port or fixture_path configured, transport disabled")
	return NewDisabledSerialMux(), nil
}
