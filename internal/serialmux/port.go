package serialmux

import (
	"io"
)

// SerialPorter is the minimal surface the mux needs from a port. go.bug.st
// serial ports, fixture replays and test doubles all satisfy it.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}
