package sensormux

import (
	"io"
	"time"
)

// Porter defines the minimal interface needed for a sensor port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with timeout capabilities. This is an
// optional interface that ports may implement.
type TimeoutPorter interface {
	Porter
	// SetReadTimeout sets the read timeout for the port.
	SetReadTimeout(timeout time.Duration) error
}

// PortFactory defines an interface for creating sensor ports. This
// abstraction enables dependency injection of port creation.
type PortFactory interface {
	// Open opens a port at the specified path with the given options.
	Open(path string, opts PortOptions) (Porter, error)
}
