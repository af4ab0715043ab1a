package uribeacon

import "time"

// DeviceOption is an interface which an adapter backend implements to allow
// using configuration options.
type DeviceOption interface {
	SetTransportHCISocket(id int) error
	SetTransportH4Uart(path string, baud uint) error
	SetTransportH4Socket(addr string, timeout time.Duration) error
	SetPrompter(p Prompter) error
	SetLogger(l Logger) error
}

// An Option is a configuration function, which configures the adapter.
type Option func(DeviceOption) error

// OptDeviceID selects the hci device by index.
func OptDeviceID(id int) Option {
	return OptTransportHCISocket(id)
}

// OptTransportHCISocket sets hci socket transport
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportHCISocket(id)
	}
}

// OptTransportH4Uart sets h4 uart transport
func OptTransportH4Uart(path string, baud uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Uart(path, baud)
	}
}

// OptTransportH4Socket sets h4 socket transport, a controller bridged to
// TCP. timeout bounds the dial and every read or write.
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Socket(addr, timeout)
	}
}

// OptPrompter sets who is asked before the radio is powered on.
func OptPrompter(p Prompter) Option {
	return func(opt DeviceOption) error {
		return opt.SetPrompter(p)
	}
}

// OptLogger overrides the package logger for one adapter.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		return opt.SetLogger(l)
	}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l Logger) ControllerOption {
	return func(c *Controller) {
		c.log = l
	}
}

// WithStateHandler registers a function called after every state transition.
func WithStateHandler(h func(State)) ControllerOption {
	return func(c *Controller) {
		c.stateHandler = h
	}
}
