package uribeacon

import "context"

// Adapter is the capability a controller needs from a Bluetooth stack.
type Adapter interface {
	// IsEnabled reports whether the radio is powered.
	IsEnabled() (bool, error)

	// RequestEnable asks the user to power the radio on. It returns once the
	// request is issued; the answer is delivered later through result.
	RequestEnable(ctx context.Context, result func(granted bool)) error

	// StartAdvertising begins broadcasting p. The outcome is delivered
	// through cb, from any goroutine.
	StartAdvertising(ctx context.Context, s AdvertiseSettings, p Payload, cb AdvertiseCallback) error

	// StopAdvertising stops a started advertisement.
	StopAdvertising() error
}

// AdapterResolver locates the host adapter. It returns ErrNoAdapter if the
// host has none.
type AdapterResolver func() (Adapter, error)
