package uribeacon

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoAdapter is returned by an AdapterResolver when the host has no
	// Bluetooth adapter.
	ErrNoAdapter = errors.New("no bluetooth adapter")

	// ErrUnsupportedHardware is the terminal error of a controller that
	// could not find an adapter.
	ErrUnsupportedHardware = errors.New("this device does not support bluetooth")

	// ErrBluetoothDisabledDeclined is the terminal error of a controller
	// whose enable request was declined.
	ErrBluetoothDisabledDeclined = errors.New("bluetooth enable request declined")

	// ErrEIRPacketTooLong is returned when advertising data exceeds 31 bytes.
	ErrEIRPacketTooLong = errors.New("max packet length is 31")
)

// AdvertiseFailure is the reason an advertisement could not be started.
type AdvertiseFailure int

const (
	AdvertiseFailedDataTooLarge       AdvertiseFailure = 1
	AdvertiseFailedTooManyAdvertisers AdvertiseFailure = 2
	AdvertiseFailedAlreadyStarted     AdvertiseFailure = 3
	AdvertiseFailedInternalError      AdvertiseFailure = 4
	AdvertiseFailedFeatureUnsupported AdvertiseFailure = 5
)

func (f AdvertiseFailure) String() string {
	switch f {
	case AdvertiseFailedDataTooLarge:
		return "data too large"
	case AdvertiseFailedTooManyAdvertisers:
		return "too many advertisers"
	case AdvertiseFailedAlreadyStarted:
		return "already started"
	case AdvertiseFailedInternalError:
		return "internal error"
	case AdvertiseFailedFeatureUnsupported:
		return "feature unsupported"
	default:
		return fmt.Sprintf("unknown error %d", int(f))
	}
}

// AdvertiseError carries a failure code alongside the backend error.
type AdvertiseError struct {
	Code AdvertiseFailure
	Err  error
}

// NewAdvertiseError ...
func NewAdvertiseError(code AdvertiseFailure, err error) *AdvertiseError {
	return &AdvertiseError{Code: code, Err: err}
}

func (e *AdvertiseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("advertise failed: %s", e.Code)
	}
	return fmt.Sprintf("advertise failed: %s: %v", e.Code, e.Err)
}

func (e *AdvertiseError) Cause() error  { return e.Err }
func (e *AdvertiseError) Unwrap() error { return e.Err }

// FailureCode maps an error returned by a backend to a failure code.
// Errors that are not AdvertiseErrors are internal errors.
func FailureCode(err error) AdvertiseFailure {
	var ae *AdvertiseError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Cause(err) == ErrEIRPacketTooLong {
		return AdvertiseFailedDataTooLarge
	}
	return AdvertiseFailedInternalError
}
