package hci

import "fmt"

// ErrCommand is the status code of a failed HCI command.
// [Vol 2, Part D, 1.3]
type ErrCommand byte

const (
	ErrUnknownCommand       ErrCommand = 0x01
	ErrUnknownConnectionID  ErrCommand = 0x02
	ErrHardwareFailure      ErrCommand = 0x03
	ErrMemoryExceeded       ErrCommand = 0x07
	ErrCommandDisallowed    ErrCommand = 0x0C
	ErrRejectedResources    ErrCommand = 0x0D
	ErrUnsupportedFeature   ErrCommand = 0x11
	ErrInvalidParameters    ErrCommand = 0x12
	ErrUnsupportedRemote    ErrCommand = 0x1A
	ErrUnspecified          ErrCommand = 0x1F
	ErrControllerBusy       ErrCommand = 0x3A
	ErrLimitReached         ErrCommand = 0x43
	ErrAdvertisingTimeout   ErrCommand = 0x3C
	ErrUnknownAdvIdentifier ErrCommand = 0x42
)

var errCommandText = map[ErrCommand]string{
	ErrUnknownCommand:       "Unknown HCI Command",
	ErrUnknownConnectionID:  "Unknown Connection Identifier",
	ErrHardwareFailure:      "Hardware Failure",
	ErrMemoryExceeded:       "Memory Capacity Exceeded",
	ErrCommandDisallowed:    "Command Disallowed",
	ErrRejectedResources:    "Connection Rejected due to Limited Resources",
	ErrUnsupportedFeature:   "Unsupported Feature or Parameter Value",
	ErrInvalidParameters:    "Invalid HCI Command Parameters",
	ErrUnsupportedRemote:    "Unsupported Remote Feature / Unsupported LMP Feature",
	ErrUnspecified:          "Unspecified Error",
	ErrControllerBusy:       "Controller Busy",
	ErrAdvertisingTimeout:   "Advertising Timeout",
	ErrUnknownAdvIdentifier: "Unknown Advertising Identifier",
	ErrLimitReached:         "Limit Reached",
}

func (e ErrCommand) Error() string {
	if s, ok := errCommandText[e]; ok {
		return s
	}
	return fmt.Sprintf("hci: status 0x%02X", byte(e))
}
