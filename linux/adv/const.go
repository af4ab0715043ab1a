package adv

import "github.com/pkg/errors"

// MaxEIRPacketLength is the maximum allowed AdvertisingPacket
// and ScanResponsePacket length.
const MaxEIRPacketLength = 31

// ErrNotFit indicates the data doesn't fit into the packet.
var ErrNotFit = errors.New("data does not fit into advertising packet")

// ErrInvalid indicates malformed field input.
var ErrInvalid = errors.New("invalid advertising field")

// Advertising flags. [CSS Part A, 1.3]
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR Not Supported
	FlagBothController      = 0x08 // Simultaneous LE and BR/EDR to Same Device Capable (Controller)
	FlagBothHost            = 0x10 // Simultaneous LE and BR/EDR to Same Device Capable (Host)
)

// AD types.
// https://www.bluetooth.com/specifications/assigned-numbers/generic-access-profile
const (
	flags            = 0x01
	someUUID16       = 0x02
	allUUID16        = 0x03
	someUUID32       = 0x04
	allUUID32        = 0x05
	someUUID128      = 0x06
	allUUID128       = 0x07
	shortName        = 0x08
	completeName     = 0x09
	txPower          = 0x0A
	serviceData16    = 0x16
	manufacturerData = 0xFF
)
