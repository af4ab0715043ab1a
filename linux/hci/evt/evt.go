// Package evt decodes the HCI events the advertiser waits on.
package evt

import "encoding/binary"

// Event codes handled by the advertiser. [Vol 2, Part E, 7.7]
const (
	CommandCompleteCode = 0x0E
	CommandStatusCode   = 0x0F
	HardwareErrorCode   = 0x10
	VendorCode          = 0xFF
)

// CommandComplete is the parameter block of a Command Complete event.
// [Vol 2, Part E, 7.7.14]
type CommandComplete []byte

// Valid reports whether the event carries the packet count and opcode.
func (e CommandComplete) Valid() bool { return len(e) >= 3 }

func (e CommandComplete) NumHCICommandPackets() uint8 { return u8(e, 0, 0) }
func (e CommandComplete) CommandOpcode() uint16       { return u16(e, 1, 0xffff) }

// ReturnParameters returns the command specific parameters, starting with
// the status byte for most commands.
func (e CommandComplete) ReturnParameters() []byte {
	if !e.Valid() {
		return nil
	}
	return e[3:]
}

// CommandStatus is the parameter block of a Command Status event.
// [Vol 2, Part E, 7.7.15]
type CommandStatus []byte

// Valid reports whether the event carries every field.
func (e CommandStatus) Valid() bool { return len(e) == 4 }

func (e CommandStatus) Status() uint8               { return u8(e, 0, 0xff) }
func (e CommandStatus) NumHCICommandPackets() uint8 { return u8(e, 1, 0) }
func (e CommandStatus) CommandOpcode() uint16       { return u16(e, 2, 0xffff) }

// HardwareError is the parameter block of a Hardware Error event.
type HardwareError []byte

func (e HardwareError) HardwareCode() uint8 { return u8(e, 0, 0) }

// u8 returns b[i], or def when b is too short.
func u8(b []byte, i int, def uint8) uint8 {
	if i < 0 || i >= len(b) {
		return def
	}
	return b[i]
}

func u16(b []byte, i int, def uint16) uint16 {
	if i < 0 || i+2 > len(b) {
		return def
	}
	return binary.LittleEndian.Uint16(b[i:])
}
