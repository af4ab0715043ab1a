package mgmt

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// IndexNone addresses the management interface itself rather than a
// controller.
const IndexNone = 0xffff

// Command opcodes. See doc/mgmt-api.txt in the BlueZ tree.
const (
	OpReadIndexList = 0x0003
	OpReadInfo      = 0x0004
	OpSetPowered    = 0x0005
)

// Event codes.
const (
	EvtCommandComplete = 0x0001
	EvtCommandStatus   = 0x0002
	EvtNewSettings     = 0x0006
)

// Settings bits of Read Controller Information.
const (
	SettingPowered = 1 << 0
	SettingLE      = 1 << 9
)

const headerLength = 6

// ErrStatus is a non-zero management command status.
type ErrStatus uint8

func (e ErrStatus) Error() string {
	switch e {
	case 0x01:
		return "mgmt: unknown command"
	case 0x03:
		return "mgmt: failed"
	case 0x0A:
		return "mgmt: busy"
	case 0x0C:
		return "mgmt: not supported"
	case 0x0D:
		return "mgmt: invalid parameters"
	case 0x0F:
		return "mgmt: not powered"
	case 0x11:
		return "mgmt: invalid index"
	case 0x12:
		return "mgmt: rfkilled"
	case 0x14:
		return "mgmt: permission denied"
	default:
		return fmt.Sprintf("mgmt: status 0x%02X", uint8(e))
	}
}

// Response is one packet read from the control channel.
type Response struct {
	ID     uint16
	Index  uint16
	Length uint16
	Data   []byte
}

// Info is the subset of Read Controller Information the advertiser uses.
type Info struct {
	Address      [6]byte
	Version      uint8
	Manufacturer uint16
	Supported    uint32
	Current      uint32
}

// Powered reports whether the controller is powered.
func (i Info) Powered() bool {
	return i.Current&SettingPowered != 0
}

func cmd(id, index uint16, params []byte) []byte {
	b := make([]byte, headerLength, headerLength+len(params))
	binary.LittleEndian.PutUint16(b[0:], id)
	binary.LittleEndian.PutUint16(b[2:], index)
	binary.LittleEndian.PutUint16(b[4:], uint16(len(params)))
	return append(b, params...)
}

func parseResponse(b []byte) (Response, error) {
	if len(b) < headerLength {
		return Response{}, fmt.Errorf("short mgmt packet: %d bytes", len(b))
	}

	r := Response{
		ID:     binary.LittleEndian.Uint16(b[0:2]),
		Index:  binary.LittleEndian.Uint16(b[2:4]),
		Length: binary.LittleEndian.Uint16(b[4:6]),
	}
	if int(r.Length) != len(b)-headerLength {
		return Response{}, fmt.Errorf("mgmt length mismatch: want %d, have %d", r.Length, len(b)-headerLength)
	}
	r.Data = make([]byte, r.Length)
	copy(r.Data, b[headerLength:])
	return r, nil
}

// result extracts the return parameters of the command op from a command
// complete or status event. The bool is false for unrelated events.
func (r Response) result(op, index uint16) ([]byte, bool, error) {
	if r.ID != EvtCommandComplete && r.ID != EvtCommandStatus {
		return nil, false, nil
	}
	if len(r.Data) < 3 {
		return nil, false, fmt.Errorf("short mgmt event 0x%04X", r.ID)
	}
	if binary.LittleEndian.Uint16(r.Data[0:2]) != op || r.Index != index {
		return nil, false, nil
	}
	if st := r.Data[2]; st != 0 {
		return nil, true, ErrStatus(st)
	}
	return r.Data[3:], true, nil
}

func parseIndexList(b []byte) ([]uint16, error) {
	if len(b) < 2 {
		return nil, errors.New("short index list")
	}
	n := int(binary.LittleEndian.Uint16(b))
	if len(b) < 2+2*n {
		return nil, fmt.Errorf("index list: want %d entries, have %d bytes", n, len(b)-2)
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[2+2*i:])
	}
	return out, nil
}

func parseInfo(b []byte) (Info, error) {
	if len(b) < 17 {
		return Info{}, fmt.Errorf("short controller info: %d bytes", len(b))
	}
	var i Info
	copy(i.Address[:], b[0:6])
	i.Version = b[6]
	i.Manufacturer = binary.LittleEndian.Uint16(b[7:9])
	i.Supported = binary.LittleEndian.Uint32(b[9:13])
	i.Current = binary.LittleEndian.Uint32(b[13:17])
	return i, nil
}
