package adv

import (
	"github.com/rigado/uribeacon"
)

// Packet is an advertising packet or scan response under construction.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
type Packet struct {
	b []byte
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// NewPacket returns a new advertising Packet.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Field is an advertising field which can be appended to a packet.
type Field func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f Field) error {
	return f(p)
}

func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > MaxEIRPacketLength {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1))
	p.b = append(p.b, typ)
	p.b = append(p.b, b...)
	return nil
}

// Raw appends the bytes to the current packet.
func Raw(b []byte) Field {
	return func(p *Packet) error {
		if p.Len()+len(b) > MaxEIRPacketLength {
			return ErrNotFit
		}
		p.b = append(p.b, b...)
		return nil
	}
}

// Flags is a flags.
func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(flags, []byte{f})
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(completeName, []byte(n))
	}
}

// TxPower is the advertised transmit power level in dBm.
func TxPower(dbm int8) Field {
	return func(p *Packet) error {
		return p.append(txPower, []byte{byte(dbm)})
	}
}

// ManufacturerData is manufacturer specific data.
func ManufacturerData(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(manufacturerData, d)
	}
}

// AllUUID is the complete service UUID list.
func AllUUID(uu ...uribeacon.UUID) Field {
	return uuidList(allUUID16, allUUID32, allUUID128, uu)
}

// SomeUUID is an incomplete service UUID list.
func SomeUUID(uu ...uribeacon.UUID) Field {
	return uuidList(someUUID16, someUUID32, someUUID128, uu)
}

// uuidList groups uu by width, one AD structure per width.
func uuidList(t16, t32, t128 byte, uu []uribeacon.UUID) Field {
	return func(p *Packet) error {
		var b16, b32, b128 []byte
		for _, u := range uu {
			switch u.Len() {
			case 2:
				b16 = append(b16, u...)
			case 4:
				b32 = append(b32, u...)
			case 16:
				b128 = append(b128, u...)
			default:
				return ErrInvalid
			}
		}

		n := p.Len()
		for _, l := range []struct {
			typ byte
			b   []byte
		}{{t16, b16}, {t32, b32}, {t128, b128}} {
			if len(l.b) == 0 {
				continue
			}
			if err := p.append(l.typ, l.b); err != nil {
				p.b = p.b[:n]
				return err
			}
		}
		return nil
	}
}

// ServiceData16 is service data whose first two bytes are the little-endian
// 16-bit service UUID.
func ServiceData16(b []byte) Field {
	return func(p *Packet) error {
		if len(b) < 2 {
			return ErrInvalid
		}
		return p.append(serviceData16, b)
	}
}

// Beacon returns the fields advertising pl: the service UUID list
// followed by the service data.
func Beacon(pl uribeacon.Payload) []Field {
	return []Field{
		AllUUID(pl.ServiceUUIDs...),
		ServiceData16(pl.ServiceData),
	}
}
