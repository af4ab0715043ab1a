package uribeacon

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// URIBeaconServiceID is the 16-bit service identifier assigned to URI Beacons.
const URIBeaconServiceID = 0xFED8

// URIBeaconUUID is the 128-bit expansion of URIBeaconServiceID. Scanners on
// some platforms only match the expanded form in the service UUID list.
var URIBeaconUUID = UUID16(URIBeaconServiceID).Expand()

// beaconData encodes http://www.eff.org.
var beaconData = [...]byte{
	0xD8, // service id 0xFED8
	0xFE, // service id 0xFED8
	0x00, // flags
	0x20, // tx power
	0x00, // http://www.
	0x65, // e
	0x66, // f
	0x66, // f
	0x08, // .org
}

// uriSchemes holds the UriBeacon scheme prefixes, codes 0x00-0x03.
var uriSchemes = map[byte]string{
	0x00: "http://www.",
	0x01: "https://www.",
	0x02: "http://",
	0x03: "https://",
}

var uriExpansions = [...]string{
	".com/", ".org/", ".edu/", ".net/", ".info/", ".biz/", ".gov/",
	".com", ".org", ".edu", ".net", ".info", ".biz", ".gov",
}

// Payload is the service data and service UUID list of the advertisement.
type Payload struct {
	ServiceData  []byte
	ServiceUUIDs []UUID
}

// PayloadMapKeys names the entries of Payload.ToMap.
var PayloadMapKeys = struct {
	ServiceID    string
	ServiceData  string
	ServiceUUIDs string
	Flags        string
	TxPower      string
	URI          string
}{
	ServiceID:    "serviceId",
	ServiceData:  "serviceData",
	ServiceUUIDs: "services",
	Flags:        "flags",
	TxPower:      "txPower",
	URI:          "uri",
}

// BuildPayload returns the fixed URI Beacon payload for http://www.eff.org.
func BuildPayload() Payload {
	sd := make([]byte, len(beaconData))
	copy(sd, beaconData[:])

	u := make(UUID, URIBeaconUUID.Len())
	copy(u, URIBeaconUUID)

	return Payload{
		ServiceData:  sd,
		ServiceUUIDs: []UUID{u},
	}
}

// ServiceID returns the 16-bit identifier at the head of the service data.
func (p Payload) ServiceID() uint16 {
	if len(p.ServiceData) < 2 {
		return 0
	}
	return uint16(p.ServiceData[0]) | uint16(p.ServiceData[1])<<8
}

// Frame returns the service data following the 16-bit identifier.
func (p Payload) Frame() []byte {
	if len(p.ServiceData) < 2 {
		return nil
	}
	return p.ServiceData[2:]
}

// Flags returns the URI Beacon flags byte.
func (p Payload) Flags() byte {
	f := p.Frame()
	if len(f) < 1 {
		return 0
	}
	return f[0]
}

// TxPower returns the calibrated transmit power carried in the frame.
func (p Payload) TxPower() int8 {
	f := p.Frame()
	if len(f) < 2 {
		return 0
	}
	return int8(f[1])
}

// URI decodes the URI carried in the frame.
func (p Payload) URI() (string, error) {
	f := p.Frame()
	if len(f) < 3 {
		return "", fmt.Errorf("frame too short: %d bytes", len(f))
	}

	scheme, ok := uriSchemes[f[2]]
	if !ok {
		return "", fmt.Errorf("unknown uri scheme code 0x%02x", f[2])
	}

	var sb strings.Builder
	sb.WriteString(scheme)
	for i, b := range f[3:] {
		switch {
		case int(b) < len(uriExpansions):
			sb.WriteString(uriExpansions[b])
		case b > 0x20 && b < 0x7f:
			sb.WriteByte(b)
		default:
			return "", fmt.Errorf("reserved uri byte 0x%02x at %d", b, i+3)
		}
	}
	return sb.String(), nil
}

// ToMap returns the payload as a map, for printing.
func (p Payload) ToMap() (map[string]interface{}, error) {
	keys := PayloadMapKeys
	m := make(map[string]interface{})

	uri, err := p.URI()
	if err != nil {
		return nil, errors.Wrap(err, keys.URI)
	}

	m[keys.ServiceID] = fmt.Sprintf("%04X", p.ServiceID())
	m[keys.ServiceData] = fmt.Sprintf("% X", p.ServiceData)
	m[keys.Flags] = p.Flags()
	m[keys.TxPower] = p.TxPower()
	m[keys.URI] = uri

	var ss []string
	for _, u := range p.ServiceUUIDs {
		ss = append(ss, u.String())
	}
	m[keys.ServiceUUIDs] = ss

	return m, nil
}
