package parser

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
)

var EmptyOrNilPdu = errors.New("nil/empty pdu")

// ErrNotBeacon is returned by ParseBeacon for a pdu without URI Beacon
// service data.
var ErrNotBeacon = errors.New("no uri beacon service data")

// https://www.bluetooth.com/specifications/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid32inc   byte
	uuid32comp  byte
	uuid128inc  byte
	uuid128comp byte
	svc16       byte
	svc32       byte
	svc128      byte
	nameshort   byte
	namecomp    byte
	txpwr       byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid32inc:   0x04,
	uuid32comp:  0x05,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	svc16:       0x16,
	svc32:       0x20,
	svc128:      0x21,
	nameshort:   0x08,
	namecomp:    0x09,
	txpwr:       0x0a,
	mfgdata:     0xff,
}

// Keys names the entries of the map returned by Parse.
var Keys = struct {
	Flags       string
	Services    string
	ServiceData string
	LocalName   string
	TxPower     string
	MFG         string
}{
	Flags:       "flags",
	Services:    "services",
	ServiceData: "serviceData",
	LocalName:   "name",
	TxPower:     "txPower",
	MFG:         "mfg",
}

type pduRecord struct {
	arrayElementSz int
	minSz          int
	svcDataUUIDSz  int
	key            string
}

var pduDecodeMap = map[byte]pduRecord{
	types.uuid16inc:   {2, 2, 0, Keys.Services},
	types.uuid16comp:  {2, 2, 0, Keys.Services},
	types.uuid32inc:   {4, 4, 0, Keys.Services},
	types.uuid32comp:  {4, 4, 0, Keys.Services},
	types.uuid128inc:  {16, 16, 0, Keys.Services},
	types.uuid128comp: {16, 16, 0, Keys.Services},
	types.svc16:       {0, 2, 2, Keys.ServiceData},
	types.svc32:       {0, 4, 4, Keys.ServiceData},
	types.svc128:      {0, 16, 16, Keys.ServiceData},
	types.namecomp:    {0, 1, 0, Keys.LocalName},
	types.nameshort:   {0, 1, 0, Keys.LocalName},
	types.txpwr:       {0, 1, 0, Keys.TxPower},
	types.mfgdata:     {0, 2, 0, Keys.MFG},
	types.flags:       {0, 1, 0, Keys.Flags},
}

func getArray(size int, bytes []byte) ([]uribeacon.UUID, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size")
	}

	if len(bytes) == 0 {
		return nil, fmt.Errorf("nil/empty bytes")
	}

	count := len(bytes) / size
	if len(bytes)%size != 0 || count == 0 {
		return nil, fmt.Errorf("incorrect size")
	}

	arr := make([]uribeacon.UUID, 0, count)
	for j := 0; j < len(bytes); j += size {
		arr = append(arr, uribeacon.UUID(bytes[j:(j+size)]))
	}

	return arr, nil
}

// Parse decodes the AD structures of an advertising packet or scan
// response. Service UUIDs are collected under Keys.Services as
// []uribeacon.UUID; service data is a map from the UUID string to the data
// following the UUID. Unknown AD types are skipped.
func Parse(pdu []byte) (map[string]interface{}, error) {
	if len(pdu) == 0 {
		return nil, EmptyOrNilPdu
	}

	m := make(map[string]interface{})
	for i := 0; (i + 1) < len(pdu); {
		//length @ offset 0
		//type @ offset 1
		//data @ 2 - length
		length := int(pdu[i])
		typ := pdu[i+1]

		if length < 1 {
			return m, fmt.Errorf("invalid record length %v, idx %v", length, i)
		}

		if (i + length) >= len(pdu) {
			return m, fmt.Errorf("buffer overflow: want %v, have %v, idx %v", i+length, len(pdu), i)
		}

		start := i + 2
		end := start + length - 1
		bytes := make([]byte, end-start)
		copy(bytes, pdu[start:end])

		dec, ok := pduDecodeMap[typ]
		if ok && len(bytes) != 0 {
			if dec.minSz > len(bytes) {
				return m, fmt.Errorf("adv type %v: min length %v, have %v, idx %v", typ, dec.minSz, len(bytes), i)
			}

			switch {
			case dec.arrayElementSz > 0:
				arr, err := getArray(dec.arrayElementSz, bytes)
				if err != nil {
					return m, errors.Wrapf(err, "adv type %v, idx %v", typ, i)
				}
				v, _ := m[dec.key].([]uribeacon.UUID)
				m[dec.key] = append(v, arr...)

			case dec.svcDataUUIDSz > 0:
				su := uribeacon.UUID(bytes[:dec.svcDataUUIDSz]).String()
				msd, ok := m[dec.key].(map[string][]byte)
				if !ok {
					msd = make(map[string][]byte)
				}
				msd[su] = bytes[dec.svcDataUUIDSz:]
				m[dec.key] = msd

			default:
				m[dec.key] = bytes
			}
		}

		i += length + 1
	}

	return m, nil
}

// ParseBeacon recovers the URI Beacon payload from an advertising packet.
func ParseBeacon(pdu []byte) (uribeacon.Payload, error) {
	m, err := Parse(pdu)
	if err != nil {
		return uribeacon.Payload{}, err
	}

	id := uribeacon.UUID16(uribeacon.URIBeaconServiceID)
	msd, _ := m[Keys.ServiceData].(map[string][]byte)
	d, ok := msd[id.String()]
	if !ok {
		return uribeacon.Payload{}, ErrNotBeacon
	}

	p := uribeacon.Payload{
		ServiceData: append(append([]byte{}, id...), d...),
	}
	p.ServiceUUIDs, _ = m[Keys.Services].([]uribeacon.UUID)
	return p, nil
}
