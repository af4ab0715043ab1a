package uribeacon

import (
	"bytes"
	"testing"
)

func TestBuildPayloadDeterministic(t *testing.T) {
	want := []byte{0xD8, 0xFE, 0x00, 0x20, 0x00, 0x65, 0x66, 0x66, 0x08}

	first := BuildPayload()
	for i := 0; i < 5; i++ {
		p := BuildPayload()
		if !bytes.Equal(p.ServiceData, want) {
			t.Fatalf("call %d: service data % X, want % X", i, p.ServiceData, want)
		}
		if len(p.ServiceUUIDs) != 1 || !p.ServiceUUIDs[0].Equal(first.ServiceUUIDs[0]) {
			t.Fatalf("call %d: unexpected uuids %v", i, p.ServiceUUIDs)
		}
	}

	// callers get their own copy
	first.ServiceData[4] = 0x01
	first.ServiceUUIDs[0][0] = 0xFF
	p := BuildPayload()
	if !bytes.Equal(p.ServiceData, want) {
		t.Fatalf("payload shares storage with a previous call")
	}
	if p.ServiceUUIDs[0].String() != "0000FED8-0000-1000-8000-00805F9B34FB" {
		t.Fatalf("uuid shares storage with a previous call: %s", p.ServiceUUIDs[0])
	}
}

func TestPayloadFields(t *testing.T) {
	p := BuildPayload()

	if p.ServiceID() != URIBeaconServiceID {
		t.Fatalf("service id %04X", p.ServiceID())
	}
	if p.Flags() != 0x00 {
		t.Fatalf("flags %02X", p.Flags())
	}
	if p.TxPower() != 0x20 {
		t.Fatalf("tx power %d", p.TxPower())
	}
	if !bytes.Equal(p.Frame(), []byte{0x00, 0x20, 0x00, 0x65, 0x66, 0x66, 0x08}) {
		t.Fatalf("frame % X", p.Frame())
	}

	uri, err := p.URI()
	if err != nil {
		t.Fatal(err)
	}
	if uri != "http://www.eff.org" {
		t.Fatalf("uri %q", uri)
	}
}

func TestPayloadURIErrors(t *testing.T) {
	tests := map[string][]byte{
		"short":    {0xD8, 0xFE, 0x00},
		"scheme":   {0xD8, 0xFE, 0x00, 0x20, 0x09, 0x65},
		"urn":      {0xD8, 0xFE, 0x00, 0x20, 0x04, 0x65},
		"reserved": {0xD8, 0xFE, 0x00, 0x20, 0x00, 0x65, 0x10},
	}
	for name, sd := range tests {
		if _, err := (Payload{ServiceData: sd}).URI(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPayloadToMap(t *testing.T) {
	m, err := BuildPayload().ToMap()
	if err != nil {
		t.Fatal(err)
	}
	keys := PayloadMapKeys
	if m[keys.URI] != "http://www.eff.org" {
		t.Fatalf("uri %v", m[keys.URI])
	}
	if m[keys.ServiceID] != "FED8" {
		t.Fatalf("service id %v", m[keys.ServiceID])
	}
	if m[keys.ServiceData] != "D8 FE 00 20 00 65 66 66 08" {
		t.Fatalf("service data %v", m[keys.ServiceData])
	}
	ss, ok := m[keys.ServiceUUIDs].([]string)
	if !ok || len(ss) != 1 || ss[0] != "0000FED8-0000-1000-8000-00805F9B34FB" {
		t.Fatalf("services %v", m[keys.ServiceUUIDs])
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Type != AdvertisingTypeNonConnectable || s.Connectable() {
		t.Fatalf("type %s", s.Type)
	}
	if s.TxPower != TxPowerHigh || s.TxPowerDBm() != 1 {
		t.Fatalf("tx power %s", s.TxPower)
	}
	if s.Mode != AdvertiseModeBalanced || s.Interval().Milliseconds() != 250 {
		t.Fatalf("mode %s", s.Mode)
	}

	c := NewController(nil)
	if c.Settings() != s {
		t.Fatalf("controller settings %s", c.Settings())
	}
}
