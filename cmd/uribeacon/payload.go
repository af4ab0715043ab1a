package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/adv"
	"github.com/rigado/uribeacon/parser"
	"github.com/urfave/cli"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printPayload(c *cli.Context) error {
	return writePayload(os.Stdout, uribeacon.BuildPayload(), uribeacon.DefaultSettings())
}

func writePayload(w io.Writer, p uribeacon.Payload, s uribeacon.AdvertiseSettings) error {
	pm, err := p.ToMap()
	if err != nil {
		return errors.Wrap(err, "payload")
	}

	pkt, err := adv.NewPacket(adv.Beacon(p)...)
	if err != nil {
		return errors.Wrap(err, "advertising data")
	}

	ad, err := parser.Parse(pkt.Bytes())
	if err != nil {
		return errors.Wrap(err, "parse advertising data")
	}

	// what a scanner recovers must be what we built
	got, err := parser.ParseBeacon(pkt.Bytes())
	if err != nil {
		return errors.Wrap(err, "parse beacon")
	}
	if !samePayload(got, p) {
		return errors.Errorf("advertising data decodes to % X, want % X", got.ServiceData, p.ServiceData)
	}

	out := map[string]interface{}{
		"payload": pm,
		"settings": map[string]interface{}{
			"mode":        s.Mode.String(),
			"txPower":     s.TxPower.String(),
			"txPowerDbm":  s.TxPowerDBm(),
			"type":        s.Type.String(),
			"connectable": s.Connectable(),
			"intervalMs":  s.Interval().Milliseconds(),
		},
		"advertisingData": hex.EncodeToString(pkt.Bytes()),
		"ad":              printable(ad),
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func samePayload(a, b uribeacon.Payload) bool {
	if !bytes.Equal(a.ServiceData, b.ServiceData) || len(a.ServiceUUIDs) != len(b.ServiceUUIDs) {
		return false
	}
	for i := range a.ServiceUUIDs {
		if !a.ServiceUUIDs[i].Equal(b.ServiceUUIDs[i]) {
			return false
		}
	}
	return true
}

// printable renders parsed AD values as strings instead of base64.
func printable(m map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case []uribeacon.UUID:
			ss := make([]string, 0, len(vv))
			for _, u := range vv {
				ss = append(ss, u.String())
			}
			o[k] = ss
		case map[string][]byte:
			sd := make(map[string]string, len(vv))
			for u, d := range vv {
				sd[u] = hex.EncodeToString(d)
			}
			o[k] = sd
		case []byte:
			o[k] = hex.EncodeToString(vv)
		default:
			o[k] = v
		}
	}
	return o
}
