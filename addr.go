package uribeacon

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/rigado/uribeacon/sliceops"
)

// Addr is the address of the local adapter.
type Addr interface {
	String() string
	Bytes() []byte
}

// NewAddr creates an Addr from a colon separated MAC string.
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

// NewAddrLE creates an Addr from the 6 little-endian bytes an HCI
// controller reports.
func NewAddrLE(b []byte) Addr {
	return NewAddr(net.HardwareAddr(sliceops.SwapBuf(b)).String())
}

type addr string

func (a addr) String() string {
	return string(a)
}

func (a addr) Bytes() []byte {
	out, err := hex.DecodeString(strings.Replace(a.String(), ":", "", -1))
	if err != nil {
		return nil
	}
	return out
}
