package uribeacon

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rigado/uribeacon/sliceops"
)

// A UUID is a BLE UUID, stored little-endian as it travels over the air.
type UUID []byte

// BaseUUID is the Bluetooth base UUID 00000000-0000-1000-8000-00805F9B34FB.
var BaseUUID = MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UUID16 converts a uint16 (such as 0xFED8) to a UUID.
func UUID16(i uint16) UUID {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, i)
	return UUID(b)
}

// Parse parses a standard-format UUID string, such
// as "0000FED8-0000-1000-8000-00805F9B34FB" or "fed8".
func Parse(s string) (UUID, error) {
	s = strings.Replace(s, "-", "", -1)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if err := lenErr(len(b)); err != nil {
		return nil, err
	}
	return UUID(Reverse(b)), nil
}

// MustParse parses a standard-format UUID string,
// like Parse, but panics in case of error.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func lenErr(n int) error {
	switch n {
	case 2, 4, 16:
		return nil
	}
	return fmt.Errorf("UUIDs must have length 2, 4 or 16, got %d", n)
}

// Len returns the length of the UUID, in bytes.
// BLE UUIDs are either 2, 4 or 16 bytes.
func (u UUID) Len() int {
	return len(u)
}

// Expand returns the 128-bit form of a 16 or 32-bit UUID.
func (u UUID) Expand() UUID {
	if u.Len() == 16 {
		return u
	}
	e := make(UUID, 16)
	copy(e, BaseUUID)
	copy(e[12:], u)
	return e
}

// String hex-encodes a UUID in big-endian order, with dashes for 128-bit UUIDs.
func (u UUID) String() string {
	b := Reverse(u)
	if len(b) != 16 {
		return strings.ToUpper(hex.EncodeToString(b))
	}
	s := strings.ToUpper(hex.EncodeToString(b))
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
}

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return bytes.Equal(u, v)
}

// Reverse returns a reversed copy of u.
func Reverse(u []byte) []byte {
	return sliceops.SwapBuf(u)
}
