package hci

import (
	"fmt"
	"sync"
	"time"

	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/hci/cmd"
)

const (
	AddressTypePublic     = 0
	AddressTypeRandom     = 1
	FilterPolicyAcceptAll = 0

	AdvTypeConnUndirected = 0x00
	AdvTypeScanUndirected = 0x02
	AdvTypeNonConn        = 0x03

	AdvIntervalMin = 0x0020
	AdvIntervalMax = 0x4000

	// AdvIntervalNonConnMin is the floor for scannable and non-connectable
	// advertising before Core 5.0.
	AdvIntervalNonConnMin = 0x00A0

	AdvChannelMapAll = 0x07

	advIntervalUnit = 625 * time.Microsecond
)

type params struct {
	sync.RWMutex

	advEnable cmd.LESetAdvertiseEnable
	advData   cmd.LESetAdvertisingData
	scanResp  cmd.LESetScanResponseData
	advParams cmd.LESetAdvertisingParameters
}

func (p *params) init() {
	p.advParams = AdvParams(uribeacon.DefaultSettings())
}

// AdvParams returns the LE advertising parameters for s.
func AdvParams(s uribeacon.AdvertiseSettings) cmd.LESetAdvertisingParameters {
	iv := uint16(s.Interval() / advIntervalUnit)
	return cmd.LESetAdvertisingParameters{
		AdvertisingIntervalMin:  iv,                   // 0x0020 - 0x4000; N * 0.625 msec
		AdvertisingIntervalMax:  iv,                   // 0x0020 - 0x4000; N * 0.625 msec
		AdvertisingType:         uint8(s.Type),        // 00: ADV_IND, 0x01: DIRECT(HIGH), 0x02: SCAN, 0x03: NONCONN, 0x04: DIRECT(LOW)
		OwnAddressType:          AddressTypePublic,    // 0x00: public, 0x01: random
		DirectAddressType:       AddressTypePublic,    // 0x00: public, 0x01: random
		DirectAddress:           [6]byte{},            // unused for undirected advertising
		AdvertisingChannelMap:   AdvChannelMapAll,     // 0x07 0x01: ch37, 0x2: ch38, 0x4: ch39
		AdvertisingFilterPolicy: FilterPolicyAcceptAll,
	}
}

// ValidateAdvParams checks p against the ranges of [Vol 2, Part E, 7.8.5].
func ValidateAdvParams(p cmd.LESetAdvertisingParameters) error {
	lo := uint16(AdvIntervalMin)
	if p.AdvertisingType == AdvTypeScanUndirected || p.AdvertisingType == AdvTypeNonConn {
		lo = AdvIntervalNonConnMin
	}

	switch {
	case p.AdvertisingType > 0x04:
		return fmt.Errorf("invalid AdvertisingType %v", p.AdvertisingType)

	case p.AdvertisingIntervalMin < lo || p.AdvertisingIntervalMin > AdvIntervalMax:
		return fmt.Errorf("invalid AdvertisingIntervalMin %v", p.AdvertisingIntervalMin)

	case p.AdvertisingIntervalMax < lo || p.AdvertisingIntervalMax > AdvIntervalMax:
		return fmt.Errorf("invalid AdvertisingIntervalMax %v", p.AdvertisingIntervalMax)

	case p.AdvertisingIntervalMin > p.AdvertisingIntervalMax:
		return fmt.Errorf("AdvertisingIntervalMin %v > AdvertisingIntervalMax %v", p.AdvertisingIntervalMin, p.AdvertisingIntervalMax)

	case p.OwnAddressType != AddressTypePublic && p.OwnAddressType != AddressTypeRandom:
		return fmt.Errorf("invalid OwnAddressType %v", p.OwnAddressType)

	case p.AdvertisingChannelMap == 0 || p.AdvertisingChannelMap&^AdvChannelMapAll != 0:
		return fmt.Errorf("invalid AdvertisingChannelMap %v", p.AdvertisingChannelMap)

	case p.AdvertisingFilterPolicy > 0x03:
		return fmt.Errorf("invalid AdvertisingFilterPolicy %v", p.AdvertisingFilterPolicy)
	}

	return nil
}
