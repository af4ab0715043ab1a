package uribeacon

import (
	"fmt"
	"time"
)

// AdvertiseMode trades advertising frequency against power use.
type AdvertiseMode int

const (
	AdvertiseModeLowPower AdvertiseMode = iota
	AdvertiseModeBalanced
	AdvertiseModeLowLatency
)

func (m AdvertiseMode) String() string {
	switch m {
	case AdvertiseModeLowPower:
		return "low-power"
	case AdvertiseModeBalanced:
		return "balanced"
	case AdvertiseModeLowLatency:
		return "low-latency"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// TxPowerLevel is the requested transmit power of the advertisement.
type TxPowerLevel int

const (
	TxPowerUltraLow TxPowerLevel = iota
	TxPowerLow
	TxPowerMedium
	TxPowerHigh
)

func (p TxPowerLevel) String() string {
	switch p {
	case TxPowerUltraLow:
		return "ultra-low"
	case TxPowerLow:
		return "low"
	case TxPowerMedium:
		return "medium"
	case TxPowerHigh:
		return "high"
	}
	return fmt.Sprintf("txpower(%d)", int(p))
}

// AdvertisingType is the PDU type used on the advertising channels.
// [Vol 6, Part B, 2.3]
type AdvertisingType uint8

const (
	AdvertisingTypeConnectable    AdvertisingType = 0x00 // ADV_IND
	AdvertisingTypeNonConnectable AdvertisingType = 0x03 // ADV_NONCONN_IND
)

func (t AdvertisingType) String() string {
	switch t {
	case AdvertisingTypeConnectable:
		return "connectable"
	case AdvertisingTypeNonConnectable:
		return "non-connectable"
	}
	return fmt.Sprintf("type(0x%02x)", uint8(t))
}

// AdvertiseSettings configures how an advertisement is broadcast.
type AdvertiseSettings struct {
	Mode    AdvertiseMode
	TxPower TxPowerLevel
	Type    AdvertisingType
}

// DefaultSettings returns the settings the beacon always advertises with.
func DefaultSettings() AdvertiseSettings {
	return AdvertiseSettings{
		Mode:    AdvertiseModeBalanced,
		TxPower: TxPowerHigh,
		Type:    AdvertisingTypeNonConnectable,
	}
}

// Interval returns the advertising interval for the mode.
func (s AdvertiseSettings) Interval() time.Duration {
	switch s.Mode {
	case AdvertiseModeLowPower:
		return time.Second
	case AdvertiseModeLowLatency:
		return 100 * time.Millisecond
	default:
		return 250 * time.Millisecond
	}
}

// TxPowerDBm returns the radiated power, in dBm, requested by the level.
func (s AdvertiseSettings) TxPowerDBm() int8 {
	switch s.TxPower {
	case TxPowerUltraLow:
		return -21
	case TxPowerLow:
		return -15
	case TxPowerMedium:
		return -7
	default:
		return 1
	}
}

// Connectable reports whether centrals may connect to the advertiser.
func (s AdvertiseSettings) Connectable() bool {
	return s.Type == AdvertisingTypeConnectable
}

func (s AdvertiseSettings) String() string {
	return fmt.Sprintf("mode=%s txpower=%s type=%s", s.Mode, s.TxPower, s.Type)
}

// AdvertiseCallback receives the outcome of a StartAdvertising call.
type AdvertiseCallback interface {
	OnStartSuccess(settingsInEffect AdvertiseSettings)
	OnStartFailure(code AdvertiseFailure)
}
