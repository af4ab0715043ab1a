package hci

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/adv"
	"github.com/rigado/uribeacon/linux/hci/cmd"
)

// Addr returns the public address of the controller.
func (h *HCI) Addr() uribeacon.Addr { return h.addr }

// TxPowerLevel returns the advertising channel tx power, in dBm.
func (h *HCI) TxPowerLevel() int { return h.txPwrLv }

// SetAdvParams validates and applies advertising parameters.
func (h *HCI) SetAdvParams(param cmd.LESetAdvertisingParameters) error {
	if err := ValidateAdvParams(param); err != nil {
		return err
	}

	h.params.Lock()
	defer h.params.Unlock()
	h.params.advParams = param
	return h.Send(&h.params.advParams, nil)
}

// SetAdvertisement sets advertising data and scanResp.
func (h *HCI) SetAdvertisement(ad []byte, sr []byte) error {
	if len(ad) > adv.MaxEIRPacketLength || len(sr) > adv.MaxEIRPacketLength {
		return uribeacon.ErrEIRPacketTooLong
	}

	h.params.Lock()
	defer h.params.Unlock()

	h.params.advData.AdvertisingDataLength = uint8(len(ad))
	h.params.advData.AdvertisingData = [adv.MaxEIRPacketLength]byte{}
	copy(h.params.advData.AdvertisingData[:], ad)
	if err := h.Send(&h.params.advData, nil); err != nil {
		return err
	}

	h.params.scanResp.ScanResponseDataLength = uint8(len(sr))
	h.params.scanResp.ScanResponseData = [adv.MaxEIRPacketLength]byte{}
	copy(h.params.scanResp.ScanResponseData[:], sr)
	return h.Send(&h.params.scanResp, nil)
}

// Advertise starts advertising.
func (h *HCI) Advertise() error {
	h.params.Lock()
	defer h.params.Unlock()
	h.params.advEnable.AdvertisingEnable = 1
	return h.Send(&h.params.advEnable, nil)
}

// StopAdvertising stops advertising.
func (h *HCI) StopAdvertising() error {
	h.params.Lock()
	defer h.params.Unlock()
	h.params.advEnable.AdvertisingEnable = 0
	return h.Send(&h.params.advEnable, nil)
}

// AdvertiseBeacon advertises pl with settings s. The scan response is left
// empty. Advertising is not enabled once ctx is done.
func (h *HCI) AdvertiseBeacon(ctx context.Context, s uribeacon.AdvertiseSettings, pl uribeacon.Payload) error {
	ad, err := adv.NewPacket(adv.Beacon(pl)...)
	if err != nil {
		return errors.Wrap(err, "build advertising data")
	}
	if err := h.SetAdvParams(AdvParams(s)); err != nil {
		return errors.Wrap(err, "set advertising parameters")
	}
	if err := h.SetAdvertisement(ad.Bytes(), nil); err != nil {
		return errors.Wrap(err, "set advertising data")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "enable advertising")
	}
	return errors.Wrap(h.Advertise(), "enable advertising")
}
