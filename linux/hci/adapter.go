package hci

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/adv"
)

const enableQuestion = "Bluetooth is disabled. Turn it on?"

var errStopped = errors.New("advertising stopped before it started")

var (
	_ uribeacon.Adapter      = (*Adapter)(nil)
	_ uribeacon.DeviceOption = (*Adapter)(nil)
)

// Adapter advertises through a controller spoken to directly over HCI.
type Adapter struct {
	transport transport
	prompter  uribeacon.Prompter
	logger    uribeacon.Logger
	power     power

	mu          sync.Mutex
	hci         *HCI
	advertising bool

	// stops counts StopAdvertising calls; a start issued before the
	// latest stop must not enable advertising.
	stops uint64
}

// NewAdapter returns an adapter for the configured transport, hci0 by
// default. It fails with an error whose cause is uribeacon.ErrNoAdapter if
// the controller can't be found.
func NewAdapter(opts ...uribeacon.Option) (*Adapter, error) {
	a := &Adapter{
		transport: transport{hci: &transportHci{0}},
		prompter:  uribeacon.NewTerminalPrompter(os.Stdin, os.Stderr),
		logger:    uribeacon.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}
	a.logger = a.logger.ChildLogger(map[string]interface{}{"hci": a.transport.String()})

	switch {
	case a.power != nil:
	case a.transport.hci != nil:
		a.power = newKernelPower(a.transport.hci.id, a.logger)
	default:
		a.power = fixedPower{open: a.open}
	}

	if err := a.power.present(); err != nil {
		return nil, err
	}
	return a, nil
}

// open brings up the hci device. It must be called with a.mu held or
// before the adapter is shared.
func (a *Adapter) open() error {
	if a.hci != nil {
		return nil
	}

	h := newHCI(a.transport, a.logger)
	h.SetErrorHandler(func(err error) {
		a.logger.Errorf("hci: %v", err)
	})
	if err := h.Init(); err != nil {
		h.Close()
		return err
	}
	a.hci = h
	a.logger.Infof("controller %s up", h.Addr())
	return nil
}

func (a *Adapter) close() error {
	if a.hci == nil {
		return nil
	}
	err := a.hci.Close()
	a.hci = nil
	return err
}

// IsEnabled ...
func (a *Adapter) IsEnabled() (bool, error) {
	return a.power.powered()
}

// RequestEnable asks the prompter, then powers the controller on. A failed
// power on is reported as a declined request.
func (a *Adapter) RequestEnable(ctx context.Context, result func(granted bool)) error {
	go func() {
		ok, err := a.prompter.Confirm(ctx, enableQuestion)
		switch {
		case err != nil:
			a.logger.Warnf("enable prompt: %v", err)
			result(false)
		case !ok:
			result(false)
		default:
			if err := a.power.powerOn(); err != nil {
				a.logger.Errorf("power on: %v", err)
				result(false)
				return
			}
			result(true)
		}
	}()
	return nil
}

// StartAdvertising programs and enables legacy advertising. The outcome is
// delivered through cb from another goroutine.
func (a *Adapter) StartAdvertising(ctx context.Context, s uribeacon.AdvertiseSettings, p uribeacon.Payload, cb uribeacon.AdvertiseCallback) error {
	a.mu.Lock()
	stops := a.stops
	a.mu.Unlock()

	go func() {
		if err := a.start(ctx, stops, s, p); err != nil {
			code := failureCode(err)
			a.logger.Debugf("start advertising: %v", err)
			cb.OnStartFailure(code)
			return
		}
		cb.OnStartSuccess(s)
	}()
	return nil
}

func (a *Adapter) start(ctx context.Context, stops uint64, s uribeacon.AdvertiseSettings, p uribeacon.Payload) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stops != stops {
		return errStopped
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "start advertising")
	}
	if a.advertising {
		return ErrCommandDisallowed
	}
	if err := a.open(); err != nil {
		return err
	}
	if err := a.hci.AdvertiseBeacon(ctx, s, p); err != nil {
		return err
	}
	a.advertising = true

	// legacy HCI has no per-advertisement power control
	a.logger.Infof("advertising on %s, requested %d dBm, channel tx power %d dBm",
		a.hci.Addr(), s.TxPowerDBm(), a.hci.TxPowerLevel())
	return nil
}

// StopAdvertising disables advertising and releases the transport.
func (a *Adapter) StopAdvertising() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stops++

	var err error
	if a.advertising && a.hci != nil {
		err = a.hci.StopAdvertising()
	}
	a.advertising = false

	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func failureCode(err error) uribeacon.AdvertiseFailure {
	switch errors.Cause(err) {
	case adv.ErrNotFit, uribeacon.ErrEIRPacketTooLong:
		return uribeacon.AdvertiseFailedDataTooLarge
	case ErrCommandDisallowed:
		return uribeacon.AdvertiseFailedAlreadyStarted
	case ErrUnsupportedFeature, ErrUnsupportedRemote, ErrUnknownCommand:
		return uribeacon.AdvertiseFailedFeatureUnsupported
	case ErrLimitReached, ErrMemoryExceeded, ErrRejectedResources:
		return uribeacon.AdvertiseFailedTooManyAdvertisers
	default:
		return uribeacon.AdvertiseFailedInternalError
	}
}
