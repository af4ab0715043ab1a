// Package bluez advertises through a running bluetoothd, over the system
// D-Bus.
package bluez

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
)

const (
	bluezService        = "org.bluez"
	adapterInterface    = "org.bluez.Adapter1"
	advertisementIface  = "org.bluez.LEAdvertisement1"
	advManagerInterface = "org.bluez.LEAdvertisingManager1"

	enableQuestion = "Bluetooth is disabled. Turn it on?"
)

var (
	_ uribeacon.Adapter      = (*Adapter)(nil)
	_ uribeacon.DeviceOption = (*Adapter)(nil)
)

var advertisementID uint64

// exporter publishes the advertisement object on the bus.
type exporter interface {
	export(path dbus.ObjectPath, props prop.Map, release func()) error
	unexport(path dbus.ObjectPath)
}

// Adapter advertises through bluetoothd.
type Adapter struct {
	id       string
	adapter  dbus.BusObject
	exp      exporter
	prompter uribeacon.Prompter
	logger   uribeacon.Logger

	mu          sync.Mutex
	path        dbus.ObjectPath
	advertising bool
	stops       uint64
}

// NewAdapter connects to the system bus and looks up the adapter, hci0 by
// default. It fails with an error whose cause is uribeacon.ErrNoAdapter if
// bluetoothd doesn't know the adapter.
func NewAdapter(opts ...uribeacon.Option) (*Adapter, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect system bus")
	}

	return newAdapter(func(id string) dbus.BusObject {
		return conn.Object(bluezService, dbus.ObjectPath("/org/bluez/"+id))
	}, busExporter{conn}, opts...)
}

func newAdapter(object func(id string) dbus.BusObject, exp exporter, opts ...uribeacon.Option) (*Adapter, error) {
	a := &Adapter{
		id:       "hci0",
		exp:      exp,
		prompter: uribeacon.NewTerminalPrompter(os.Stdin, os.Stderr),
		logger:   uribeacon.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}
	a.logger = a.logger.ChildLogger(map[string]interface{}{"bluez": a.id})
	a.adapter = object(a.id)

	addr, err := a.adapter.GetProperty(adapterInterface + ".Address")
	if err != nil {
		switch errorName(err) {
		case "org.freedesktop.DBus.Error.UnknownObject",
			"org.freedesktop.DBus.Error.UnknownMethod",
			"org.freedesktop.DBus.Error.InvalidArgs",
			"org.freedesktop.DBus.Error.ServiceUnknown":
			return nil, errors.Wrapf(uribeacon.ErrNoAdapter, "%s: %v", a.adapter.Path(), err)
		}
		return nil, errors.Wrapf(err, "read %s address", a.id)
	}
	a.logger.Debugf("adapter %v at %s", addr.Value(), a.adapter.Path())
	return a, nil
}

// SetTransportHCISocket selects the adapter by index.
func (a *Adapter) SetTransportHCISocket(id int) error {
	a.id = fmt.Sprintf("hci%d", id)
	return nil
}

// SetTransportH4Uart is not supported; bluetoothd owns the transport.
func (a *Adapter) SetTransportH4Uart(path string, baud uint) error {
	return errors.New("bluez: uart transport not supported, attach the controller with btattach")
}

// SetTransportH4Socket is not supported; bluetoothd owns the transport.
func (a *Adapter) SetTransportH4Socket(addr string, timeout time.Duration) error {
	return errors.New("bluez: h4 socket transport not supported")
}

// SetPrompter sets the prompter asked before powering the radio on.
func (a *Adapter) SetPrompter(p uribeacon.Prompter) error {
	a.prompter = p
	return nil
}

// SetLogger ...
func (a *Adapter) SetLogger(l uribeacon.Logger) error {
	a.logger = l
	return nil
}

// IsEnabled reads Adapter1.Powered.
func (a *Adapter) IsEnabled() (bool, error) {
	v, err := a.adapter.GetProperty(adapterInterface + ".Powered")
	if err != nil {
		return false, errors.Wrap(err, "read powered")
	}
	on, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("powered is %T, not bool", v.Value())
	}
	return on, nil
}

// RequestEnable asks the prompter, then sets Adapter1.Powered. A failed
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
			if err := a.adapter.SetProperty(adapterInterface+".Powered", dbus.MakeVariant(true)); err != nil {
				a.logger.Errorf("power on: %v", err)
				result(false)
				return
			}
			result(true)
		}
	}()
	return nil
}

// StartAdvertising exports an LEAdvertisement1 object and registers it.
// The outcome is delivered through cb from another goroutine.
func (a *Adapter) StartAdvertising(ctx context.Context, s uribeacon.AdvertiseSettings, p uribeacon.Payload, cb uribeacon.AdvertiseCallback) error {
	a.mu.Lock()
	stops := a.stops
	a.mu.Unlock()

	go func() {
		if err := a.start(ctx, stops, s, p); err != nil {
			a.logger.Debugf("start advertising: %v", err)
			cb.OnStartFailure(failureCode(err))
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
		return errors.New("advertising stopped before it started")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "start advertising")
	}

	if a.advertising {
		return errAlreadyExists
	}

	props, err := advertisementProps(s, p)
	if err != nil {
		return err
	}

	path := dbus.ObjectPath(fmt.Sprintf("/org/rigado/uribeacon/advertisement%d", atomic.AddUint64(&advertisementID, 1)))
	if err := a.exp.export(path, props, a.release); err != nil {
		return errors.Wrap(err, "export advertisement")
	}

	call := a.adapter.CallWithContext(ctx, advManagerInterface+".RegisterAdvertisement", 0, path, map[string]interface{}{})
	if call.Err != nil {
		a.exp.unexport(path)
		return errors.Wrap(call.Err, "register advertisement")
	}

	a.path = path
	a.advertising = true
	a.logger.Infof("advertisement registered at %s", path)
	return nil
}

// release is called by bluetoothd when it drops the advertisement on its
// own, for example when the adapter powers off.
func (a *Adapter) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Warn("advertisement released by bluetoothd")
	a.advertising = false
}

// StopAdvertising unregisters and unexports the advertisement.
func (a *Adapter) StopAdvertising() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stops++
	if a.path == "" {
		return nil
	}

	var err error
	if a.advertising {
		err = a.adapter.Call(advManagerInterface+".UnregisterAdvertisement", 0, a.path).Err
		if errorName(err) == "org.bluez.Error.DoesNotExist" {
			err = nil
		}
	}
	a.exp.unexport(a.path)
	a.path = ""
	a.advertising = false
	return errors.Wrap(err, "unregister advertisement")
}

// advertisementProps maps the payload onto LEAdvertisement1 properties.
// ServiceData is keyed by the 16-bit identifier and carries the frame
// without it; bluetoothd writes the identifier itself.
func advertisementProps(s uribeacon.AdvertiseSettings, p uribeacon.Payload) (prop.Map, error) {
	if len(p.ServiceData) < 2 {
		return nil, errors.Wrap(uribeacon.ErrEIRPacketTooLong, "service data has no identifier")
	}

	typ := "broadcast"
	if s.Connectable() {
		typ = "peripheral"
	}

	// bluetoothd wants the 128-bit form
	var uuids []string
	for _, u := range p.ServiceUUIDs {
		uuids = append(uuids, u.Expand().String())
	}

	iv := uint32(s.Interval().Milliseconds())
	return prop.Map{
		advertisementIface: {
			"Type":         {Value: typ},
			"ServiceUUIDs": {Value: uuids},
			"ServiceData": {Value: map[string]interface{}{
				uribeacon.UUID16(p.ServiceID()).String(): p.Frame(),
			}},
			"TxPower":     {Value: int16(s.TxPowerDBm())},
			"MinInterval": {Value: iv},
			"MaxInterval": {Value: iv},
		},
	}, nil
}

var errAlreadyExists = dbus.Error{Name: "org.bluez.Error.AlreadyExists", Body: []interface{}{"advertisement already registered"}}

func errorName(err error) string {
	var de dbus.Error
	if errors.As(err, &de) {
		return de.Name
	}
	var dp *dbus.Error
	if errors.As(err, &dp) && dp != nil {
		return dp.Name
	}
	return ""
}

func failureCode(err error) uribeacon.AdvertiseFailure {
	if errors.Cause(err) == uribeacon.ErrEIRPacketTooLong {
		return uribeacon.AdvertiseFailedDataTooLarge
	}

	switch errorName(err) {
	case "org.bluez.Error.AlreadyExists":
		return uribeacon.AdvertiseFailedAlreadyStarted
	case "org.bluez.Error.NotPermitted":
		return uribeacon.AdvertiseFailedTooManyAdvertisers
	case "org.bluez.Error.InvalidLength":
		return uribeacon.AdvertiseFailedDataTooLarge
	case "org.bluez.Error.NotSupported",
		"org.freedesktop.DBus.Error.UnknownMethod",
		"org.freedesktop.DBus.Error.UnknownInterface":
		return uribeacon.AdvertiseFailedFeatureUnsupported
	default:
		return uribeacon.AdvertiseFailedInternalError
	}
}

// advertisement is the object bluetoothd calls back on.
type advertisement struct {
	release func()
}

// Release implements org.bluez.LEAdvertisement1.Release.
func (o advertisement) Release() *dbus.Error {
	o.release()
	return nil
}

type busExporter struct {
	conn *dbus.Conn
}

func (b busExporter) export(path dbus.ObjectPath, props prop.Map, release func()) error {
	p, err := prop.Export(b.conn, path, props)
	if err != nil {
		return err
	}

	if err := b.conn.Export(advertisement{release}, path, advertisementIface); err != nil {
		return err
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       advertisementIface,
				Methods:    introspect.Methods(advertisement{}),
				Properties: p.Introspection(advertisementIface),
			},
		},
	}
	return b.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable")
}

func (b busExporter) unexport(path dbus.ObjectPath) {
	for _, iface := range []string{
		advertisementIface,
		"org.freedesktop.DBus.Properties",
		"org.freedesktop.DBus.Introspectable",
	} {
		b.conn.Export(nil, path, iface)
	}
}
