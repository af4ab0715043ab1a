package bluez

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObject stands in for /org/bluez/hciN. Methods it doesn't override
// panic through the nil embedded interface.
type fakeObject struct {
	dbus.BusObject

	mu       sync.Mutex
	path     dbus.ObjectPath
	props    map[string]interface{}
	getErr   error
	setErr   error
	callErrs map[string]error
	calls    []string
}

func newFakeObject(id string) *fakeObject {
	return &fakeObject{
		path: dbus.ObjectPath("/org/bluez/" + id),
		props: map[string]interface{}{
			adapterInterface + ".Address": "11:22:33:44:55:66",
			adapterInterface + ".Powered": true,
		},
		callErrs: map[string]error{},
	}
}

func (f *fakeObject) Path() dbus.ObjectPath { return f.path }

func (f *fakeObject) GetProperty(p string) (dbus.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return dbus.Variant{}, f.getErr
	}
	return dbus.MakeVariant(f.props[p]), nil
}

func (f *fakeObject) SetProperty(p string, v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.props[p] = v.(dbus.Variant).Value()
	return nil
}

func (f *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	return f.CallWithContext(context.Background(), method, flags, args...)
}

func (f *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return &dbus.Call{Method: method, Args: args, Err: f.callErrs[method]}
}

func (f *fakeObject) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeExporter struct {
	mu       sync.Mutex
	exported map[dbus.ObjectPath]prop.Map
	release  func()
}

func (e *fakeExporter) export(path dbus.ObjectPath, props prop.Map, release func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported[path] = props
	e.release = release
	return nil
}

func (e *fakeExporter) unexport(path dbus.ObjectPath) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.exported, path)
}

func (e *fakeExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.exported)
}

type callback struct {
	ok   chan uribeacon.AdvertiseSettings
	fail chan uribeacon.AdvertiseFailure
}

func newCallback() *callback {
	return &callback{
		ok:   make(chan uribeacon.AdvertiseSettings, 1),
		fail: make(chan uribeacon.AdvertiseFailure, 1),
	}
}

func (c *callback) OnStartSuccess(s uribeacon.AdvertiseSettings) { c.ok <- s }
func (c *callback) OnStartFailure(code uribeacon.AdvertiseFailure) { c.fail <- code }

func (c *callback) wait(t *testing.T) (bool, uribeacon.AdvertiseFailure) {
	t.Helper()
	select {
	case <-c.ok:
		return true, 0
	case code := <-c.fail:
		return false, code
	case <-time.After(2 * time.Second):
		t.Fatal("no advertise callback")
	}
	return false, 0
}

func newTestAdapter(t *testing.T, obj *fakeObject, opts ...uribeacon.Option) (*Adapter, *fakeExporter) {
	t.Helper()
	l, _ := test.NewNullLogger()
	exp := &fakeExporter{exported: map[dbus.ObjectPath]prop.Map{}}
	opts = append([]uribeacon.Option{uribeacon.OptLogger(uribeacon.NewLogger(l))}, opts...)
	a, err := newAdapter(func(id string) dbus.BusObject {
		obj.path = dbus.ObjectPath("/org/bluez/" + id)
		return obj
	}, exp, opts...)
	require.NoError(t, err)
	return a, exp
}

func TestNewAdapterSelectsDevice(t *testing.T) {
	obj := newFakeObject("hci0")
	_, _ = newTestAdapter(t, obj, uribeacon.OptDeviceID(1))
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci1"), obj.Path())
}

func TestNewAdapterMissing(t *testing.T) {
	obj := newFakeObject("hci0")
	obj.getErr = dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}

	_, err := newAdapter(func(string) dbus.BusObject { return obj }, &fakeExporter{})
	require.Error(t, err)
	assert.Equal(t, uribeacon.ErrNoAdapter, errors.Cause(err))

	obj.getErr = errors.New("bus gone")
	_, err = newAdapter(func(string) dbus.BusObject { return obj }, &fakeExporter{})
	require.Error(t, err)
	assert.NotEqual(t, uribeacon.ErrNoAdapter, errors.Cause(err))
}

func TestNewAdapterRejectsUart(t *testing.T) {
	obj := newFakeObject("hci0")
	_, err := newAdapter(func(string) dbus.BusObject { return obj }, &fakeExporter{}, uribeacon.OptTransportH4Uart("/dev/ttyS0", 0))
	assert.Error(t, err)
}

func TestIsEnabled(t *testing.T) {
	obj := newFakeObject("hci0")
	a, _ := newTestAdapter(t, obj)

	on, err := a.IsEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	obj.props[adapterInterface+".Powered"] = "yes"
	_, err = a.IsEnabled()
	assert.Error(t, err)
}

func TestRequestEnable(t *testing.T) {
	for name, tc := range map[string]struct {
		answer bool
		setErr error
		want   bool
	}{
		"granted":   {true, nil, true},
		"declined":  {false, nil, false},
		"set fails": {true, errors.New("rfkill"), false},
	} {
		t.Run(name, func(t *testing.T) {
			obj := newFakeObject("hci0")
			obj.props[adapterInterface+".Powered"] = false
			obj.setErr = tc.setErr
			a, _ := newTestAdapter(t, obj, uribeacon.OptPrompter(uribeacon.AutoPrompter(tc.answer)))

			got := make(chan bool, 1)
			require.NoError(t, a.RequestEnable(context.Background(), func(g bool) { got <- g }))
			select {
			case g := <-got:
				assert.Equal(t, tc.want, g)
			case <-time.After(time.Second):
				t.Fatal("no enable result")
			}

			on, err := a.IsEnabled()
			require.NoError(t, err)
			assert.Equal(t, tc.want, on)
		})
	}
}

func TestStartStopAdvertising(t *testing.T) {
	obj := newFakeObject("hci0")
	a, exp := newTestAdapter(t, obj)

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code := cb.wait(t)
	require.True(t, ok, "failed with %v", code)
	assert.Equal(t, 1, exp.count())
	assert.Equal(t, []string{advManagerInterface + ".RegisterAdvertisement"}, obj.methods())

	// a second advertisement is refused
	cb = newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code = cb.wait(t)
	assert.False(t, ok)
	assert.Equal(t, uribeacon.AdvertiseFailedAlreadyStarted, code)

	require.NoError(t, a.StopAdvertising())
	assert.Equal(t, 0, exp.count())
	assert.Equal(t, advManagerInterface+".UnregisterAdvertisement", obj.methods()[1])

	require.NoError(t, a.StopAdvertising(), "stopping twice is a no-op")
}

func TestStartAdvertisingRegisterFails(t *testing.T) {
	obj := newFakeObject("hci0")
	obj.callErrs[advManagerInterface+".RegisterAdvertisement"] = dbus.Error{Name: "org.bluez.Error.NotPermitted"}
	a, exp := newTestAdapter(t, obj)

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code := cb.wait(t)
	assert.False(t, ok)
	assert.Equal(t, uribeacon.AdvertiseFailedTooManyAdvertisers, code)
	assert.Equal(t, 0, exp.count(), "failed registration is unexported")
}

func TestReleaseByBluetoothd(t *testing.T) {
	obj := newFakeObject("hci0")
	a, exp := newTestAdapter(t, obj)

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, _ := cb.wait(t)
	require.True(t, ok)

	exp.release()
	require.NoError(t, a.StopAdvertising())
	assert.Len(t, obj.methods(), 1, "released advertisements are not unregistered")
	assert.Equal(t, 0, exp.count())
}

func TestAdvertisementProps(t *testing.T) {
	m, err := advertisementProps(uribeacon.DefaultSettings(), uribeacon.BuildPayload())
	require.NoError(t, err)

	p := m[advertisementIface]
	assert.Equal(t, "broadcast", p["Type"].Value)
	assert.Equal(t, []string{"0000FED8-0000-1000-8000-00805F9B34FB"}, p["ServiceUUIDs"].Value)
	assert.Equal(t, map[string]interface{}{
		"FED8": []byte{0x00, 0x20, 0x00, 0x65, 0x66, 0x66, 0x08},
	}, p["ServiceData"].Value)
	assert.Equal(t, int16(1), p["TxPower"].Value)
	assert.Equal(t, uint32(250), p["MinInterval"].Value)
	assert.Equal(t, uint32(250), p["MaxInterval"].Value)

	s := uribeacon.DefaultSettings()
	s.Type = uribeacon.AdvertisingTypeConnectable
	m, err = advertisementProps(s, uribeacon.BuildPayload())
	require.NoError(t, err)
	assert.Equal(t, "peripheral", m[advertisementIface]["Type"].Value)

	_, err = advertisementProps(s, uribeacon.Payload{ServiceData: []byte{0xD8}})
	assert.Error(t, err)

	short := uribeacon.BuildPayload()
	short.ServiceUUIDs = []uribeacon.UUID{uribeacon.UUID16(uribeacon.URIBeaconServiceID)}
	m, err = advertisementProps(uribeacon.DefaultSettings(), short)
	require.NoError(t, err)
	assert.Equal(t, []string{"0000FED8-0000-1000-8000-00805F9B34FB"}, m[advertisementIface]["ServiceUUIDs"].Value)
}

func TestFailureCode(t *testing.T) {
	for name, code := range map[string]uribeacon.AdvertiseFailure{
		"org.bluez.Error.AlreadyExists":               uribeacon.AdvertiseFailedAlreadyStarted,
		"org.bluez.Error.NotPermitted":                uribeacon.AdvertiseFailedTooManyAdvertisers,
		"org.bluez.Error.InvalidLength":               uribeacon.AdvertiseFailedDataTooLarge,
		"org.bluez.Error.NotSupported":                uribeacon.AdvertiseFailedFeatureUnsupported,
		"org.freedesktop.DBus.Error.UnknownInterface": uribeacon.AdvertiseFailedFeatureUnsupported,
		"org.bluez.Error.Failed":                      uribeacon.AdvertiseFailedInternalError,
	} {
		err := errors.Wrap(dbus.Error{Name: name}, "register")
		assert.Equal(t, code, failureCode(err), name)
	}

	assert.Equal(t, uribeacon.AdvertiseFailedAlreadyStarted, failureCode(&dbus.Error{Name: "org.bluez.Error.AlreadyExists"}))
	assert.Equal(t, uribeacon.AdvertiseFailedInternalError, failureCode(errors.New("boom")))
}

func TestStartAfterStopDoesNotRegister(t *testing.T) {
	obj := newFakeObject("hci0")
	a, exp := newTestAdapter(t, obj)

	a.mu.Lock()
	stops := a.stops
	a.mu.Unlock()
	require.NoError(t, a.StopAdvertising())

	assert.Error(t, a.start(context.Background(), stops, uribeacon.DefaultSettings(), uribeacon.BuildPayload()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.mu.Lock()
	stops = a.stops
	a.mu.Unlock()
	assert.Error(t, a.start(ctx, stops, uribeacon.DefaultSettings(), uribeacon.BuildPayload()))

	assert.Empty(t, obj.methods())
	assert.Equal(t, 0, exp.count())
}
