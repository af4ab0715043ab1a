package hci

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConn(rwc io.ReadWriteCloser) uribeacon.Option {
	return func(o uribeacon.DeviceOption) error {
		o.(*Adapter).transport = transport{conn: &transportConn{rwc}}
		return nil
	}
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

func newTestAdapter(t *testing.T, f *fakeController, opts ...uribeacon.Option) *Adapter {
	t.Helper()
	opts = append([]uribeacon.Option{withConn(f), uribeacon.OptLogger(testLogger())}, opts...)
	a, err := NewAdapter(opts...)
	require.NoError(t, err)
	return a
}

func TestAdapterAdvertisesBeacon(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f)

	on, err := a.IsEnabled()
	require.NoError(t, err)
	assert.True(t, on, "uart controllers are always on")

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code := cb.wait(t)
	require.True(t, ok, "failed with %v", code)

	assert.Equal(t, []int{0x0C03, 0x1009, 0x2007, 0x2006, 0x2008, 0x2009, 0x200A}, f.opcodes())
	assert.Equal(t, []byte{
		0x90, 0x01, 0x90, 0x01, // 250ms
		0x03,       // ADV_NONCONN_IND
		0x00, 0x00, // public, public
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x07, // all channels
		0x00,
	}, f.params(0x2006))

	ad := f.params(0x2008)
	require.Len(t, ad, 32)
	assert.Equal(t, byte(29), ad[0])
	assert.Equal(t, []byte{0x11, 0x07}, ad[1:3])
	assert.Equal(t, []byte{0x0A, 0x16, 0xD8, 0xFE, 0x00, 0x20, 0x00, 0x65, 0x66, 0x66, 0x08}, ad[19:30])
	assert.Equal(t, []byte{0x00, 0x00}, ad[30:])

	assert.Equal(t, byte(0), f.params(0x2009)[0], "scan response is empty")
	assert.Equal(t, []byte{0x01}, f.params(0x200A))

	require.NoError(t, a.StopAdvertising())
	assert.Equal(t, []byte{0x00}, f.params(0x200A))
	assert.True(t, f.isClosed())
}

func TestAdapterAlreadyAdvertising(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f)

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, _ := cb.wait(t)
	require.True(t, ok)

	cb = newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code := cb.wait(t)
	assert.False(t, ok)
	assert.Equal(t, uribeacon.AdvertiseFailedAlreadyStarted, code)
}

func TestAdapterFailureCodes(t *testing.T) {
	for name, tc := range map[string]struct {
		op     int
		status ErrCommand
		code   uribeacon.AdvertiseFailure
	}{
		"disallowed":  {0x2006, ErrCommandDisallowed, uribeacon.AdvertiseFailedAlreadyStarted},
		"unsupported": {0x200A, ErrUnsupportedFeature, uribeacon.AdvertiseFailedFeatureUnsupported},
		"limit":       {0x200A, ErrLimitReached, uribeacon.AdvertiseFailedTooManyAdvertisers},
		"hardware":    {0x2008, ErrHardwareFailure, uribeacon.AdvertiseFailedInternalError},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeController()
			f.status[tc.op] = byte(tc.status)
			a := newTestAdapter(t, f)

			cb := newCallback()
			require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
			ok, code := cb.wait(t)
			assert.False(t, ok)
			assert.Equal(t, tc.code, code)
			assert.NoError(t, a.StopAdvertising())
		})
	}
}

func TestAdapterDataTooLarge(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f)

	p := uribeacon.BuildPayload()
	p.ServiceData = append(p.ServiceData, make([]byte, 20)...)

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(context.Background(), uribeacon.DefaultSettings(), p, cb))
	ok, code := cb.wait(t)
	assert.False(t, ok)
	assert.Equal(t, uribeacon.AdvertiseFailedDataTooLarge, code)
	assert.NotContains(t, f.opcodes(), 0x2006, "nothing is programmed")
}

func TestAdapterNotPresent(t *testing.T) {
	f := newFakeController()
	f.writeErr = errors.New("no such device")

	_, err := NewAdapter(withConn(f), uribeacon.OptLogger(testLogger()))
	require.Error(t, err)
	assert.Equal(t, uribeacon.ErrNoAdapter, errors.Cause(err))
}

func TestAdapterRequestEnable(t *testing.T) {
	for _, answer := range []bool{true, false} {
		f := newFakeController()
		a := newTestAdapter(t, f, uribeacon.OptPrompter(uribeacon.AutoPrompter(answer)))

		got := make(chan bool, 1)
		require.NoError(t, a.RequestEnable(context.Background(), func(granted bool) { got <- granted }))
		select {
		case g := <-got:
			assert.Equal(t, answer, g)
		case <-time.After(time.Second):
			t.Fatal("no enable result")
		}
		assert.NoError(t, a.StopAdvertising())
	}
}

func TestAdapterRequestEnableCancelled(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f, uribeacon.OptPrompter(uribeacon.AutoPrompter(true)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := make(chan bool, 1)
	require.NoError(t, a.RequestEnable(ctx, func(granted bool) { got <- granted }))
	assert.False(t, <-got)
	assert.NoError(t, a.StopAdvertising())
}

func TestFailureCode(t *testing.T) {
	assert.Equal(t, uribeacon.AdvertiseFailedDataTooLarge, failureCode(errors.Wrap(uribeacon.ErrEIRPacketTooLong, "set")))
	assert.Equal(t, uribeacon.AdvertiseFailedInternalError, failureCode(errors.New("boom")))
}

func TestAdapterStopBeforeStartRuns(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f)

	a.mu.Lock()
	stops := a.stops
	a.mu.Unlock()

	require.NoError(t, a.StopAdvertising())

	err := a.start(context.Background(), stops, uribeacon.DefaultSettings(), uribeacon.BuildPayload())
	assert.Equal(t, errStopped, err)
	assert.False(t, a.advertising)
	assert.NotContains(t, f.opcodes(), 0x200A, "advertising was never enabled")
}

func TestAdapterStartWithDoneContext(t *testing.T) {
	f := newFakeController()
	a := newTestAdapter(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cb := newCallback()
	require.NoError(t, a.StartAdvertising(ctx, uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
	ok, code := cb.wait(t)
	assert.False(t, ok)
	assert.Equal(t, uribeacon.AdvertiseFailedInternalError, code)
	assert.NotContains(t, f.opcodes(), 0x200A)
	require.NoError(t, a.StopAdvertising())
}

func TestAdapterTeardownRacingStart(t *testing.T) {
	for i := 0; i < 5; i++ {
		f := newFakeController()
		a := newTestAdapter(t, f)

		ctx, cancel := context.WithCancel(context.Background())
		cb := newCallback()
		require.NoError(t, a.StartAdvertising(ctx, uribeacon.DefaultSettings(), uribeacon.BuildPayload(), cb))
		cancel()
		require.NoError(t, a.StopAdvertising())
		cb.wait(t)

		// whichever ran first, the radio ends up silent
		a.mu.Lock()
		advertising, open := a.advertising, a.hci != nil
		a.mu.Unlock()
		assert.False(t, advertising)
		assert.False(t, open)
		if p := f.params(0x200A); p != nil {
			assert.Equal(t, []byte{0x00}, p)
		}
	}
}
