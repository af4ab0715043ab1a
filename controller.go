package uribeacon

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State is the lifecycle state of a Controller.
type State int

const (
	StateUninitialized State = iota
	StateBlocked
	StateAwaitingEnable
	StateAdvertising
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBlocked:
		return "blocked"
	case StateAwaitingEnable:
		return "awaiting-enable"
	case StateAdvertising:
		return "advertising"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions leave s.
func (s State) Terminal() bool {
	return s == StateBlocked || s == StateClosed
}

// MenuItem identifies an entry of the beacon's options menu.
type MenuItem int

const (
	MenuSettings MenuItem = iota + 1
)

type eventType int

const (
	evtEnableResult eventType = iota
	evtAdvertiseSuccess
	evtAdvertiseFailure
)

type event struct {
	typ      eventType
	granted  bool
	settings AdvertiseSettings
	code     AdvertiseFailure
}

const eventQueueSize = 16

// Controller drives a single beacon: it resolves the adapter, gets the radio
// enabled and starts advertising the fixed payload. Events from the adapter
// are queued and handled by Run, one at a time.
type Controller struct {
	resolve      AdapterResolver
	adapter      Adapter
	settings     AdvertiseSettings
	log          Logger
	stateHandler func(State)

	mu    sync.Mutex
	state State

	events      chan event
	destroy     chan struct{}
	destroyOnce sync.Once
	done        chan struct{}
	started     bool
}

// NewController returns a controller that obtains its adapter from resolve.
func NewController(resolve AdapterResolver, opts ...ControllerOption) *Controller {
	c := &Controller{
		resolve:  resolve,
		settings: DefaultSettings(),
		events:   make(chan event, eventQueueSize),
		destroy:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = GetLogger().ChildLogger(map[string]interface{}{"component": "controller"})
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settings returns the settings advertisements are started with.
func (c *Controller) Settings() AdvertiseSettings {
	return c.settings
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev == s {
		return
	}
	c.log.Debugf("state %s -> %s", prev, s)
	if c.stateHandler != nil {
		c.stateHandler(s)
	}
}

// Run initializes the controller and handles its events until a terminal
// state is reached, ctx is done or Destroy is called. It returns an error
// whose cause is ErrUnsupportedHardware or ErrBluetoothDisabledDeclined when
// the beacon could not start.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("controller already started")
	}
	c.started = true
	c.mu.Unlock()

	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if done, err := c.initialize(ctx); done {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return c.teardown()
		case <-c.destroy:
			return c.teardown()
		case e := <-c.events:
			if done, err := c.handle(ctx, e); done {
				return err
			}
		}
	}
}

// Destroy tears the controller down. A pending enable request counts as
// declined; a running advertisement is stopped.
func (c *Controller) Destroy() {
	c.destroyOnce.Do(func() { close(c.destroy) })
}

// OnEnableResult delivers the user's answer to the enable request.
func (c *Controller) OnEnableResult(granted bool) {
	c.post(event{typ: evtEnableResult, granted: granted})
}

// OnStartSuccess implements AdvertiseCallback.
func (c *Controller) OnStartSuccess(settingsInEffect AdvertiseSettings) {
	c.post(event{typ: evtAdvertiseSuccess, settings: settingsInEffect})
}

// OnStartFailure implements AdvertiseCallback.
func (c *Controller) OnStartFailure(code AdvertiseFailure) {
	c.post(event{typ: evtAdvertiseFailure, code: code})
}

// HandleMenuItem handles a selection from the options menu and reports
// whether it was consumed.
func (c *Controller) HandleMenuItem(item MenuItem) bool {
	switch item {
	case MenuSettings:
		c.log.Debug("settings selected")
		return true
	}
	return false
}

func (c *Controller) post(e event) {
	select {
	case c.events <- e:
	case <-c.done:
	}
}

func (c *Controller) initialize(ctx context.Context) (bool, error) {
	a, err := c.resolve()
	if err == nil && a == nil {
		err = ErrNoAdapter
	}
	if err != nil {
		c.setState(StateBlocked)
		c.log.Errorf("bluetooth error: %v", err)
		if errors.Cause(err) == ErrNoAdapter {
			return true, errors.Wrap(ErrUnsupportedHardware, "resolve adapter")
		}
		return true, errors.Wrap(err, "resolve adapter")
	}
	c.adapter = a

	enabled, err := a.IsEnabled()
	if err != nil {
		c.setState(StateClosed)
		return true, errors.Wrap(err, "read adapter state")
	}

	if enabled {
		c.advertise(ctx)
		return false, nil
	}

	c.setState(StateAwaitingEnable)
	c.log.Info("bluetooth is disabled, requesting enable")
	if err := a.RequestEnable(ctx, c.OnEnableResult); err != nil {
		c.setState(StateClosed)
		return true, errors.Wrap(err, "request enable")
	}
	return false, nil
}

func (c *Controller) handle(ctx context.Context, e event) (bool, error) {
	switch e.typ {
	case evtEnableResult:
		if c.State() != StateAwaitingEnable {
			c.log.Debugf("ignoring enable result in state %s", c.State())
			return false, nil
		}
		if !e.granted {
			c.setState(StateClosed)
			c.log.Warn("bluetooth enable declined")
			return true, ErrBluetoothDisabledDeclined
		}
		c.advertise(ctx)

	case evtAdvertiseSuccess:
		c.log.Info("Advertisement successful")

	case evtAdvertiseFailure:
		c.log.Errorf("Advertisement failed error code: %d (%s)", int(e.code), e.code)
	}
	return false, nil
}

func (c *Controller) advertise(ctx context.Context) {
	p := BuildPayload()
	if uri, err := p.URI(); err == nil {
		c.log.Infof("advertising %s (%s)", uri, c.settings)
	}

	c.setState(StateAdvertising)
	if err := c.adapter.StartAdvertising(ctx, c.settings, p, c); err != nil {
		code := FailureCode(err)
		c.log.Errorf("Advertisement failed error code: %d (%v)", int(code), err)
	}
}

func (c *Controller) teardown() error {
	switch c.State() {
	case StateAwaitingEnable:
		c.setState(StateClosed)
		c.log.Warn("enable request abandoned, treating as declined")
		return ErrBluetoothDisabledDeclined

	case StateAdvertising:
		err := c.adapter.StopAdvertising()
		c.setState(StateClosed)
		if err != nil {
			return errors.Wrap(err, "stop advertising")
		}
		c.log.Info("advertising stopped")
	}
	return nil
}
