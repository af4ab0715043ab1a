package hci

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/hci/cmd"
	"github.com/rigado/uribeacon/linux/hci/evt"
)

// Command ...
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// CommandRP ...
type CommandRP interface {
	Unmarshal(b []byte) error
}

type handlerFn func(b []byte) error

type pkt struct {
	cmd  Command
	done chan []byte
}

// newHCI returns a hci device on transport t. Init opens it.
func newHCI(t transport, l uribeacon.Logger) *HCI {
	h := &HCI{
		transport: t,
		logger:    l,
		chCmdBufs: make(chan []byte, chCmdBufChanSize),
		sent:      make(map[int]*pkt),
		evth:      map[int]handlerFn{},
		done:      make(chan bool),
		sktRxChan: make(chan []byte, sktRxChanSize),
	}
	h.params.init()
	return h
}

// HCI drives a controller over a command/event transport.
type HCI struct {
	params params

	transport transport
	skt       io.ReadWriteCloser
	logger    uribeacon.Logger

	// Host to Controller command flow control [Vol 2, Part E, 4.4]
	chCmdBufs chan []byte
	muSent    sync.Mutex
	sent      map[int]*pkt

	// evtHub
	evth map[int]handlerFn

	// Device information or status.
	addr    uribeacon.Addr
	txPwrLv int

	errorHandler func(error)
	muErr        sync.Mutex
	err          error

	muClose sync.Mutex
	done    chan bool

	sktRxChan chan []byte
}

// Init opens the transport and reads the controller's identity.
func (h *HCI) Init() error {
	h.evth[evt.CommandCompleteCode] = h.handleCommandComplete
	h.evth[evt.CommandStatusCode] = h.handleCommandStatus
	h.evth[evt.HardwareErrorCode] = h.handleHardwareError

	var err error
	h.skt, err = getTransport(h.transport)
	if err != nil {
		return errors.Wrapf(err, "open %s", h.transport)
	}

	h.setAllowedCommands(1)

	go h.sktReadLoop()
	go h.sktProcessLoop()
	return h.init()
}

// SetErrorHandler sets the receiver of asynchronous transport errors.
func (h *HCI) SetErrorHandler(handler func(error)) {
	h.errorHandler = handler
}

// Close ...
func (h *HCI) Close() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()

	select {
	case <-h.done:
		//already closed, nothing to do
		return nil
	default:
		close(h.done)
	}

	if h.skt == nil {
		return nil
	}
	return h.skt.Close()
}

// Error returns the error that stopped the device, if any.
func (h *HCI) Error() error {
	h.muErr.Lock()
	defer h.muErr.Unlock()
	return h.err
}

func (h *HCI) setErr(err error) {
	h.muErr.Lock()
	defer h.muErr.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *HCI) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *HCI) init() error {
	// a kernel owned controller is reset by the kernel; resetting it here
	// would clobber the host stack's configuration
	if h.transport.hci == nil {
		h.logger.Info("hci reset")
		if err := h.Send(&cmd.Reset{}, nil); err != nil {
			return errors.Wrap(err, "reset")
		}
	}

	ReadBDADDRRP := cmd.ReadBDADDRRP{}
	if err := h.Send(&cmd.ReadBDADDR{}, &ReadBDADDRRP); err != nil {
		return errors.Wrap(err, "read bdaddr")
	}
	h.addr = uribeacon.NewAddrLE(ReadBDADDRRP.BDADDR[:])

	LEReadAdvertisingChannelTxPowerRP := cmd.LEReadAdvertisingChannelTxPowerRP{}
	if err := h.Send(&cmd.LEReadAdvertisingChannelTxPower{}, &LEReadAdvertisingChannelTxPowerRP); err != nil {
		return errors.Wrap(err, "read advertising channel tx power")
	}
	h.txPwrLv = int(LEReadAdvertisingChannelTxPowerRP.TransmitPowerLevel)

	h.logger.Debugf("controller %s, advertising channel tx power %d dBm", h.addr, h.txPwrLv)
	return nil
}

// Send ...
func (h *HCI) Send(c Command, r CommandRP) error {
	b, err := h.send(c)
	if err != nil {
		return err
	}
	if len(b) > 0 && b[0] != 0x00 {
		return ErrCommand(b[0])
	}
	if r != nil {
		return r.Unmarshal(b)
	}
	return nil
}

func (h *HCI) checkOpCodeFree(opCode int) error {
	h.muSent.Lock()
	defer h.muSent.Unlock()

	if _, ok := h.sent[opCode]; ok {
		return fmt.Errorf("command with opcode 0x%04X pending", opCode)
	}
	return nil
}

func (h *HCI) send(c Command) ([]byte, error) {
	if err := h.Error(); err != nil {
		return nil, err
	}

	p := &pkt{c, make(chan []byte)}

	//verify opcode is free before asking for the command buffer
	//this ensures that the command buffer is only taken if
	//the command can be sent
	if err := h.checkOpCodeFree(c.OpCode()); err != nil {
		return nil, err
	}

	// get buffer w/timeout
	var b []byte
	select {
	case <-h.done:
		return nil, fmt.Errorf("hci closed")
	case b = <-h.chCmdBufs:
		//ok
	case <-time.After(chCmdBufTimeout):
		err := fmt.Errorf("chCmdBufs get timeout")
		h.dispatchError(err)
		return nil, err
	}

	//HCI header
	b[0] = pktTypeCommand
	b[1] = byte(c.OpCode())
	b[2] = byte(c.OpCode() >> 8)
	b[3] = byte(c.Len())
	if err := c.Marshal(b[4:]); err != nil {
		return nil, errors.Wrapf(err, "marshal cmd 0x%04X", c.OpCode())
	}

	h.muSent.Lock()
	h.sent[c.OpCode()] = p
	h.muSent.Unlock()

	// clear sent table when done, we sometimes get command complete or
	// command status messages with no matching send
	defer func() {
		h.muSent.Lock()
		delete(h.sent, c.OpCode())
		h.muSent.Unlock()
	}()

	h.logger.Debugf("cmd > % X", b[:4+c.Len()])
	if !h.isOpen() {
		return nil, fmt.Errorf("hci closed")
	} else if n, err := h.skt.Write(b[:4+c.Len()]); err != nil {
		return nil, errors.Wrap(err, "send cmd")
	} else if n != 4+c.Len() {
		return nil, fmt.Errorf("hci: failed to send whole cmd pkt to hci socket")
	}

	// emergency timeout to prevent calls from locking up if the HCI
	// interface doesn't respond.
	select {
	case <-time.After(cmdTimeout):
		err := fmt.Errorf("hci: no response to command 0x%04X, hci connection failed", c.OpCode())
		h.dispatchError(err)
		return nil, err
	case <-h.done:
		if err := h.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("hci closed")
	case rb := <-p.done:
		return rb, nil
	}
}

func (h *HCI) sktProcessLoop() {
	for {
		var p []byte
		var ok bool

		select {
		case <-h.done:
			return

		case p, ok = <-h.sktRxChan:
			if !ok {
				h.setErr(io.EOF)
				h.Close()
				return
			}
		}

		if err := h.handlePkt(p); err != nil {
			h.setErr(errors.Wrap(err, "skt handle error"))
			h.dispatchError(h.Error())
			h.Close()
			return
		}
	}
}

func (h *HCI) sktReadLoop() {
	defer close(h.sktRxChan)

	b := make([]byte, 4096)
	for {
		n, err := h.skt.Read(b)

		switch {
		case n == 0 && err == nil:
			// read timeout
			if !h.isOpen() {
				return
			}

		//callers depend on detecting io.EOF, don't wrap it.
		case err == io.EOF:
			h.setErr(err)
			return

		case err != nil:
			if h.isOpen() {
				h.setErr(errors.Wrap(err, "skt read error"))
			}
			return

		default:
			p := make([]byte, n)
			copy(p, b)
			select {
			case h.sktRxChan <- p:
			case <-h.done:
				return
			}
		}
	}
}

func (h *HCI) handlePkt(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	// Strip the 1-byte HCI header and pass down the rest of the packet.
	t, b := b[0], b[1:]
	switch t {
	case pktTypeEvent:
		return h.handleEvt(b)
	case pktTypeACLData, pktTypeSCOData, pktTypeVendor:
		h.logger.Debugf("ignoring packet type 0x%02X: % X", t, b)
		return nil
	case pktTypeCommand:
		return fmt.Errorf("unmanaged cmd: % X", b)
	default:
		return fmt.Errorf("invalid packet: 0x%02X % X", t, b)
	}
}

func (h *HCI) handleEvt(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("short event packet: % X", b)
	}

	code, plen := int(b[0]), int(b[1])
	if plen != len(b[2:]) {
		return fmt.Errorf("invalid event packet: % X", b)
	}

	h.logger.Debugf("evt < % X", b)
	if f := h.evth[code]; f != nil {
		return f(b[2:])
	}

	// other hosts on a shared controller generate events we don't track
	return nil
}

func (h *HCI) handleCommandComplete(b []byte) error {
	e := evt.CommandComplete(b)
	if !e.Valid() {
		return fmt.Errorf("invalid command complete: % X", b)
	}

	h.setAllowedCommands(int(e.NumHCICommandPackets()))

	// NOP command, used for flow control purpose [Vol 2, Part E, 4.4]
	// no handling other than setAllowedCommands needed
	if e.CommandOpcode() == 0x0000 {
		return nil
	}
	return h.complete(int(e.CommandOpcode()), e.ReturnParameters())
}

func (h *HCI) handleCommandStatus(b []byte) error {
	e := evt.CommandStatus(b)
	if !e.Valid() {
		return fmt.Errorf("invalid command status: % X", b)
	}

	h.setAllowedCommands(int(e.NumHCICommandPackets()))
	return h.complete(int(e.CommandOpcode()), []byte{e.Status()})
}

func (h *HCI) complete(opCode int, rp []byte) error {
	h.muSent.Lock()
	p, found := h.sent[opCode]
	h.muSent.Unlock()

	if !found {
		h.logger.Debugf("no pending cmd for opcode 0x%04X", opCode)
		return nil
	}

	select {
	case <-h.done:
		return fmt.Errorf("hci closed")
	case p.done <- rp:
		return nil
	case <-time.After(cmdTimeout):
		// the sender gave up
		return nil
	}
}

func (h *HCI) handleHardwareError(b []byte) error {
	e := evt.HardwareError(b)
	err := fmt.Errorf("controller hardware error 0x%02X", e.HardwareCode())
	h.logger.Error(err)
	h.dispatchError(err)
	return nil
}

func (h *HCI) setAllowedCommands(n int) {
	if n > chCmdBufChanSize {
		h.logger.Warnf("hci.setAllowedCommands: defaulting %d -> %d", n, chCmdBufChanSize)
		n = chCmdBufChanSize
	}

	//put with timeout
	for len(h.chCmdBufs) < n {
		select {
		case <-h.done:
			return
		case h.chCmdBufs <- make([]byte, chCmdBufElementSize):
			//ok
		case <-time.After(chCmdBufTimeout):
			h.dispatchError(fmt.Errorf("chCmdBufs put timeout"))
			return
		}
	}
}

func (h *HCI) dispatchError(e error) {
	switch {
	case e == nil:
	case h.errorHandler == nil:
		h.logger.Error(e)
	case !h.isOpen():
		//don't dispatch
		h.logger.Debug("hci closing: ", e)
	default:
		h.errorHandler(e)
	}
}
