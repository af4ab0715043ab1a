package h4

import (
	"io"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

const (
	rxQueueSize = 64
	readTimeout = time.Second
)

// DefaultSerialOptions returns 8N1 at 1M baud with hardware flow control,
// the usual setting for HCI UART controllers.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:          1000000,
		DataBits:          8,
		StopBits:          1,
		RTSCTSFlowControl: true,
	}
}

type h4 struct {
	sp  io.ReadWriteCloser
	rmu sync.Mutex
	wmu sync.Mutex

	rxQueue chan []byte

	done chan int
	cmu  sync.Mutex
}

// NewSerial opens a serial port and returns it as an H4 transport.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// force these
	opts.MinimumReadSize = 0
	opts.InterCharacterTimeout = 100

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", opts.PortName)
	}
	return New(sp), nil
}

// New wraps a byte stream carrying H4 packets. Reads return whole event
// packets, including the packet indicator.
func New(sp io.ReadWriteCloser) io.ReadWriteCloser {
	h := &h4{
		sp:      sp,
		done:    make(chan int),
		rxQueue: make(chan []byte, rxQueueSize),
	}

	go h.rxLoop()
	return h
}

// Read returns one packet, or 0 bytes and no error if none arrived within
// the read timeout.
func (h *h4) Read(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.rmu.Lock()
	defer h.rmu.Unlock()

	var n int
	select {
	case t := <-h.rxQueue:
		if len(p) < len(t) {
			return 0, errors.Errorf("buffer too small: %d < %d", len(p), len(t))
		}
		n = copy(p, t)

	case <-h.done:
		return 0, io.EOF

	case <-time.After(readTimeout):
		return 0, nil
	}

	return n, nil
}

func (h *h4) Write(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.wmu.Lock()
	defer h.wmu.Unlock()
	n, err := h.sp.Write(p)
	return n, errors.Wrap(err, "can't write h4")
}

func (h *h4) Close() error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		return nil

	default:
		close(h.done)
		return errors.Wrap(h.sp.Close(), "can't close h4")
	}
}

func (h *h4) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *h4) rxLoop() {
	fr := newFrame(h.rxQueue, h.done)
	tmp := make([]byte, 512)
	for {
		if !h.isOpen() {
			return
		}

		// jacobsa/go-serial reports an expired inter-character timeout as
		// a zero byte read, sometimes with io.EOF; sockets report an
		// expired deadline.
		n, err := h.sp.Read(tmp)
		switch {
		case n > 0:
			fr.Assemble(tmp[:n])
		case err == errPeerClosed:
			h.Close()
			return
		case err == nil || err == io.EOF || isTimeout(err):
			continue
		default:
			if h.isOpen() {
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
}
