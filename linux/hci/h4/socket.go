package h4

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// DefaultSocketTimeout bounds the dial and each read or write of an H4
// socket when no timeout is given.
const DefaultSocketTimeout = 2 * time.Second

// errPeerClosed is a socket closed by the remote end. Unlike a serial port,
// where a zero byte read is an idle line, it ends the transport.
var errPeerClosed = errors.New("h4 socket closed by peer")

type connWithTimeout struct {
	c       net.Conn
	timeout time.Duration
}

func (cwt *connWithTimeout) Read(b []byte) (int, error) {
	cwt.c.SetReadDeadline(time.Now().Add(cwt.timeout))
	n, err := cwt.c.Read(b)
	if err == io.EOF {
		err = errPeerClosed
	}
	return n, err
}

func (cwt *connWithTimeout) Write(b []byte) (int, error) {
	cwt.c.SetWriteDeadline(time.Now().Add(cwt.timeout))
	return cwt.c.Write(b)
}

func (cwt *connWithTimeout) Close() error {
	return cwt.c.Close()
}

// NewSocket dials a controller whose H4 stream is bridged to TCP, for
// example by a serial-to-network proxy or an emulator.
func NewSocket(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	if timeout <= 0 {
		timeout = DefaultSocketTimeout
	}

	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "can't dial %s", addr)
	}
	return New(&connWithTimeout{c, timeout}), nil
}

// isTimeout reports an expired read deadline.
func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
