package hci

import (
	"fmt"
	"io"
	"time"

	"github.com/rigado/uribeacon/linux/hci/h4"
	"github.com/rigado/uribeacon/linux/hci/socket"
)

type transportHci struct {
	id int
}

type transportH4Uart struct {
	path string
	baud uint
}

type transportH4Socket struct {
	addr    string
	timeout time.Duration
}

type transportConn struct {
	rwc io.ReadWriteCloser
}

type transport struct {
	hci      *transportHci
	h4uart   *transportH4Uart
	h4socket *transportH4Socket
	conn     *transportConn
}

func (t transport) String() string {
	switch {
	case t.hci != nil:
		return fmt.Sprintf("hci%d", t.hci.id)
	case t.h4uart != nil:
		return t.h4uart.path
	case t.h4socket != nil:
		return t.h4socket.addr
	case t.conn != nil:
		return "conn"
	default:
		return "none"
	}
}

func getTransport(t transport) (io.ReadWriteCloser, error) {
	switch {
	case t.hci != nil:
		s, err := socket.NewSocket(t.hci.id)
		if err != nil {
			return nil, err
		}
		return s, nil

	case t.h4uart != nil:
		so := h4.DefaultSerialOptions()
		so.PortName = t.h4uart.path
		if t.h4uart.baud != 0 {
			so.BaudRate = t.h4uart.baud
		}
		return h4.NewSerial(so)

	case t.h4socket != nil:
		return h4.NewSocket(t.h4socket.addr, t.h4socket.timeout)

	case t.conn != nil:
		return t.conn.rwc, nil

	default:
		return nil, fmt.Errorf("no valid transport found")
	}
}
