package hci

import (
	"time"

	"github.com/rigado/uribeacon"
)

// SetTransportHCISocket sets HCI device for hci socket
func (a *Adapter) SetTransportHCISocket(id int) error {
	a.transport = transport{
		hci: &transportHci{id},
	}
	return nil
}

// SetTransportH4Uart sets h4 uart path and baud rate. A zero baud rate
// keeps the default.
func (a *Adapter) SetTransportH4Uart(path string, baud uint) error {
	a.transport = transport{
		h4uart: &transportH4Uart{path, baud},
	}
	return nil
}

// SetTransportH4Socket sets h4 socket server
func (a *Adapter) SetTransportH4Socket(addr string, timeout time.Duration) error {
	a.transport = transport{
		h4socket: &transportH4Socket{addr, timeout},
	}
	return nil
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
