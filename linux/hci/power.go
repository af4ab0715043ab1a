package hci

import (
	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/hci/mgmt"
	"github.com/rigado/uribeacon/linux/hci/socket"
)

// power reports and changes the radio state of a controller.
type power interface {
	present() error
	powered() (bool, error)
	powerOn() error
}

// mgmtConn is the part of the management channel kernelPower uses.
type mgmtConn interface {
	ReadIndexList() ([]uint16, error)
	ReadInfo(index uint16) (mgmt.Info, error)
	SetPowered(index uint16, on bool) error
	Close() error
}

// kernelPower drives a kernel owned controller through the management
// channel, falling back to the legacy device ioctls when the channel is
// unavailable.
type kernelPower struct {
	id     int
	logger uribeacon.Logger

	openMgmt func() (mgmtConn, error)
	isUp     func(id int) (bool, error)
	up       func(id int) error
}

func newKernelPower(id int, l uribeacon.Logger) kernelPower {
	return kernelPower{
		id:     id,
		logger: l,
		openMgmt: func() (mgmtConn, error) {
			s, err := mgmt.NewSocket()
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		isUp: func(id int) (bool, error) {
			di, err := socket.Info(id)
			if err != nil {
				return false, err
			}
			return di.IsUp(), nil
		},
		up: socket.Up,
	}
}

func (k kernelPower) withMgmt(f func(s mgmtConn) error) (bool, error) {
	s, err := k.openMgmt()
	if err != nil {
		k.logger.Debugf("mgmt channel unavailable, using ioctls: %v", err)
		return false, nil
	}
	defer s.Close()
	return true, f(s)
}

func (k kernelPower) present() error {
	var found bool
	ok, err := k.withMgmt(func(s mgmtConn) error {
		idx, err := s.ReadIndexList()
		if err != nil {
			return err
		}
		for _, i := range idx {
			if int(i) == k.id {
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		_, err := k.isUp(k.id)
		found = err == nil
	}

	if !found {
		return errors.Wrapf(uribeacon.ErrNoAdapter, "hci%d", k.id)
	}
	return nil
}

func (k kernelPower) powered() (bool, error) {
	var on bool
	ok, err := k.withMgmt(func(s mgmtConn) error {
		info, err := s.ReadInfo(uint16(k.id))
		on = info.Powered()
		return err
	})
	if ok || err != nil {
		return on, err
	}

	return k.isUp(k.id)
}

func (k kernelPower) powerOn() error {
	ok, err := k.withMgmt(func(s mgmtConn) error {
		return s.SetPowered(uint16(k.id), true)
	})
	if ok || err != nil {
		return err
	}
	return k.up(k.id)
}

// fixedPower is a controller the host owns outright, like one on a UART.
// It has no power state: it is present once it answers, and always on.
type fixedPower struct {
	open func() error
}

func (f fixedPower) present() error {
	if err := f.open(); err != nil {
		return errors.Wrapf(uribeacon.ErrNoAdapter, "%v", err)
	}
	return nil
}

func (f fixedPower) powered() (bool, error) { return true, nil }

func (f fixedPower) powerOn() error { return nil }
