// +build linux

package mgmt

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	readTimeout = 1000
	cmdTimeout  = 3 * time.Second
)

// Socket is a BlueZ management control channel.
type Socket struct {
	fd  int
	buf []byte
	mu  sync.Mutex
}

// NewSocket opens the management control channel.
func NewSocket() (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	sa := unix.SockaddrHCI{Dev: IndexNone, Channel: unix.HCI_CHANNEL_CONTROL}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind socket to mgmt channel")
	}

	return &Socket{fd: fd, buf: make([]byte, 4096)}, nil
}

// ReadIndexList returns the indexes of the controllers known to the kernel.
func (s *Socket) ReadIndexList() ([]uint16, error) {
	b, err := s.Do(OpReadIndexList, IndexNone, nil)
	if err != nil {
		return nil, errors.Wrap(err, "read index list")
	}
	return parseIndexList(b)
}

// ReadInfo returns the information of the controller at index.
func (s *Socket) ReadInfo(index uint16) (Info, error) {
	b, err := s.Do(OpReadInfo, index, nil)
	if err != nil {
		return Info{}, errors.Wrapf(err, "read info hci%d", index)
	}
	return parseInfo(b)
}

// SetPowered powers the controller at index on or off.
func (s *Socket) SetPowered(index uint16, on bool) error {
	v := byte(0)
	if on {
		v = 1
	}
	_, err := s.Do(OpSetPowered, index, []byte{v})
	return errors.Wrapf(err, "set powered hci%d", index)
}

// Do sends a command and waits for its completion, discarding unrelated
// events.
func (s *Socket) Do(op, index uint16, params []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cmd(op, index, params)
	n, err := unix.Write(s.fd, c)
	if err != nil {
		return nil, err
	}
	if n != len(c) {
		return nil, fmt.Errorf("wrote %d of %d bytes", n, len(c))
	}

	to := time.Now().Add(cmdTimeout)
	for time.Now().Before(to) {
		r, ok, err := s.readRsp()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		b, done, err := r.result(op, index)
		if done || err != nil {
			return b, err
		}
	}
	return nil, fmt.Errorf("no response to mgmt command 0x%04X", op)
}

func (s *Socket) readRsp() (Response, bool, error) {
	pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	if _, err := unix.Poll(pfds, readTimeout); err != nil && err != unix.EINTR {
		return Response{}, false, err
	}
	if pfds[0].Revents&unix.POLLIN == 0 {
		return Response{}, false, nil
	}

	n, err := unix.Read(s.fd, s.buf)
	if err != nil {
		return Response{}, false, err
	}
	// malformed packets are skipped
	r, err := parseResponse(s.buf[:n])
	return r, err == nil, nil
}

// Close closes the channel.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
