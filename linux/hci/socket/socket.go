// +build linux

package socket

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize      = 4
	typHCI         = 72 // 'H'
	readTimeout    = 1000
	unixPollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn = int16(unix.POLLIN)

	solHCI    = 0
	hciFilter = 2

	pktTypeEvent = 0x04
	devFlagUp    = 1 << 0
)

var (
	hciUpDevice      = ioW(typHCI, 201, ioctlSize) // HCIDEVUP
	hciGetDeviceInfo = ioR(typHCI, 211, ioctlSize) // HCIGETDEVINFO
)

// DeviceInfo mirrors struct hci_dev_info.
type DeviceInfo struct {
	ID         uint16
	Name       [8]byte
	BDAddr     [6]byte
	Flags      uint32
	Type       uint8
	Features   [8]uint8
	PktType    uint32
	LinkPolicy uint32
	LinkMode   uint32
	ACLMtu     uint16
	ACLPkts    uint16
	SCOMtu     uint16
	SCOPkts    uint16
	Stats      [10]uint32
}

// IsUp reports whether the kernel has the device up.
func (d DeviceInfo) IsUp() bool {
	return d.Flags&devFlagUp != 0
}

// filter mirrors struct hci_filter.
type filter struct {
	typeMask  uint32
	eventMask [2]uint32
	opcode    uint16
}

// Socket implements a raw HCI channel as ReadWriteCloser. Only event packets
// are delivered; the kernel and bluetoothd keep driving the device.
type Socket struct {
	fd   int
	rmu  sync.Mutex
	wmu  sync.Mutex
	done chan int
	cmu  sync.Mutex
}

func rawSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return -1, errors.Wrap(err, "can't create socket")
	}
	return fd, nil
}

// Info returns the kernel's view of the hci device.
func Info(id int) (DeviceInfo, error) {
	fd, err := rawSocket()
	if err != nil {
		return DeviceInfo{}, err
	}
	defer unix.Close(fd)

	di := DeviceInfo{ID: uint16(id)}
	if err := ioctl(uintptr(fd), hciGetDeviceInfo, uintptr(unsafe.Pointer(&di))); err != nil {
		return DeviceInfo{}, errors.Wrapf(err, "can't get info of hci%d", id)
	}
	return di, nil
}

// Up brings the hci device up. A device that is already up is not an error.
func Up(id int) error {
	fd, err := rawSocket()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	err = ioctl(uintptr(fd), hciUpDevice, uintptr(id))
	if err == unix.EALREADY {
		return nil
	}
	return errors.Wrapf(err, "can't up hci%d", id)
}

// NewSocket returns a raw HCI channel bound to the specified device id.
func NewSocket(id int) (*Socket, error) {
	fd, err := rawSocket()
	if err != nil {
		return nil, err
	}

	s, err := open(fd, id)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

func open(fd, id int) (*Socket, error) {
	f := filter{
		typeMask:  1 << pktTypeEvent,
		eventMask: [2]uint32{0xffffffff, 0xffffffff},
	}
	if _, _, ep := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), solHCI, hciFilter,
		uintptr(unsafe.Pointer(&f)), unsafe.Sizeof(f), 0); ep != 0 {
		return nil, errors.Wrap(ep, "can't set hci filter")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, &sa); err != nil {
		return nil, errors.Wrapf(err, "can't bind socket to hci%d", id)
	}

	return &Socket{fd: fd, done: make(chan int)}, nil
}

func (s *Socket) Read(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	var err error
	n := 0
	s.rmu.Lock()
	defer s.rmu.Unlock()
	// dont need to add unixPollErrors, they are always returned
	pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unixPollDataIn}}
	unix.Poll(pfds, readTimeout)
	evts := pfds[0].Revents

	switch {
	case evts&unixPollErrors != 0:
		return 0, io.EOF

	case evts&unixPollDataIn != 0:
		n, err = unix.Read(s.fd, p)

	default:
		// no data, read timeout
		return 0, nil
	}

	// check if we are still open since the read takes a while
	if !s.isOpen() {
		return 0, io.EOF
	}
	return n, errors.Wrap(err, "can't read hci socket")
}

func (s *Socket) Write(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := unix.Write(s.fd, p)
	return n, errors.Wrap(err, "can't write hci socket")
}

func (s *Socket) Close() error {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return nil

	default:
		close(s.done)
		s.rmu.Lock()
		err := unix.Close(s.fd)
		s.rmu.Unlock()

		return errors.Wrap(err, "can't close hci socket")
	}
}

func (s *Socket) isOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
