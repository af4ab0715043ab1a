// +build !linux

package socket

import (
	"fmt"
	"io"
)

// DeviceInfo is empty on non-Linux platforms.
type DeviceInfo struct{}

// IsUp always reports false on non-Linux platforms.
func (d DeviceInfo) IsUp() bool { return false }

// Info is a dummy function for non-Linux platform.
func Info(id int) (DeviceInfo, error) {
	return DeviceInfo{}, fmt.Errorf("only available on linux")
}

// Up is a dummy function for non-Linux platform.
func Up(id int) error {
	return fmt.Errorf("only available on linux")
}

// NewSocket is a dummy function for non-Linux platform.
func NewSocket(id int) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("only available on linux")
}
