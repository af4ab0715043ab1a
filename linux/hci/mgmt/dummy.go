// +build !linux

package mgmt

import "fmt"

// Socket is unavailable on non-Linux platforms.
type Socket struct{}

// NewSocket is a dummy function for non-Linux platform.
func NewSocket() (*Socket, error) {
	return nil, fmt.Errorf("only available on linux")
}

func (s *Socket) ReadIndexList() ([]uint16, error)   { return nil, fmt.Errorf("only available on linux") }
func (s *Socket) ReadInfo(index uint16) (Info, error) { return Info{}, fmt.Errorf("only available on linux") }
func (s *Socket) SetPowered(index uint16, on bool) error {
	return fmt.Errorf("only available on linux")
}
func (s *Socket) Close() error { return nil }
