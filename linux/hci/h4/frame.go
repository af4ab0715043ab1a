package h4

import (
	"fmt"
	"time"
)

const (
	pktTypeCommand = 0x01
	pktTypeEvent   = 0x04

	headerLength  = 3
	frameTimeout  = 500 * time.Millisecond
	maxFrameBytes = headerLength + 255
)

// frame reassembles H4 event packets from a byte stream. Bytes ahead of an
// event indicator are dropped, as is a partial frame older than
// frameTimeout.
type frame struct {
	b       []byte
	timeout time.Time
	out     chan<- []byte
	done    <-chan int
}

// newFrame delivers frames to c until done is closed.
func newFrame(c chan<- []byte, done <-chan int) *frame {
	f := &frame{out: c, done: done}
	f.reset()
	return f
}

func (f *frame) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}

	if len(f.b) != 0 && time.Now().After(f.timeout) {
		f.reset()
	}

	if len(f.b) == 0 {
		var err error
		if b, err = f.waitStart(b); err != nil {
			return
		}
	}
	f.b = append(f.b, b...)

	for {
		rf, err := f.frame()
		if err != nil {
			return
		}

		out := make([]byte, len(rf))
		copy(out, rf)
		select {
		case f.out <- out:
		case <-f.done:
			return
		}

		rem := f.b[len(rf):]
		f.reset()
		if len(rem) == 0 {
			return
		}
		if rem, err = f.waitStart(rem); err != nil {
			return
		}
		f.b = append(f.b, rem...)
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, maxFrameBytes)
	f.timeout = time.Time{}
}

func (f *frame) waitStart(b []byte) ([]byte, error) {
	for i, v := range b {
		if v == pktTypeEvent {
			f.timeout = time.Now().Add(frameTimeout)
			return b[i:], nil
		}
	}
	return nil, fmt.Errorf("couldnt find start byte")
}

func (f *frame) frame() ([]byte, error) {
	if len(f.b) < headerLength {
		return nil, fmt.Errorf("not enough bytes")
	}

	tl := int(f.b[2]) + headerLength
	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}
