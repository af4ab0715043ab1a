package h4

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAssemble(t *testing.T) {
	out := make(chan []byte, 8)
	f := newFrame(out, make(chan int))

	cc := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	cs := []byte{0x04, 0x0F, 0x04, 0x00, 0x01, 0x0A, 0x20}

	// junk ahead of the first indicator, split across writes, two frames
	// glued together
	f.Assemble([]byte{0xAA, 0xBB})
	f.Assemble(append([]byte{0x00}, cc[:2]...))
	f.Assemble(append(append([]byte{}, cc[2:]...), cs...))

	require.Len(t, out, 2)
	assert.Equal(t, cc, <-out)
	assert.Equal(t, cs, <-out)
}

func TestFrameTimeout(t *testing.T) {
	out := make(chan []byte, 8)
	f := newFrame(out, make(chan int))

	f.Assemble([]byte{0x04, 0x0E, 0x04, 0x01})
	f.timeout = time.Now().Add(-time.Millisecond)

	cc := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	f.Assemble(cc)
	require.Len(t, out, 1)
	assert.Equal(t, cc, <-out)
}

type pipe struct {
	mu     sync.Mutex
	rx     chan []byte
	tx     bytes.Buffer
	closed chan struct{}
}

func newPipe() *pipe {
	return &pipe{rx: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *pipe) Read(b []byte) (int, error) {
	select {
	case d := <-p.rx:
		return copy(b, d), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(10 * time.Millisecond):
		return 0, io.EOF
	}
}

func (p *pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.Write(b)
}

func (p *pipe) Close() error {
	close(p.closed)
	return nil
}

func TestH4ReadWrite(t *testing.T) {
	p := newPipe()
	h := New(p)

	n, err := h.Write([]byte{0x01, 0x03, 0x0C, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cc := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	p.rx <- cc[:3]
	p.rx <- cc[3:]

	b := make([]byte, 64)
	n, err = h.Read(b)
	require.NoError(t, err)
	assert.Equal(t, cc, b[:n])

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	_, err = h.Read(b)
	assert.Equal(t, io.EOF, err)
	_, err = h.Write([]byte{0x00})
	assert.Equal(t, io.EOF, err)
}

func TestFrameDoesNotBlockAfterClose(t *testing.T) {
	out := make(chan []byte)
	done := make(chan int)
	f := newFrame(out, done)
	close(done)

	returned := make(chan struct{})
	go func() {
		f.Assemble([]byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Assemble blocked on a closed transport")
	}
}

func TestSocket(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cc := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	got := make(chan []byte, 1)
	hangup := make(chan struct{})
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		b := make([]byte, 4)
		if _, err := io.ReadFull(c, b); err != nil {
			return
		}
		got <- b
		c.Write(cc[:2])
		c.Write(cc[2:])
		<-hangup
	}()

	h, err := NewSocket(l.Addr().String(), 100*time.Millisecond)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Write([]byte{0x01, 0x03, 0x0C, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x03, 0x0C, 0x00}, <-got)

	// reads time out empty while the line idles
	b := make([]byte, 64)
	n := 0
	for i := 0; i < 3 && n == 0 && err == nil; i++ {
		n, err = h.Read(b)
	}
	require.NoError(t, err)
	assert.Equal(t, cc, b[:n])

	close(hangup)
	for i := 0; i < 3 && err == nil; i++ {
		_, err = h.Read(b)
	}
	assert.Equal(t, io.EOF, err)
}

func TestSocketDialFails(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = NewSocket(addr, 100*time.Millisecond)
	assert.Error(t, err)
}
