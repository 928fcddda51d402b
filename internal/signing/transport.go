package signing

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Transport carries one APDU exchange to the signing device and returns
// its raw response. Implementations must be safe for use from a single
// signer; Close may be called from any goroutine and unblocks an in-flight
// exchange.
type Transport interface {
	Exchange(ctx context.Context, request []byte) ([]byte, error)
	Close() error
}

const (
	maxFrameSize = 1 << 16
	dialTimeout  = 5 * time.Second
)

// TCPTransport frames APDUs over a local bridge socket with a 4-byte
// big-endian length prefix.
type TCPTransport struct {
	mu        sync.Mutex
	conn      net.Conn
	closed    atomic.Bool
	closeOnce sync.Once
}

// DialBridge connects to the device bridge. A connection failure means no
// device is reachable.
func DialBridge(addr string) (*TCPTransport, error) {
	return DialBridgeContext(context.Background(), addr)
}

// DialBridgeContext is DialBridge honoring the caller's context.
func DialBridgeContext(ctx context.Context, addr string) (*TCPTransport, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, addr, err)
	}
	return NewTCPTransport(conn), nil
}

// NewTCPTransport wraps an established bridge connection.
func NewTCPTransport(conn net.Conn) *TCPTransport {
	return &TCPTransport{conn: conn}
}

func (t *TCPTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, t.ioError("set deadline", err)
	}
	if err := writeFrame(t.conn, request); err != nil {
		return nil, t.ioError("write", err)
	}
	resp, err := readFrame(t.conn)
	if err != nil {
		return nil, t.ioError("read", err)
	}
	return resp, nil
}

func (t *TCPTransport) ioError(op string, err error) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	return fmt.Errorf("%w: %s: %v", ErrDeviceComm, op, err)
}

// Close shuts the connection down exactly once. An exchange blocked on the
// socket resolves with ErrTransportClosed.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		err = t.conn.Close()
	})
	return err
}

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame too large: %d", len(payload))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
