package link

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/logger"
)

// scriptDialer hands out net.Pipe connections whose remote ends are driven by serve.
// The first failDials dials fail with a refused error.
type scriptDialer struct {
	mu        sync.Mutex
	dials     int
	failDials int
	serve     func(dial int, remote net.Conn)
	wg        sync.WaitGroup
}

func (d *scriptDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	d.dials++
	dial := d.dials
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dial <= d.failDials {
		return nil, errors.New("connection refused")
	}

	local, remote := net.Pipe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer remote.Close()
		d.serve(dial, remote)
	}()

	return local, nil
}

func (d *scriptDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

// newTestClient builds a client with short timeouts and no jitter or draining.
func newTestClient(t *testing.T, dialer Dialer, opts ...ConnOption) *Client {
	t.Helper()

	defaults := []ConnOption{
		WithDialer(dialer),
		WithIOTimeout(200 * time.Millisecond),
		WithReadHeadroom(0),
		WithReadSliceTimeout(20 * time.Millisecond),
		WithMaxJitter(0),
		WithDrainBudget(0),
		WithLogger(logger.NewNop()),
	}

	cfg, err := NewConnectionConfig("127.0.0.1", 8888, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}

	return client
}

// readCommand reads one framed command from the remote end of a pipe.
func readCommand(conn net.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	r := bufio.NewReader(conn)
	s, err := r.ReadString(frame.ETX)

	return s, err
}

// replyWith returns a serve func that answers every command with reply.
func replyWith(reply string) func(int, net.Conn) {
	return func(_ int, remote net.Conn) {
		if _, err := readCommand(remote); err != nil {
			return
		}
		_, _ = remote.Write([]byte(reply))
	}
}

type connEvents struct {
	mu     sync.Mutex
	events []bool
	calls  atomic.Int32
}

func (e *connEvents) handler(connected bool) {
	e.calls.Add(1)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, connected)
}

func (e *connEvents) list() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]bool, len(e.events))
	copy(out, e.events)

	return out
}
