package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"os"
	"sync"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/internal/pool"
	"github.com/arloliu/go-gasera/internal/util"
	"github.com/arloliu/go-gasera/logger"
)

const (
	// maxAttempts is the first try plus exactly one retry.
	maxAttempts = 2
	// drainSlice is the read deadline of a single drain read, it keeps the drain non-blocking.
	drainSlice  = 5 * time.Millisecond
	readBufSize = 4096
)

// ConnChangeHandler is invoked with the new state when the link's connected state flips.
//
// Note: the handler will be invoked in a blocking mode inside SendCommand. Take care with
// long-running implementations.
type ConnChangeHandler func(connected bool)

// Client is a one-shot request/response client for the gas analyzer.
//
// The connected state is true after a successful dial and false after a failed
// dial or after a command exhausted its attempts. The routine close that ends
// every exchange does not change it, otherwise every command would produce two
// notifications.
type Client struct {
	cfg    *ConnectionConfig
	logger logger.Logger

	mu   sync.Mutex // serializes exchanges
	conn net.Conn

	stateMu   sync.Mutex
	connected bool
	handlers  []ConnChangeHandler

	metrics ConnectionMetrics
}

// NewClient creates a Client for the given configuration.
func NewClient(cfg *ConnectionConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.logger.With("component", "link", "addr", cfg.Addr()),
	}, nil
}

// Config returns the configuration of the client.
func (c *Client) Config() *ConnectionConfig { return c.cfg }

// Metrics returns the live metrics of the client.
func (c *Client) Metrics() *ConnectionMetrics { return &c.metrics }

// Connected reports the last observed connection state.
func (c *Client) Connected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.connected
}

// AddConnChangeHandler registers handlers invoked when the connected state flips.
func (c *Client) AddConnChangeHandler(handlers ...ConnChangeHandler) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.handlers = append(c.handlers, handlers...)
}

// SendCommand sends one framed command and returns the complete STX..ETX reply.
//
// The command is written as given. On a failed dial or receive the whole
// exchange is retried once; if both attempts fail the returned error wraps
// ErrNoResponse and the cause of the last attempt.
func (c *Client) SendCommand(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.incCommandSendCount()

	if err := c.jitter(ctx); err != nil {
		c.metrics.incNoResponseCount()
		return "", fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		if attempt > 1 {
			c.metrics.incRetryCount()
		}

		reply, err := c.exchange(ctx, command)
		if err == nil {
			c.metrics.incCommandOKCount()
			c.logger.Debug("response", "command", frame.Body(command), "reply", frame.Body(reply))

			return reply, nil
		}

		lastErr = err
		c.logger.Warn("command attempt failed",
			"command", frame.Body(command), "attempt", attempt, "error", err)
	}

	c.metrics.incNoResponseCount()
	c.setConnected(false)

	return "", fmt.Errorf("%w: %w", ErrNoResponse, lastErr)
}

// IsReachable probes the device with a plain TCP connect and no payload.
//
// It uses its own socket and never changes the client's connected state.
// A timeout <= 0 selects the configured probe timeout.
func (c *Client) IsReachable(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = c.cfg.probeTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.cfg.dialer.DialContext(dialCtx, "tcp", c.cfg.Addr())
	if err != nil {
		c.logger.Debug("reachability probe failed", "error", err)
		return false
	}
	_ = conn.Close()

	return true
}

// exchange runs one connect, drain, send, receive, disconnect cycle.
func (c *Client) exchange(ctx context.Context, command string) (string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer c.disconnect()

	c.drain(conn)

	if err := c.write(conn, command); err != nil {
		return "", err
	}

	return c.receive(ctx, conn)
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	c.disconnect()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	conn, err := c.cfg.dialer.DialContext(dialCtx, "tcp", c.cfg.Addr())
	if err != nil {
		c.metrics.incConnectErrCount()
		c.setConnected(false)

		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	c.conn = conn
	c.setConnected(true)

	return conn, nil
}

// disconnect closes the socket if open; idempotent.
func (c *Client) disconnect() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

// drain reads and discards straggler bytes of an earlier exchange.
// It stops at the first read that times out, on any error, or when the budget is spent.
func (c *Client) drain(conn net.Conn) {
	budget := c.cfg.drainBudget
	if budget <= 0 {
		return
	}

	end := time.Now().Add(budget)
	buf := make([]byte, readBufSize)
	drained := 0

	for time.Now().Before(end) {
		deadline := time.Now().Add(drainSlice)
		if deadline.After(end) {
			deadline = end
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			break
		}

		n, err := conn.Read(buf)
		drained += n
		if err != nil || n == 0 {
			break
		}
	}

	if drained > 0 {
		c.metrics.addDrainedBytes(drained)
		c.logger.Debug("drained stale bytes", "bytes", drained)
	}
}

func (c *Client) write(conn net.Conn, command string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.ioTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	data := []byte(command)
	for written := 0; written < len(data); {
		n, err := conn.Write(data[written:])
		written += n

		if err != nil {
			return fmt.Errorf("write command: %w", err)
		}
	}

	return nil
}

// receive reads until a complete frame is assembled or the overall deadline passes.
func (c *Client) receive(ctx context.Context, conn net.Conn) (string, error) {
	deadline := time.Now().Add(c.cfg.ioTimeout + c.cfg.readHeadroom)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var asm frame.Assembler
	buf := make([]byte, readBufSize)

	defer func() {
		if n := asm.Discarded(); n > 0 {
			c.metrics.addDiscardedBytes(n)
			c.logger.Debug("discarded bytes before STX", "bytes", n)
		}
	}()

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sliceDeadline := time.Now().Add(c.cfg.readSliceTimeout)
		if sliceDeadline.After(deadline) {
			sliceDeadline = deadline
		}
		if err := conn.SetReadDeadline(sliceDeadline); err != nil {
			return "", fmt.Errorf("set read deadline: %w", err)
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if f, ok := asm.Write(buf[:n]); ok {
				return asciiString(f), nil
			}
		}

		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				if buffered := asm.Buffered(); len(buffered) > 0 {
					c.logger.Debug("partial frame before close", "buffer", fmt.Sprintf("% x", buffered))
				}
				return "", ErrPeerClosed
			}

			return "", fmt.Errorf("read frame: %w", err)
		}
	}

	if buffered := asm.Buffered(); len(buffered) > 0 {
		c.logger.Debug("timeout waiting for ETX", "buffer", fmt.Sprintf("% x", buffered))
	}

	return "", ErrIOTimeout
}

func (c *Client) jitter(ctx context.Context) error {
	if c.cfg.maxJitter <= 0 {
		return nil
	}

	return pool.Sleep(ctx, rand.N(c.cfg.maxJitter))
}

// setConnected stores the new state and notifies handlers only on a change.
func (c *Client) setConnected(connected bool) {
	c.stateMu.Lock()
	if c.connected == connected {
		c.stateMu.Unlock()
		return
	}
	c.connected = connected
	handlers := util.CloneSlice(c.handlers)
	c.stateMu.Unlock()

	c.logger.Info("connection state changed", "connected", connected)

	for _, handler := range handlers {
		if handler != nil {
			c.invokeHandler(handler, connected)
		}
	}
}

func (c *Client) invokeHandler(handler ConnChangeHandler, connected bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connection change handler panicked", "panic", r)
		}
	}()

	handler(connected)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// asciiString converts a frame to a string, dropping bytes outside 7-bit ASCII.
func asciiString(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, ch := range b {
		if ch < 0x80 {
			out = append(out, ch)
		}
	}

	return string(out)
}
