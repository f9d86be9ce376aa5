package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-gasera/logger"
)

// Default link parameters.
const (
	DefaultConnectTimeout   = 2 * time.Second
	DefaultIOTimeout        = 2 * time.Second
	DefaultReadHeadroom     = 500 * time.Millisecond
	DefaultReadSliceTimeout = 250 * time.Millisecond
	DefaultDrainBudget      = 50 * time.Millisecond
	DefaultMaxJitter        = 120 * time.Millisecond
	DefaultProbeTimeout     = 1 * time.Second
)

// Range limits.
const (
	MinConnectTimeout = 100 * time.Millisecond
	MaxConnectTimeout = 30 * time.Second

	MinIOTimeout = 100 * time.Millisecond
	MaxIOTimeout = 60 * time.Second

	MaxDrainBudget = time.Second
	MaxJitter      = time.Second
)

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ConnectionConfig holds the device address and every timing parameter of the link.
type ConnectionConfig struct {
	host string
	port int

	connectTimeout time.Duration
	// ioTimeout bounds a whole receive, readHeadroom is added on top of it.
	ioTimeout    time.Duration
	readHeadroom time.Duration
	// readSliceTimeout is the deadline of a single Read so the overall deadline is honoured.
	readSliceTimeout time.Duration
	drainBudget      time.Duration
	maxJitter        time.Duration
	probeTimeout     time.Duration

	dialer Dialer
	logger logger.Logger
}

// NewConnectionConfig creates a link configuration for the device at host:port.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		connectTimeout:   DefaultConnectTimeout,
		ioTimeout:        DefaultIOTimeout,
		readHeadroom:     DefaultReadHeadroom,
		readSliceTimeout: DefaultReadSliceTimeout,
		drainBudget:      DefaultDrainBudget,
		maxJitter:        DefaultMaxJitter,
		probeTimeout:     DefaultProbeTimeout,
		dialer:           &net.Dialer{KeepAlive: 30 * time.Second},
		logger:           logger.GetLogger(),
	}

	if err := withRemoteHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) Host() string { return cfg.host }

func (cfg *ConnectionConfig) Port() int { return cfg.port }

// Addr returns host:port.
func (cfg *ConnectionConfig) Addr() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

func (cfg *ConnectionConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

func (cfg *ConnectionConfig) IOTimeout() time.Duration { return cfg.ioTimeout }

func (cfg *ConnectionConfig) DrainBudget() time.Duration { return cfg.drainBudget }

func (cfg *ConnectionConfig) MaxJitter() time.Duration { return cfg.maxJitter }

func (cfg *ConnectionConfig) ProbeTimeout() time.Duration { return cfg.probeTimeout }

func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error {
	if cfg == nil {
		return ErrConnConfigNil
	}

	return c.applyFunc(cfg)
}

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// withRemoteHost sets the device host. Name resolution is left to dial time,
// the analyzer is often powered up after the controller.
func withRemoteHost(host string) ConnOption {
	return newConnOptFunc("withRemoteHost", func(cfg *ConnectionConfig) error {
		host = strings.TrimSpace(host)
		if host == "" {
			return errors.New("invalid host")
		}
		cfg.host = host

		return nil
	})
}

func withPort(port int) ConnOption {
	return newConnOptFunc("withPort", func(cfg *ConnectionConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout. It should be between 100ms and 30s.
//
// Defaults to 2 seconds.
func WithConnectTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", func(cfg *ConnectionConfig) error {
		if d < MinConnectTimeout || d > MaxConnectTimeout {
			return fmt.Errorf("connect timeout out of range [%s, %s]", MinConnectTimeout, MaxConnectTimeout)
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithIOTimeout sets the receive timeout of one exchange. It should be between 100ms and 60s.
//
// Defaults to 2 seconds. A fixed headroom of 500ms is added to the receive deadline.
func WithIOTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithIOTimeout", func(cfg *ConnectionConfig) error {
		if d < MinIOTimeout || d > MaxIOTimeout {
			return fmt.Errorf("io timeout out of range [%s, %s]", MinIOTimeout, MaxIOTimeout)
		}
		cfg.ioTimeout = d
		if cfg.readSliceTimeout > d {
			cfg.readSliceTimeout = d
		}

		return nil
	})
}

// WithReadHeadroom sets the extra time added to the I/O timeout while waiting for a frame.
func WithReadHeadroom(d time.Duration) ConnOption {
	return newConnOptFunc("WithReadHeadroom", func(cfg *ConnectionConfig) error {
		if d < 0 {
			return errors.New("read headroom must not be negative")
		}
		cfg.readHeadroom = d

		return nil
	})
}

// WithReadSliceTimeout sets the deadline of a single socket read while waiting for a frame.
// It is capped by the I/O timeout.
//
// Defaults to 250ms.
func WithReadSliceTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithReadSliceTimeout", func(cfg *ConnectionConfig) error {
		if d <= 0 || d > cfg.ioTimeout {
			return fmt.Errorf("read slice timeout out of range (0s, %s]", cfg.ioTimeout)
		}
		cfg.readSliceTimeout = d

		return nil
	})
}

// WithDrainBudget sets how long the link may spend discarding stale bytes before
// sending a command. Zero disables draining. It should be at most 1s.
//
// Defaults to 50ms.
func WithDrainBudget(d time.Duration) ConnOption {
	return newConnOptFunc("WithDrainBudget", func(cfg *ConnectionConfig) error {
		if d < 0 || d > MaxDrainBudget {
			return fmt.Errorf("drain budget out of range [0s, %s]", MaxDrainBudget)
		}
		cfg.drainBudget = d

		return nil
	})
}

// WithMaxJitter sets the upper bound of the random delay inserted before each command.
// Zero disables the jitter. It should be at most 1s.
//
// Defaults to 120ms.
func WithMaxJitter(d time.Duration) ConnOption {
	return newConnOptFunc("WithMaxJitter", func(cfg *ConnectionConfig) error {
		if d < 0 || d > MaxJitter {
			return fmt.Errorf("jitter out of range [0s, %s]", MaxJitter)
		}
		cfg.maxJitter = d

		return nil
	})
}

// WithProbeTimeout sets the default timeout of IsReachable.
//
// Defaults to 1 second.
func WithProbeTimeout(d time.Duration) ConnOption {
	return newConnOptFunc("WithProbeTimeout", func(cfg *ConnectionConfig) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		cfg.probeTimeout = d

		return nil
	})
}

// WithDialer replaces the dialer used for exchanges and reachability probes.
func WithDialer(d Dialer) ConnOption {
	return newConnOptFunc("WithDialer", func(cfg *ConnectionConfig) error {
		if d == nil {
			return errors.New("dialer is nil")
		}
		cfg.dialer = d

		return nil
	})
}

// WithLogger sets the logger of the link.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
