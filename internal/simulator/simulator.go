package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/internal/pool"
	"github.com/arloliu/go-gasera/internal/queue"
	"github.com/arloliu/go-gasera/internal/task"
	"github.com/arloliu/go-gasera/internal/util"
	"github.com/arloliu/go-gasera/logger"
)

const (
	readBufSize = 1024
	// idleTimeout closes a connection that sent nothing for this long.
	idleTimeout = 5 * time.Second
	garbage     = "\xff\x00noise"
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithAddr sets the listen address, "127.0.0.1:0" by default.
func WithAddr(addr string) Option {
	return func(s *Simulator) { s.addr = addr }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMeasurementTime sets how long a started measurement runs before the
// device returns to idle on its own. Zero keeps it measuring until stopped.
func WithMeasurementTime(d time.Duration) Option {
	return func(s *Simulator) { s.measureTime = d }
}

// WithStatus sets the initial device status code.
func WithStatus(code int) Option {
	return func(s *Simulator) { s.status = code }
}

// WithActiveErrors sets the codes reported by AERR.
func WithActiveErrors(codes ...string) Option {
	return func(s *Simulator) { s.activeErrors = util.CloneSlice(codes) }
}

// WithParameter sets the value APAR reports for name.
func WithParameter(name, value string) Option {
	return func(s *Simulator) { s.params[name] = value }
}

// Simulator is a TCP gas analyzer.
type Simulator struct {
	addr        string
	logger      logger.Logger
	measureTime time.Duration

	mu           sync.Mutex
	listener     net.Listener
	mgr          *task.Manager
	status       int
	taskID       string
	startedAt    time.Time
	iteration    int
	onlineMode   bool
	activeErrors []string
	params       map[string]string
	received     []string
	conns        map[net.Conn]struct{}

	faultMu sync.Mutex
	faults  queue.Queue[Fault]
}

// New creates a stopped Simulator in the idle state.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		addr:         "127.0.0.1:0",
		logger:       logger.GetLogger(),
		status:       gasera.StatusIdle,
		activeErrors: []string{},
		params:       map[string]string{"PressureSetpoint": "1000"},
		conns:        make(map[net.Conn]struct{}),
		faults:       queue.NewLockFree[Fault](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "simulator")

	return s
}

// Start listens on the configured address and serves until ctx is done or Close is called.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.listener = ln
	s.mgr = task.NewManager(ctx, s.logger)
	// keep the bound port so a restart reuses it
	s.addr = ln.Addr().String()

	mgr := s.mgr
	err = mgr.Go("simulator-listener", func(ctx context.Context) {
		<-ctx.Done()
		_ = ln.Close()
	})
	if err == nil {
		err = mgr.Go("simulator-accept", func(ctx context.Context) { s.acceptLoop(ctx, ln, mgr) })
	}
	if err != nil {
		_ = ln.Close()
		s.listener, s.mgr = nil, nil

		return err
	}

	s.logger.Info("simulator listening", "addr", s.addr)

	return nil
}

// Close stops listening and drops every open connection. The device model
// is kept, a later Start resumes on the same address.
func (s *Simulator) Close() {
	s.mu.Lock()
	ln, mgr := s.listener, s.mgr
	s.listener, s.mgr = nil, nil
	s.mu.Unlock()

	if ln == nil {
		return
	}

	_ = ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	mgr.Stop()
	mgr.Wait()
	s.logger.Info("simulator closed", "addr", s.addr)
}

// Addr returns the listen address.
func (s *Simulator) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// HostPort returns the host and port of the listen address.
func (s *Simulator) HostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return "", 0
	}
	port, _ := strconv.Atoi(portStr)

	return host, port
}

// SetStatus forces the device status code.
func (s *Simulator) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = code
	if code != gasera.StatusMeasuring {
		s.taskID = ""
	}
}

// Status returns the current device status code.
func (s *Simulator) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceLocked(time.Now())

	return s.status
}

// Iteration returns the number of completed measurements.
func (s *Simulator) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.iteration
}

// OnlineMode reports the last mode set with SONL.
func (s *Simulator) OnlineMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.onlineMode
}

// InjectFault queues f for the next matching exchange.
func (s *Simulator) InjectFault(f Fault) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	s.faults.Enqueue(f)
}

// PendingFaults returns the number of faults not yet applied.
func (s *Simulator) PendingFaults() int {
	return s.faults.Len()
}

// Received returns the bodies of all commands received so far.
func (s *Simulator) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return util.CloneSlice(s.received)
}

// ReceivedOps returns the operation codes of all commands received so far.
func (s *Simulator) ReceivedOps() []string {
	bodies := s.Received()
	ops := make([]string, 0, len(bodies))
	for _, b := range bodies {
		if fields := strings.Fields(b); len(fields) > 0 {
			ops = append(ops, fields[0])
		}
	}

	return ops
}

// ResetReceived clears the command log.
func (s *Simulator) ResetReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = nil
}

func (s *Simulator) acceptLoop(ctx context.Context, ln net.Listener, mgr *task.Manager) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("accept failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		if s.listener != ln {
			s.mu.Unlock()
			_ = conn.Close()

			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		err = mgr.Go("simulator-conn", func(ctx context.Context) {
			defer s.untrack(conn)
			s.serve(ctx, conn)
		})
		if err != nil {
			s.untrack(conn)
			return
		}
	}
}

func (s *Simulator) untrack(conn net.Conn) {
	_ = conn.Close()

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// serve answers framed commands on conn until the peer closes it.
func (s *Simulator) serve(ctx context.Context, conn net.Conn) {
	var asm frame.Assembler
	buf := make([]byte, readBufSize)

	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))

		n, err := conn.Read(buf)
		if n > 0 {
			if f, ok := asm.Write(buf[:n]); ok {
				if !s.handle(ctx, conn, string(f)) {
					return
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("connection read ended", "error", err)
			}
			return
		}
	}
}

// handle answers one command frame. It returns false when the connection must close.
func (s *Simulator) handle(ctx context.Context, conn net.Conn, raw string) bool {
	op, tokens, err := frame.Decode(raw)
	if err != nil {
		s.logger.Warn("undecodable command", "frame", frame.Body(raw), "error", err)
		return true
	}

	s.mu.Lock()
	s.received = append(s.received, frame.Body(raw))
	s.mu.Unlock()

	// tokens[0] is the session token
	args := tokens[1:]
	fault := s.nextFault(op)
	s.logger.Debug("command", "op", op, "args", args, "fault", fault.Kind)

	switch fault.Kind {
	case FaultDrop:
		_, _ = io.Copy(io.Discard, conn)
		return false
	case FaultClose:
		return false
	case FaultDelay:
		if err := pool.Sleep(ctx, fault.Delay); err != nil {
			return false
		}
	}

	var body string
	if fault.Kind == FaultErrorFlag {
		body = op + " 1"
	} else {
		body = s.reply(op, args)
	}

	return s.write(conn, fault.Kind, frame.Encode(body))
}

func (s *Simulator) write(conn net.Conn, kind FaultKind, reply string) bool {
	if kind == FaultGarbage {
		reply = garbage + reply
	}

	if kind == FaultSplit {
		for i := 0; i < len(reply); i++ {
			if _, err := conn.Write([]byte{reply[i]}); err != nil {
				return false
			}
		}

		return true
	}

	_, err := conn.Write([]byte(reply))

	return err == nil
}

func (s *Simulator) nextFault(op string) Fault {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	f, ok := s.faults.Peek()
	if !ok || !f.matches(op) {
		return Fault{}
	}
	_, _ = s.faults.Dequeue()

	return f
}

// advanceLocked finishes a measurement whose run time elapsed.
func (s *Simulator) advanceLocked(now time.Time) {
	if s.status != gasera.StatusMeasuring || s.measureTime <= 0 {
		return
	}
	if now.Sub(s.startedAt) >= s.measureTime {
		s.finishLocked()
	}
}

func (s *Simulator) finishLocked() {
	s.status = gasera.StatusIdle
	s.taskID = ""
	s.iteration++
}

// reply builds the reply body of op.
func (s *Simulator) reply(op string, args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.advanceLocked(now)

	ok := func(fields ...string) string {
		return strings.Join(append([]string{op, "0"}, fields...), " ")
	}
	fail := op + " 1"

	switch op {
	case gasera.OpStatus:
		return ok(strconv.Itoa(s.status))
	case gasera.OpActiveErrors:
		return ok(s.activeErrors...)
	case gasera.OpTaskList:
		fields := []string{}
		for _, t := range gasera.KnownTasks() {
			fields = append(fields, t.ID, t.Name)
		}
		return ok(fields...)
	case gasera.OpStartByID, gasera.OpStartByName:
		id, known := s.lookupTask(op, args)
		if !known || s.status != gasera.StatusIdle {
			return fail
		}
		s.status = gasera.StatusMeasuring
		s.taskID = id
		s.startedAt = now
		return ok()
	case gasera.OpStop:
		if s.status == gasera.StatusMeasuring {
			s.finishLocked()
		}
		return ok()
	case gasera.OpLastResults:
		if s.iteration == 0 {
			return ok()
		}
		ts := strconv.FormatInt(now.Unix(), 10)
		return ok(ts, "74-82-8", "1.92", ts, "124-38-9", "415.3", ts, "7732-18-5", "11250")
	case gasera.OpMeasurementPhase:
		phase := gasera.PhaseIdle
		if s.status == gasera.StatusMeasuring {
			phase = gasera.PhaseGasExchange
			if s.measureTime > 0 && now.Sub(s.startedAt) > s.measureTime/2 {
				phase = gasera.PhaseAnalysis
			}
		}
		return ok(strconv.Itoa(phase))
	case gasera.OpDeviceName:
		return ok("GASERA", "ONE", "SIM")
	case gasera.OpDeviceInfo:
		return ok("Gasera", "One", "SIM-0001", "1.0.0")
	case gasera.OpIteration:
		return ok(strconv.Itoa(s.iteration))
	case gasera.OpNetworkSettings:
		return ok("0", "192.168.0.100", "255.255.255.0", "192.168.0.1")
	case gasera.OpDeviceTime:
		return ok(now.Format("2006-01-02"), now.Format("15:04:05"))
	case gasera.OpParameter:
		if len(args) == 0 {
			return fail
		}
		v, found := s.params[args[0]]
		if !found {
			return fail
		}
		return ok(v)
	case gasera.OpSetOnlineMode:
		s.onlineMode = len(args) > 0 && args[0] == "1"
		return ok()
	case gasera.OpTaskParameters:
		if len(args) == 0 || !gasera.KnownTaskID(args[0]) {
			return fail
		}
		return ok(args[0], "600", "3", "1")
	case gasera.OpSystemParameters:
		return ok("PressureSetpoint", s.params["PressureSetpoint"], "800", "1200", "mbar",
			"CellTemperature", "50", "40", "60", "C")
	case gasera.OpSamplerParameters:
		return ok("1", "1", "1", "30", "2", "0", "30")
	case gasera.OpStartSelfTest:
		if s.status != gasera.StatusIdle {
			return fail
		}
		return ok()
	case gasera.OpSelfTestResult:
		return ok("2")
	case gasera.OpSetNetworkSettings, gasera.OpSetLaserTuning, gasera.OpReboot,
		gasera.OpSetComponentOrder, gasera.OpSetConcentrationFormat:
		return ok()
	default:
		return fail
	}
}

func (s *Simulator) lookupTask(op string, args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}

	if op == gasera.OpStartByName {
		return gasera.TaskIDByName(strings.Join(args, " "))
	}

	return args[0], gasera.KnownTaskID(args[0])
}
