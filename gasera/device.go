package gasera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/logger"
)

// Link is the transport a Device sends its frames over. *link.Client implements it.
type Link interface {
	SendCommand(ctx context.Context, command string) (string, error)
	IsReachable(ctx context.Context, timeout time.Duration) bool
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithDeviceLogger sets the logger of the device.
func WithDeviceLogger(l logger.Logger) DeviceOption {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithProbeTimeout sets the reachability probe timeout used by CheckConnection.
// Zero lets the link pick its configured default.
func WithProbeTimeout(timeout time.Duration) DeviceOption {
	return func(d *Device) { d.probeTimeout = timeout }
}

// WithStatusHandler registers a function invoked with every status the device reports.
func WithStatusHandler(fn func(DeviceStatus)) DeviceOption {
	return func(d *Device) {
		if fn != nil {
			d.statusHandlers = append(d.statusHandlers, fn)
		}
	}
}

// Device runs protocol operations over a Link.
//
// Every method returns ErrNoResponse when the exchange failed or the reply did
// not decode. Device errors are reported in the Error field of the result.
type Device struct {
	link           Link
	logger         logger.Logger
	probeTimeout   time.Duration
	statusHandlers []func(DeviceStatus)

	onlineMu sync.Mutex
	online   *bool
}

// NewDevice creates a Device on top of l.
func NewDevice(l Link, opts ...DeviceOption) *Device {
	d := &Device{link: l, logger: logger.GetLogger()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "gasera")

	return d
}

// exchange sends cmd and parses the reply with parse.
func exchange[T any](ctx context.Context, d *Device, cmd string, parse func(string) (T, error)) (T, error) {
	var zero T

	raw, err := d.link.SendCommand(ctx, cmd)
	if err != nil {
		d.logger.Warn("no response from device", "command", frame.Body(cmd), "error", err)
		return zero, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	result, err := parse(raw)
	if err != nil {
		d.logger.Warn("unusable reply from device", "command", frame.Body(cmd), "reply", frame.Body(raw), "error", err)
		return zero, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	return result, nil
}

func (d *Device) generic(ctx context.Context, cmd, op string) (Result, error) {
	return exchange(ctx, d, cmd, func(raw string) (Result, error) { return ParseResult(raw, op) })
}

// CheckConnection probes the device and logs when it goes online or offline.
func (d *Device) CheckConnection(ctx context.Context) bool {
	now := d.link.IsReachable(ctx, d.probeTimeout)

	d.onlineMu.Lock()
	changed := d.online == nil || *d.online != now
	d.online = &now
	d.onlineMu.Unlock()

	if changed {
		if now {
			d.logger.Info("device is online")
		} else {
			d.logger.Warn("device is offline")
		}
	}

	return now
}

// Status asks for the device status.
func (d *Device) Status(ctx context.Context) (DeviceStatus, error) {
	s, err := exchange(ctx, d, AskStatus(), ParseStatus)
	if err != nil {
		return s, err
	}

	for _, fn := range d.statusHandlers {
		fn(s)
	}

	return s, nil
}

// ActiveErrors asks for the active error codes.
func (d *Device) ActiveErrors(ctx context.Context) (ErrorList, error) {
	return exchange(ctx, d, AskActiveErrors(), ParseActiveErrors)
}

// Tasks asks for the measurement tasks configured on the device.
func (d *Device) Tasks(ctx context.Context) (TaskList, error) {
	return exchange(ctx, d, AskTaskList(), ParseTaskList)
}

// StartMeasurement starts the known task taskID. Unknown tasks fail with
// ErrUnknownTask without touching the link.
func (d *Device) StartMeasurement(ctx context.Context, taskID string) (Result, error) {
	if !KnownTaskID(taskID) {
		return Result{}, fmt.Errorf("%w: id %q", ErrUnknownTask, taskID)
	}

	return d.generic(ctx, StartMeasurementByID(taskID), OpStartByID)
}

// StartMeasurementByName starts the known task name.
func (d *Device) StartMeasurementByName(ctx context.Context, name string) (Result, error) {
	if _, ok := TaskIDByName(name); !ok {
		return Result{}, fmt.Errorf("%w: name %q", ErrUnknownTask, name)
	}

	return d.generic(ctx, StartMeasurementByName(name), OpStartByName)
}

// StopMeasurement stops the running measurement.
func (d *Device) StopMeasurement(ctx context.Context) (Result, error) {
	return d.generic(ctx, StopMeasurement(), OpStop)
}

// Concentrations asks for the last measurement result.
func (d *Device) Concentrations(ctx context.Context) (Concentrations, error) {
	return exchange(ctx, d, GetLastResults(), ParseConcentrations)
}

// LastResults returns the last measurement result annotated with gas labels and colors.
func (d *Device) LastResults(ctx context.Context) (Measurement, error) {
	c, err := d.Concentrations(ctx)
	if err != nil {
		return Measurement{}, err
	}
	if c.Error {
		return Measurement{}, fmt.Errorf("%w: device reported an error for %s", ErrNoResponse, OpLastResults)
	}

	return c.Annotate(), nil
}

// MeasurementPhase asks for the phase of the running measurement.
func (d *Device) MeasurementPhase(ctx context.Context) (MeasurementPhase, error) {
	return exchange(ctx, d, GetMeasurementPhase(), ParseMeasurementPhase)
}

// Name asks for the device name.
func (d *Device) Name(ctx context.Context) (DeviceName, error) {
	return exchange(ctx, d, GetDeviceName(), ParseDeviceName)
}

// Info asks for the device information string.
func (d *Device) Info(ctx context.Context) (DeviceInfo, error) {
	return exchange(ctx, d, GetDeviceInfo(), ParseDeviceInfo)
}

// IterationCount asks for the measurement iteration counter.
func (d *Device) IterationCount(ctx context.Context) (IterationCount, error) {
	return exchange(ctx, d, GetIterationCount(), ParseIterationCount)
}

// NetworkSettings asks for the network configuration.
func (d *Device) NetworkSettings(ctx context.Context) (NetworkSettings, error) {
	return exchange(ctx, d, GetNetworkSettings(), ParseNetworkSettings)
}

// SetNetworkSettings changes the network configuration.
func (d *Device) SetNetworkSettings(ctx context.Context, dhcp bool, ip, netmask, gateway string) (Result, error) {
	return d.generic(ctx, SetNetworkSettings(dhcp, ip, netmask, gateway), OpSetNetworkSettings)
}

// Time asks for the device clock.
func (d *Device) Time(ctx context.Context) (DeviceTime, error) {
	return exchange(ctx, d, GetDeviceTime(), ParseDeviceTime)
}

// Parameter asks for the value of the named parameter.
func (d *Device) Parameter(ctx context.Context, name string) (ParameterValue, error) {
	return exchange(ctx, d, GetParameter(name), func(raw string) (ParameterValue, error) {
		return ParseParameter(raw, name)
	})
}

// SetOnlineMode switches the online mode.
func (d *Device) SetOnlineMode(ctx context.Context, enable bool) (Result, error) {
	return d.generic(ctx, SetOnlineMode(enable), OpSetOnlineMode)
}

// SetLaserTuningInterval sets the laser tuning interval.
func (d *Device) SetLaserTuningInterval(ctx context.Context, interval int) (Result, error) {
	return d.generic(ctx, SetLaserTuningInterval(interval), OpSetLaserTuning)
}

// TaskParameters asks for the parameters of task taskID.
func (d *Device) TaskParameters(ctx context.Context, taskID int) (TaskParameters, error) {
	return exchange(ctx, d, GetTaskParameters(taskID), func(raw string) (TaskParameters, error) {
		return ParseTaskParameters(raw, taskID)
	})
}

// SystemParameters asks for the system parameter list.
func (d *Device) SystemParameters(ctx context.Context) (SystemParameters, error) {
	return exchange(ctx, d, GetSystemParameters(), ParseSystemParameters)
}

// SamplerParameters asks for the sampler state.
func (d *Device) SamplerParameters(ctx context.Context) (SamplerParameters, error) {
	return exchange(ctx, d, GetSamplerParameters(), ParseSamplerParameters)
}

// StartSelfTest starts the device self-test.
func (d *Device) StartSelfTest(ctx context.Context) (Result, error) {
	return d.generic(ctx, StartSelfTest(), OpStartSelfTest)
}

// SelfTestResult asks for the result of the last self-test.
func (d *Device) SelfTestResult(ctx context.Context) (SelfTestResult, error) {
	return exchange(ctx, d, GetSelfTestResult(), ParseSelfTestResult)
}

// Reboot restarts the device.
func (d *Device) Reboot(ctx context.Context) (Result, error) {
	return d.generic(ctx, Reboot(), OpReboot)
}

// SetComponentOrder sets the order of components in result replies.
func (d *Device) SetComponentOrder(ctx context.Context, cas ...string) (Result, error) {
	return d.generic(ctx, SetComponentOrder(cas...), OpSetComponentOrder)
}

// SetConcentrationFormat selects the fields of result replies. See the builder
// of the same name for the flag encoding.
func (d *Device) SetConcentrationFormat(ctx context.Context, showTime, showCAS, showConc, showInlet int) (Result, error) {
	return d.generic(ctx, SetConcentrationFormat(showTime, showCAS, showConc, showInlet), OpSetConcentrationFormat)
}
