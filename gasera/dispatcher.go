package gasera

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Response is the outcome of a dispatched command: the typed result and its
// human readable rendering.
type Response struct {
	Structured any    `yaml:"structured"`
	Text       string `yaml:"text"`
}

// HandlerFunc runs a named command on a Device.
type HandlerFunc func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error)

// CommandSpec describes a named command.
type CommandSpec struct {
	Name  string
	Usage string
	// MinArgs and MaxArgs bound the argument count. MaxArgs < 0 means unbounded.
	MinArgs int
	MaxArgs int
	Handler HandlerFunc
}

// Dispatcher maps command names to Device operations.
type Dispatcher struct {
	device   *Device
	commands map[string]CommandSpec
}

// NewDispatcher creates a Dispatcher with the built-in command table.
func NewDispatcher(d *Device) *Dispatcher {
	disp := &Dispatcher{device: d, commands: make(map[string]CommandSpec, len(builtinCommands))}
	for _, c := range builtinCommands {
		disp.commands[c.Name] = c
	}

	return disp
}

// Register adds or replaces a command.
func (disp *Dispatcher) Register(spec CommandSpec) {
	disp.commands[spec.Name] = spec
}

// Commands returns the command table sorted by name.
func (disp *Dispatcher) Commands() []CommandSpec {
	specs := make([]CommandSpec, 0, len(disp.commands))
	for _, c := range disp.commands {
		specs = append(specs, c)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	return specs
}

// Handle runs the command name with args.
func (disp *Dispatcher) Handle(ctx context.Context, name string, args []string) (Response, error) {
	spec, ok := disp.commands[name]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	if len(args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(args) > spec.MaxArgs) {
		return Response{}, fmt.Errorf("%w: usage: %s %s", ErrInvalidArgs, spec.Name, spec.Usage)
	}

	result, err := spec.Handler(ctx, disp.device, args)
	if err != nil {
		return Response{}, fmt.Errorf("command %s: %w", name, err)
	}

	return Response{Structured: result, Text: result.String()}, nil
}

func noArgs[T fmt.Stringer](fn func(*Device, context.Context) (T, error)) HandlerFunc {
	return func(ctx context.Context, d *Device, _ []string) (fmt.Stringer, error) {
		return fn(d, ctx)
	}
}

func intArg(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidArgs, what, s)
	}

	return n, nil
}

func boolArg(s, what string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q is not a boolean", ErrInvalidArgs, what, s)
	}

	return b, nil
}

var builtinCommands = []CommandSpec{
	{Name: "get_status", Handler: noArgs((*Device).Status)},
	{Name: "get_errors", Handler: noArgs((*Device).ActiveErrors)},
	{Name: "get_tasks", Handler: noArgs((*Device).Tasks)},
	{
		Name: "start_by_id", Usage: "<task_id>", MinArgs: 1, MaxArgs: 1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			return d.StartMeasurement(ctx, args[0])
		},
	},
	{
		Name: "start_by_name", Usage: "<task name>", MinArgs: 1, MaxArgs: -1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			return d.StartMeasurementByName(ctx, strings.Join(args, " "))
		},
	},
	{Name: "stop", Handler: noArgs((*Device).StopMeasurement)},
	{Name: "get_results", Handler: noArgs((*Device).LastResults)},
	{Name: "get_phase", Handler: noArgs((*Device).MeasurementPhase)},
	{Name: "get_name", Handler: noArgs((*Device).Name)},
	{Name: "get_info", Handler: noArgs((*Device).Info)},
	{Name: "get_iteration", Handler: noArgs((*Device).IterationCount)},
	{Name: "get_network", Handler: noArgs((*Device).NetworkSettings)},
	{
		Name: "set_network", Usage: "<dhcp 0|1> <ip> <netmask> <gateway>", MinArgs: 4, MaxArgs: 4,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			dhcp, err := boolArg(args[0], "dhcp")
			if err != nil {
				return nil, err
			}

			return d.SetNetworkSettings(ctx, dhcp, args[1], args[2], args[3])
		},
	},
	{Name: "get_time", Handler: noArgs((*Device).Time)},
	{
		Name: "get_parameter", Usage: "<name>", MinArgs: 1, MaxArgs: 1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			return d.Parameter(ctx, args[0])
		},
	},
	{
		Name: "set_online", Usage: "<0|1>", MinArgs: 1, MaxArgs: 1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			enable, err := boolArg(args[0], "online mode")
			if err != nil {
				return nil, err
			}

			return d.SetOnlineMode(ctx, enable)
		},
	},
	{
		Name: "set_laser_tuning", Usage: "<interval>", MinArgs: 1, MaxArgs: 1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			interval, err := intArg(args[0], "interval")
			if err != nil {
				return nil, err
			}

			return d.SetLaserTuningInterval(ctx, interval)
		},
	},
	{
		Name: "get_task_params", Usage: "<task_id>", MinArgs: 1, MaxArgs: 1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			id, err := intArg(args[0], "task id")
			if err != nil {
				return nil, err
			}

			return d.TaskParameters(ctx, id)
		},
	},
	{Name: "get_system_params", Handler: noArgs((*Device).SystemParameters)},
	{Name: "get_sampler_params", Handler: noArgs((*Device).SamplerParameters)},
	{Name: "start_self_test", Handler: noArgs((*Device).StartSelfTest)},
	{Name: "get_self_test", Handler: noArgs((*Device).SelfTestResult)},
	{Name: "reboot", Handler: noArgs((*Device).Reboot)},
	{
		Name: "set_component_order", Usage: "<cas> [cas...]", MinArgs: 1, MaxArgs: -1,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			return d.SetComponentOrder(ctx, args...)
		},
	},
	{
		Name: "set_concentration_format", Usage: "<show_time> <show_cas> <show_conc> [show_inlet]", MinArgs: 3, MaxArgs: 4,
		Handler: func(ctx context.Context, d *Device, args []string) (fmt.Stringer, error) {
			flags := []int{-1, -1, -1, -1}
			for i, arg := range args {
				n, err := intArg(arg, "format flag")
				if err != nil {
					return nil, err
				}
				flags[i] = n
			}

			return d.SetConcentrationFormat(ctx, flags[0], flags[1], flags[2], flags[3])
		},
	},
}
