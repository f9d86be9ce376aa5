package gasera

import (
	"fmt"
	"strings"
	"time"
)

// Result is the reply of a command that only reports success or failure.
type Result struct {
	Error   bool   `yaml:"error"`
	Command string `yaml:"command"`
}

func (r Result) String() string {
	if r.Error {
		return r.Command + " response: Error"
	}

	return r.Command + " response: Success"
}

// DeviceStatus is the reply of ASTS.
type DeviceStatus struct {
	Error bool   `yaml:"error"`
	Code  int    `yaml:"status_code"`
	Label string `yaml:"status"`
}

// IsIdle reports whether the device is ready to start a measurement.
func (s DeviceStatus) IsIdle() bool { return !s.Error && s.Code == StatusIdle }

func (s DeviceStatus) String() string {
	return fmt.Sprintf("Device Status: %s (code=%d)", s.Label, s.Code)
}

// ErrorList is the reply of AERR.
type ErrorList struct {
	Error bool     `yaml:"error"`
	Codes []string `yaml:"codes"`
}

func (l ErrorList) String() string {
	if l.Error {
		return "Error retrieving error list."
	}

	return "Active Errors: " + strings.Join(l.Codes, ", ")
}

// Task is a measurement task configured on the device.
type Task struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// TaskList is the reply of ATSK.
type TaskList struct {
	Error bool   `yaml:"error"`
	Tasks []Task `yaml:"tasks"`
}

func (l TaskList) String() string {
	if l.Error {
		return "Error retrieving task list."
	}

	var sb strings.Builder
	sb.WriteString("Task List:")
	for _, t := range l.Tasks {
		sb.WriteString("\n" + t.ID + ": " + t.Name)
	}

	return sb.String()
}

// Concentration is one component of a measurement result.
type Concentration struct {
	Timestamp int64   `yaml:"timestamp"`
	CAS       string  `yaml:"cas"`
	PPM       float64 `yaml:"ppm"`
}

// Concentrations is the reply of ACON.
type Concentrations struct {
	Error   bool            `yaml:"error"`
	Records []Concentration `yaml:"records"`
}

// Timestamp returns the timestamp of the first record.
func (c Concentrations) Timestamp() (int64, bool) {
	if len(c.Records) == 0 {
		return 0, false
	}

	return c.Records[0].Timestamp, true
}

func (c Concentrations) String() string {
	if c.Error {
		return "Error retrieving measurement results."
	}

	var sb strings.Builder
	sb.WriteString("Measurement Results:")
	for _, r := range c.Records {
		fmt.Fprintf(&sb, "\n%d: %s = %g ppm", r.Timestamp, r.CAS, r.PPM)
	}

	return sb.String()
}

// Component is a concentration annotated for display.
type Component struct {
	CAS   string  `yaml:"cas"`
	PPM   float64 `yaml:"ppm"`
	Label string  `yaml:"label"`
	Color string  `yaml:"color"`
}

// Measurement is the last measurement result annotated with gas names and colors.
type Measurement struct {
	Timestamp  int64       `yaml:"timestamp"`
	Readable   string      `yaml:"readable"`
	Components []Component `yaml:"components"`
}

// ReadableTimeLayout is the layout of Measurement.Readable.
const ReadableTimeLayout = "2006-01-02 15:04:05"

// Annotate resolves gas labels and colors of every record.
func (c Concentrations) Annotate() Measurement {
	m := Measurement{Components: make([]Component, 0, len(c.Records))}
	if ts, ok := c.Timestamp(); ok && ts != 0 {
		m.Timestamp = ts
		m.Readable = time.Unix(ts, 0).Format(ReadableTimeLayout)
	}

	for _, r := range c.Records {
		m.Components = append(m.Components, Component{
			CAS:   r.CAS,
			PPM:   r.PPM,
			Label: GasLabel(r.CAS),
			Color: GasColor(r.CAS),
		})
	}

	return m
}

func (m Measurement) String() string {
	var sb strings.Builder
	sb.WriteString("Measurement " + m.Readable + ":")
	for _, c := range m.Components {
		fmt.Fprintf(&sb, "\n%s = %g ppm", c.Label, c.PPM)
	}

	return sb.String()
}

// MeasurementPhase is the reply of AMST.
type MeasurementPhase struct {
	Error bool   `yaml:"error"`
	Code  int    `yaml:"status_code"`
	Label string `yaml:"description"`
}

func (p MeasurementPhase) String() string {
	return fmt.Sprintf("Measurement Phase: %s (code=%d)", p.Label, p.Code)
}

// DeviceName is the reply of ANAM.
type DeviceName struct {
	Error bool   `yaml:"error"`
	Name  string `yaml:"name"`
}

func (n DeviceName) String() string {
	if n.Error {
		return "Error retrieving device name."
	}

	return "Device Name: " + n.Name
}

// DeviceInfo is the reply of ADEV.
type DeviceInfo struct {
	Error bool   `yaml:"error"`
	Info  string `yaml:"info"`
}

func (i DeviceInfo) String() string {
	if i.Error {
		return "Error retrieving device info."
	}

	return "Device Info: " + i.Info
}

// IterationCount is the reply of AITR.
type IterationCount struct {
	Error     bool `yaml:"error"`
	Iteration int  `yaml:"iteration"`
}

func (c IterationCount) String() string {
	if c.Error {
		return "Error retrieving iteration."
	}

	return fmt.Sprintf("Iteration: %d", c.Iteration)
}

// NetworkSettings is the reply of ANET.
type NetworkSettings struct {
	Error   bool   `yaml:"error"`
	DHCP    bool   `yaml:"use_dhcp"`
	IP      string `yaml:"ip"`
	Netmask string `yaml:"netmask"`
	Gateway string `yaml:"gateway"`
}

func (n NetworkSettings) String() string {
	if n.Error {
		return "Error retrieving network settings."
	}

	return fmt.Sprintf("DHCP: %t, IP: %s, Netmask: %s, Gateway: %s", n.DHCP, n.IP, n.Netmask, n.Gateway)
}

// DeviceTime is the reply of ACLK.
type DeviceTime struct {
	Error bool   `yaml:"error"`
	Time  string `yaml:"datetime"`
}

func (t DeviceTime) String() string {
	if t.Error {
		return "Error retrieving time."
	}

	return "Device Time: " + t.Time
}

// ParameterValue is the reply of APAR.
type ParameterValue struct {
	Error bool   `yaml:"error"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

func (p ParameterValue) String() string {
	if p.Error {
		return "Error retrieving parameter " + p.Name + "."
	}

	return p.Name + " = " + p.Value
}

// TaskParameters is the reply of ATSP. The device returns the parameters as a
// positional list.
type TaskParameters struct {
	Error  bool     `yaml:"error"`
	TaskID int      `yaml:"task_id"`
	Values []string `yaml:"values"`
}

func (p TaskParameters) String() string {
	if p.Error {
		return fmt.Sprintf("Error retrieving parameters of task %d.", p.TaskID)
	}

	return fmt.Sprintf("Task %d Parameters: %s", p.TaskID, strings.Join(p.Values, " "))
}

// SystemParameter is one entry of the ASYP reply.
type SystemParameter struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Min   string `yaml:"min"`
	Max   string `yaml:"max"`
	Unit  string `yaml:"unit"`
}

// SystemParameters is the reply of ASYP.
type SystemParameters struct {
	Error  bool              `yaml:"error"`
	Params []SystemParameter `yaml:"params"`
}

func (p SystemParameters) String() string {
	if p.Error {
		return "Error retrieving system parameters."
	}

	var sb strings.Builder
	sb.WriteString("System Parameters:")
	for _, sp := range p.Params {
		fmt.Fprintf(&sb, "\n%s = %s %s [%s, %s]", sp.Name, sp.Value, sp.Unit, sp.Min, sp.Max)
	}

	return sb.String()
}

// Inlet is the state of one sampler inlet.
type Inlet struct {
	ID            int  `yaml:"id"`
	Active        bool `yaml:"active"`
	BypassSeconds int  `yaml:"bypass_seconds"`
}

// SamplerParameters is the reply of AMPS.
type SamplerParameters struct {
	Error     bool    `yaml:"error"`
	Connected bool    `yaml:"connected"`
	Inlets    []Inlet `yaml:"inlets"`
}

func (p SamplerParameters) String() string {
	if p.Error {
		return "Error retrieving sampler parameters."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sampler connected: %t", p.Connected)
	for _, in := range p.Inlets {
		fmt.Fprintf(&sb, "\ninlet %d: active=%t bypass=%ds", in.ID, in.Active, in.BypassSeconds)
	}

	return sb.String()
}

// SelfTestResult is the reply of ASTR.
type SelfTestResult struct {
	Error bool   `yaml:"error"`
	Code  int    `yaml:"code"`
	Label string `yaml:"result"`
}

func (r SelfTestResult) String() string {
	return fmt.Sprintf("Self-test: %s (code=%d)", r.Label, r.Code)
}
