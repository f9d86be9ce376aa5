package gasera

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-gasera/frame"
)

// reply is a decoded frame split into error flag and fields.
type reply struct {
	command string
	failed  bool
	fields  []string
}

func decodeReply(raw string) (reply, error) {
	cmd, tokens, err := frame.Decode(raw)
	if err != nil {
		return reply{}, err
	}

	return reply{command: cmd, failed: tokens[0] != "0", fields: tokens[1:]}, nil
}

func malformed(what, token string) error {
	return fmt.Errorf("%w: %s %q", frame.ErrMalformed, what, token)
}

// atoi parses the field at i; ok is false when the field is missing.
func (r reply) atoi(i int, what string) (n int, ok bool, err error) {
	if i >= len(r.fields) {
		return 0, false, nil
	}

	n, err = strconv.Atoi(r.fields[i])
	if err != nil {
		return 0, false, malformed(what, r.fields[i])
	}

	return n, true, nil
}

// ParseResult parses the reply of a command that only reports success.
func ParseResult(raw, command string) (Result, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return Result{}, err
	}

	return Result{Error: r.failed, Command: command}, nil
}

// ParseStatus parses an ASTS reply.
func ParseStatus(raw string) (DeviceStatus, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return DeviceStatus{}, err
	}

	code := StatusUnknown
	if !r.failed {
		n, ok, err := r.atoi(0, "status code")
		if err != nil {
			return DeviceStatus{}, err
		}
		if ok {
			code = n
		}
	}

	return DeviceStatus{Error: r.failed, Code: code, Label: StatusLabel(code)}, nil
}

// ParseActiveErrors parses an AERR reply.
func ParseActiveErrors(raw string) (ErrorList, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return ErrorList{}, err
	}

	l := ErrorList{Error: r.failed, Codes: []string{}}
	if !r.failed {
		l.Codes = append(l.Codes, r.fields...)
	}

	return l, nil
}

// ParseTaskList parses an ATSK reply. A task name runs until the next purely
// numeric token, which starts the next task.
func ParseTaskList(raw string) (TaskList, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return TaskList{}, err
	}

	l := TaskList{Error: r.failed, Tasks: []Task{}}
	if r.failed {
		return l, nil
	}

	for i := 0; i < len(r.fields); {
		id := r.fields[i]
		i++

		start := i
		for i < len(r.fields) && !isDigits(r.fields[i]) {
			i++
		}
		l.Tasks = append(l.Tasks, Task{ID: id, Name: strings.Join(r.fields[start:i], " ")})
	}

	return l, nil
}

// ParseConcentrations parses an ACON reply of (timestamp, CAS, ppm) triples.
// A trailing incomplete triple is ignored.
func ParseConcentrations(raw string) (Concentrations, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return Concentrations{}, err
	}

	c := Concentrations{Error: r.failed, Records: []Concentration{}}
	if r.failed {
		return c, nil
	}

	for i := 0; i+2 < len(r.fields); i += 3 {
		ts, err := strconv.ParseInt(r.fields[i], 10, 64)
		if err != nil {
			return Concentrations{}, malformed("timestamp", r.fields[i])
		}
		ppm, err := strconv.ParseFloat(r.fields[i+2], 64)
		if err != nil {
			return Concentrations{}, malformed("concentration", r.fields[i+2])
		}

		c.Records = append(c.Records, Concentration{Timestamp: ts, CAS: r.fields[i+1], PPM: ppm})
	}

	return c, nil
}

// ParseMeasurementPhase parses an AMST reply.
func ParseMeasurementPhase(raw string) (MeasurementPhase, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return MeasurementPhase{}, err
	}

	code := -1
	if !r.failed {
		n, ok, err := r.atoi(0, "phase code")
		if err != nil {
			return MeasurementPhase{}, err
		}
		if ok {
			code = n
		}
	}

	return MeasurementPhase{Error: r.failed, Code: code, Label: PhaseLabel(code)}, nil
}

// ParseDeviceName parses an ANAM reply.
func ParseDeviceName(raw string) (DeviceName, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return DeviceName{}, err
	}

	return DeviceName{Error: r.failed, Name: r.text()}, nil
}

// ParseDeviceInfo parses an ADEV reply.
func ParseDeviceInfo(raw string) (DeviceInfo, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{Error: r.failed, Info: r.text()}, nil
}

// ParseIterationCount parses an AITR reply.
func ParseIterationCount(raw string) (IterationCount, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return IterationCount{}, err
	}

	c := IterationCount{Error: r.failed, Iteration: -1}
	if !r.failed {
		n, ok, err := r.atoi(0, "iteration")
		if err != nil {
			return IterationCount{}, err
		}
		if ok {
			c.Iteration = n
		}
	}

	return c, nil
}

// ParseNetworkSettings parses an ANET reply. A reply with fewer than four
// fields is reported as a device error.
func ParseNetworkSettings(raw string) (NetworkSettings, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return NetworkSettings{}, err
	}

	if r.failed || len(r.fields) < 4 {
		return NetworkSettings{Error: true}, nil
	}

	return NetworkSettings{
		DHCP:    r.fields[0] == "1",
		IP:      r.fields[1],
		Netmask: r.fields[2],
		Gateway: r.fields[3],
	}, nil
}

// ParseDeviceTime parses an ACLK reply.
func ParseDeviceTime(raw string) (DeviceTime, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return DeviceTime{}, err
	}

	return DeviceTime{Error: r.failed, Time: r.text()}, nil
}

// ParseParameter parses an APAR reply for the parameter name.
func ParseParameter(raw, name string) (ParameterValue, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return ParameterValue{}, err
	}

	return ParameterValue{Error: r.failed, Name: name, Value: r.text()}, nil
}

// ParseTaskParameters parses an ATSP reply for task taskID.
func ParseTaskParameters(raw string, taskID int) (TaskParameters, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return TaskParameters{}, err
	}

	p := TaskParameters{Error: r.failed, TaskID: taskID, Values: []string{}}
	if !r.failed {
		p.Values = append(p.Values, r.fields...)
	}

	return p, nil
}

// ParseSystemParameters parses an ASYP reply of (name, value, min, max, unit)
// tuples. A trailing incomplete tuple is ignored.
func ParseSystemParameters(raw string) (SystemParameters, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return SystemParameters{}, err
	}

	p := SystemParameters{Error: r.failed, Params: []SystemParameter{}}
	if r.failed {
		return p, nil
	}

	for i := 0; i+4 < len(r.fields); i += 5 {
		p.Params = append(p.Params, SystemParameter{
			Name:  r.fields[i],
			Value: r.fields[i+1],
			Min:   r.fields[i+2],
			Max:   r.fields[i+3],
			Unit:  r.fields[i+4],
		})
	}

	return p, nil
}

// ParseSamplerParameters parses an AMPS reply: the sampler connected flag
// followed by (inlet id, active, bypass seconds) triples.
func ParseSamplerParameters(raw string) (SamplerParameters, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return SamplerParameters{}, err
	}

	p := SamplerParameters{Error: r.failed, Inlets: []Inlet{}}
	if r.failed || len(r.fields) == 0 {
		return p, nil
	}

	p.Connected = r.fields[0] == "1"
	for i := 1; i+2 < len(r.fields); i += 3 {
		id, err := strconv.Atoi(r.fields[i])
		if err != nil {
			return SamplerParameters{}, malformed("inlet id", r.fields[i])
		}
		bypass, err := strconv.Atoi(r.fields[i+2])
		if err != nil {
			return SamplerParameters{}, malformed("bypass time", r.fields[i+2])
		}

		p.Inlets = append(p.Inlets, Inlet{ID: id, Active: r.fields[i+1] == "1", BypassSeconds: bypass})
	}

	return p, nil
}

// ParseSelfTestResult parses an ASTR reply.
func ParseSelfTestResult(raw string) (SelfTestResult, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return SelfTestResult{}, err
	}

	code := -1
	if !r.failed {
		n, ok, err := r.atoi(0, "self-test code")
		if err != nil {
			return SelfTestResult{}, err
		}
		if ok {
			code = n
		}
	}

	return SelfTestResult{Error: r.failed, Code: code, Label: SelfTestLabel(code)}, nil
}

// text joins the fields of a successful reply, empty for a failed one.
func (r reply) text() string {
	if r.failed {
		return ""
	}

	return strings.Join(r.fields, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
