package gasera

import (
	"testing"

	"github.com/arloliu/go-gasera/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		reply string
		want  DeviceStatus
	}{
		{"ASTS 0 2", DeviceStatus{Code: 2, Label: "Idle"}},
		{"ASTS 0 5", DeviceStatus{Code: 5, Label: "Measuring"}},
		{"ASTS 0 8", DeviceStatus{Code: 8, Label: "Laser scan"}},
		{"ASTS 0 42", DeviceStatus{Code: 42, Label: "Unknown"}},
		{"ASTS 0", DeviceStatus{Code: StatusUnknown, Label: "Unknown"}},
		{"ASTS 1 2", DeviceStatus{Error: true, Code: StatusUnknown, Label: "Unknown"}},
		{"ASTS E", DeviceStatus{Error: true, Code: StatusUnknown, Label: "Unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := ParseStatus(frame.Encode(tt.reply))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	s, _ := ParseStatus(frame.Encode("ASTS 0 2"))
	assert.True(t, s.IsIdle())
	assert.Equal(t, "Device Status: Idle (code=2)", s.String())
	s, _ = ParseStatus(frame.Encode("ASTS 1"))
	assert.False(t, s.IsIdle())
}

func TestParse_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no markers", "ASTS 0 2"},
		{"missing etx", "\x02 ASTS 0 2"},
		{"single token", frame.Encode("ASTS")},
		{"empty body", frame.Encode("")},
		{"non numeric status", frame.Encode("ASTS 0 idle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatus(tt.reply)
			require.ErrorIs(t, err, frame.ErrProtocol)
		})
	}

	_, err := ParseConcentrations(frame.Encode("ACON 0 abc 74-82-8 1.0"))
	require.ErrorIs(t, err, frame.ErrMalformed)
	_, err = ParseConcentrations(frame.Encode("ACON 0 1700000000 74-82-8 lots"))
	require.ErrorIs(t, err, frame.ErrMalformed)
	_, err = ParseIterationCount(frame.Encode("AITR 0 x"))
	require.ErrorIs(t, err, frame.ErrMalformed)
	_, err = ParseSamplerParameters(frame.Encode("AMPS 0 1 x 1 30"))
	require.ErrorIs(t, err, frame.ErrMalformed)
}

func TestParseResult(t *testing.T) {
	require := require.New(t)

	r, err := ParseResult(frame.Encode("STAM 0"), OpStartByID)
	require.NoError(err)
	require.Equal(Result{Command: "STAM"}, r)
	require.Equal("STAM response: Success", r.String())

	r, err = ParseResult(frame.Encode("STAM 1"), OpStartByID)
	require.NoError(err)
	require.True(r.Error)
	require.Equal("STAM response: Error", r.String())
}

func TestParseActiveErrors(t *testing.T) {
	require := require.New(t)

	l, err := ParseActiveErrors(frame.Encode("AERR 0 8001 8002"))
	require.NoError(err)
	require.Equal(ErrorList{Codes: []string{"8001", "8002"}}, l)
	require.Equal("Active Errors: 8001, 8002", l.String())

	l, err = ParseActiveErrors(frame.Encode("AERR 1 8001"))
	require.NoError(err)
	require.True(l.Error)
	require.Empty(l.Codes)
}

func TestParseTaskList(t *testing.T) {
	require := require.New(t)

	l, err := ParseTaskList(frame.Encode("ATSK 0 7 Calibration Task 11 DEFAULT 12 FLUSH 13 MTEST2"))
	require.NoError(err)
	require.False(l.Error)
	require.Equal([]Task{
		{ID: "7", Name: "Calibration Task"},
		{ID: "11", Name: "DEFAULT"},
		{ID: "12", Name: "FLUSH"},
		{ID: "13", Name: "MTEST2"},
	}, l.Tasks)
	require.Equal("Task List:\n7: Calibration Task\n11: DEFAULT\n12: FLUSH\n13: MTEST2", l.String())

	l, err = ParseTaskList(frame.Encode("ATSK 0 5 6 Task2"))
	require.NoError(err)
	require.Equal([]Task{{ID: "5", Name: ""}, {ID: "6", Name: "Task2"}}, l.Tasks)

	l, err = ParseTaskList(frame.Encode("ATSK 3"))
	require.NoError(err)
	require.True(l.Error)
	require.Empty(l.Tasks)
}

func TestParseConcentrations(t *testing.T) {
	require := require.New(t)

	c, err := ParseConcentrations(frame.Encode("ACON 0 1700000000 74-82-8 1.85 1700000000 124-38-9 415.2 1700000000"))
	require.NoError(err)
	require.False(c.Error)
	require.Equal([]Concentration{
		{Timestamp: 1700000000, CAS: "74-82-8", PPM: 1.85},
		{Timestamp: 1700000000, CAS: "124-38-9", PPM: 415.2},
	}, c.Records, "a trailing incomplete triple is ignored")

	ts, ok := c.Timestamp()
	require.True(ok)
	require.EqualValues(1700000000, ts)
	require.Equal("Measurement Results:\n1700000000: 74-82-8 = 1.85 ppm\n1700000000: 124-38-9 = 415.2 ppm", c.String())

	c, err = ParseConcentrations(frame.Encode("ACON 1"))
	require.NoError(err)
	require.True(c.Error)
	require.Empty(c.Records)
	_, ok = c.Timestamp()
	require.False(ok)
}

func TestParseMeasurementPhase(t *testing.T) {
	require := require.New(t)

	p, err := ParseMeasurementPhase(frame.Encode("AMST 0 2"))
	require.NoError(err)
	require.Equal(MeasurementPhase{Code: 2, Label: "Integration"}, p)

	p, err = ParseMeasurementPhase(frame.Encode("AMST 1 2"))
	require.NoError(err)
	require.Equal(MeasurementPhase{Error: true, Code: -1, Label: "Unknown"}, p)
}

func TestParseTextReplies(t *testing.T) {
	require := require.New(t)

	n, err := ParseDeviceName(frame.Encode("ANAM 0 Gasera One"))
	require.NoError(err)
	require.Equal(DeviceName{Name: "Gasera One"}, n)
	require.Equal("Device Name: Gasera One", n.String())

	n, err = ParseDeviceName(frame.Encode("ANAM 1 Gasera"))
	require.NoError(err)
	require.Equal(DeviceName{Error: true}, n)

	i, err := ParseDeviceInfo(frame.Encode("ADEV 0 Gasera GASERA-ONE 1.2.3"))
	require.NoError(err)
	require.Equal("Gasera GASERA-ONE 1.2.3", i.Info)

	tm, err := ParseDeviceTime(frame.Encode("ACLK 0 2024-05-01T12:00:00"))
	require.NoError(err)
	require.Equal(DeviceTime{Time: "2024-05-01T12:00:00"}, tm)

	p, err := ParseParameter(frame.Encode("APAR 0 12.5"), "CellTemp")
	require.NoError(err)
	require.Equal(ParameterValue{Name: "CellTemp", Value: "12.5"}, p)
	require.Equal("CellTemp = 12.5", p.String())
}

func TestParseIterationCount(t *testing.T) {
	require := require.New(t)

	c, err := ParseIterationCount(frame.Encode("AITR 0 17"))
	require.NoError(err)
	require.Equal(IterationCount{Iteration: 17}, c)

	c, err = ParseIterationCount(frame.Encode("AITR 1"))
	require.NoError(err)
	require.Equal(IterationCount{Error: true, Iteration: -1}, c)
}

func TestParseNetworkSettings(t *testing.T) {
	require := require.New(t)

	n, err := ParseNetworkSettings(frame.Encode("ANET 0 1 192.168.0.100 255.255.255.0 192.168.0.1"))
	require.NoError(err)
	require.Equal(NetworkSettings{DHCP: true, IP: "192.168.0.100", Netmask: "255.255.255.0", Gateway: "192.168.0.1"}, n)

	n, err = ParseNetworkSettings(frame.Encode("ANET 0 1 192.168.0.100"))
	require.NoError(err)
	require.Equal(NetworkSettings{Error: true}, n)

	n, err = ParseNetworkSettings(frame.Encode("ANET 2 0 10.0.0.2 255.0.0.0 10.0.0.1"))
	require.NoError(err)
	require.Equal(NetworkSettings{Error: true}, n)
}

func TestParseParameterLists(t *testing.T) {
	require := require.New(t)

	tp, err := ParseTaskParameters(frame.Encode("ATSP 0 60 3 1"), 11)
	require.NoError(err)
	require.Equal(TaskParameters{TaskID: 11, Values: []string{"60", "3", "1"}}, tp)

	sp, err := ParseSystemParameters(frame.Encode("ASYP 0 CellTemp 50 40 60 C Pressure 1000 900 1100 mbar extra"))
	require.NoError(err)
	require.Equal([]SystemParameter{
		{Name: "CellTemp", Value: "50", Min: "40", Max: "60", Unit: "C"},
		{Name: "Pressure", Value: "1000", Min: "900", Max: "1100", Unit: "mbar"},
	}, sp.Params)

	mp, err := ParseSamplerParameters(frame.Encode("AMPS 0 1 1 1 30 2 0 0"))
	require.NoError(err)
	require.Equal(SamplerParameters{
		Connected: true,
		Inlets:    []Inlet{{ID: 1, Active: true, BypassSeconds: 30}, {ID: 2, Active: false, BypassSeconds: 0}},
	}, mp)

	mp, err = ParseSamplerParameters(frame.Encode("AMPS 1"))
	require.NoError(err)
	require.True(mp.Error)
	require.False(mp.Connected)
	require.Empty(mp.Inlets)
}

func TestParseSelfTestResult(t *testing.T) {
	require := require.New(t)

	r, err := ParseSelfTestResult(frame.Encode("ASTR 0 2"))
	require.NoError(err)
	require.Equal(SelfTestResult{Code: 2, Label: "Passed"}, r)

	r, err = ParseSelfTestResult(frame.Encode("ASTR 1"))
	require.NoError(err)
	require.Equal(SelfTestResult{Error: true, Code: -1, Label: "Unknown"}, r)
}
