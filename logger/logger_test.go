package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Level
		wantErr  bool
	}{
		{name: "debug", input: "debug", expected: DebugLevel},
		{name: "upper case", input: "WARN", expected: WarnLevel},
		{name: "warning alias", input: "warning", expected: WarnLevel},
		{name: "empty is info", input: "", expected: InfoLevel},
		{name: "error", input: " error ", expected: ErrorLevel},
		{name: "unknown", input: "loud", expected: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.expected, lv)
		})
	}
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	t.Setenv("ENV", "")
	require := require.New(t)

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.With("component", "link").Info("frame received", "bytes", 12)

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("frame received", rec["msg"])
	require.Equal("link", rec["component"])
	require.EqualValues(12, rec["bytes"])
	require.Contains(rec, "ts")
}

func TestSlogLogger_SetLevelSharedWithChildren(t *testing.T) {
	t.Setenv("ENV", "")
	require := require.New(t)

	var buf bytes.Buffer
	parent := NewSlogWithWriter(&buf, ErrorLevel, false)
	child := parent.With("component", "sequencer")

	child.Info("dropped")
	require.Zero(buf.Len())

	parent.SetLevel(DebugLevel)
	require.Equal(DebugLevel, child.Level())

	child.Debug("kept")
	require.Contains(buf.String(), "kept")
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.On("Warn", "no response", mock.Anything).Return()

	m.Warn("no response", "attempt", 2)

	m.AssertCalled(t, "Warn", "no response", []any{"attempt", 2})

	m.AllowDebug()
	m.Debug("tick")
	m.Debug("drained stale bytes", "bytes", 3)
	require.Equal(t, []string{"tick", "drained stale bytes"}, m.Messages("Debug"))
	require.Equal(t, []string{"no response"}, m.Messages("Warn"))
	require.Empty(t, m.Messages("Error"))
}
