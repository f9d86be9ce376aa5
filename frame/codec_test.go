package frame

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	require := require.New(t)

	require.Equal("\x02 ASTS K0 \x03", Encode("ASTS K0"))
	require.Equal("\x02 STAM K0 11 \x03", Encode("STAM K0 11"))
}

func TestEncodeChecked(t *testing.T) {
	require := require.New(t)

	out, err := EncodeChecked("ASTS K0")
	require.NoError(err)
	require.Equal(Encode("ASTS K0"), out)

	_, err = EncodeChecked("AS\x03TS")
	require.ErrorIs(err, ErrMarkerInBody)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		command string
		tokens  []string
		err     error
	}{
		{name: "status reply", input: "\x02 ASTS 0 2 \x03", command: "ASTS", tokens: []string{"0", "2"}},
		{name: "no inner spacing", input: "\x02ASTS 0 2\x03", command: "ASTS", tokens: []string{"0", "2"}},
		{name: "error flag only", input: "\x02 STPM 1 \x03", command: "STPM", tokens: []string{"1"}},
		{name: "tabs and newlines", input: "\x02 ACON\t0\n1 \x03", command: "ACON", tokens: []string{"0", "1"}},
		{name: "missing STX", input: "ASTS 0 2\x03", err: ErrFraming},
		{name: "missing ETX", input: "\x02 ASTS 0 2", err: ErrFraming},
		{name: "empty", input: "", err: ErrFraming},
		{name: "only markers", input: "\x02\x03", err: ErrMalformed},
		{name: "single token", input: "\x02 ASTS \x03", err: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, tokens, err := Decode(tt.input)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				require.True(t, errors.Is(err, ErrProtocol))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.command, command)
			require.Equal(t, tt.tokens, tokens)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bodies := []string{
		"ASTS K0",
		"STAM K0 11",
		"SNET K0 1 192.168.0.100 255.255.255.0 192.168.0.1",
		"STAT K0 Calibration Task",
		"SCON K0 1 1 1 0",
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			command, tokens, err := Decode(Encode(body))
			require.NoError(t, err)

			want := strings.Fields(body)
			require.Equal(t, want[0], command)
			require.Equal(t, want[1:], tokens)
		})
	}
}

func TestBody(t *testing.T) {
	require.Equal(t, "ASTS 0 2", Body("\x02 ASTS 0 2 \x03"))
	require.Equal(t, "plain", Body("plain"))
}
