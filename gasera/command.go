package gasera

import (
	"strconv"
	"strings"

	"github.com/arloliu/go-gasera/frame"
)

// SessionToken is the fixed unit token sent after every operation code.
const SessionToken = "K0"

// Operation codes of the device protocol.
const (
	OpStatus                 = "ASTS"
	OpActiveErrors           = "AERR"
	OpTaskList               = "ATSK"
	OpStartByID              = "STAM"
	OpStartByName            = "STAT"
	OpStop                   = "STPM"
	OpLastResults            = "ACON"
	OpMeasurementPhase       = "AMST"
	OpDeviceName             = "ANAM"
	OpDeviceInfo             = "ADEV"
	OpIteration              = "AITR"
	OpNetworkSettings        = "ANET"
	OpSetNetworkSettings     = "SNET"
	OpDeviceTime             = "ACLK"
	OpParameter              = "APAR"
	OpSetOnlineMode          = "SONL"
	OpSetLaserTuning         = "STUN"
	OpTaskParameters         = "ATSP"
	OpSystemParameters       = "ASYP"
	OpSamplerParameters      = "AMPS"
	OpStartSelfTest          = "STST"
	OpSelfTestResult         = "ASTR"
	OpReboot                 = "RDEV"
	OpSetComponentOrder      = "SCOR"
	OpSetConcentrationFormat = "SCON"
)

// Command builds the frame for op with the session token and args.
func Command(op string, args ...string) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, op, SessionToken)
	for _, arg := range args {
		if arg != "" {
			parts = append(parts, arg)
		}
	}

	return frame.Encode(strings.Join(parts, " "))
}

func AskStatus() string            { return Command(OpStatus) }
func AskActiveErrors() string      { return Command(OpActiveErrors) }
func AskTaskList() string          { return Command(OpTaskList) }
func StopMeasurement() string      { return Command(OpStop) }
func GetLastResults() string       { return Command(OpLastResults) }
func GetMeasurementPhase() string  { return Command(OpMeasurementPhase) }
func GetDeviceName() string        { return Command(OpDeviceName) }
func GetDeviceInfo() string        { return Command(OpDeviceInfo) }
func GetIterationCount() string    { return Command(OpIteration) }
func GetNetworkSettings() string   { return Command(OpNetworkSettings) }
func GetDeviceTime() string        { return Command(OpDeviceTime) }
func GetSystemParameters() string  { return Command(OpSystemParameters) }
func GetSamplerParameters() string { return Command(OpSamplerParameters) }
func StartSelfTest() string        { return Command(OpStartSelfTest) }
func GetSelfTestResult() string    { return Command(OpSelfTestResult) }
func Reboot() string               { return Command(OpReboot) }

// StartMeasurementByID starts the measurement task with the given id.
func StartMeasurementByID(taskID string) string { return Command(OpStartByID, taskID) }

// StartMeasurementByName starts the measurement task with the given name.
func StartMeasurementByName(name string) string { return Command(OpStartByName, name) }

// SetNetworkSettings configures DHCP or a static address.
func SetNetworkSettings(dhcp bool, ip, netmask, gateway string) string {
	return Command(OpSetNetworkSettings, boolToken(dhcp), ip, netmask, gateway)
}

// GetParameter asks for the device parameter name.
func GetParameter(name string) string { return Command(OpParameter, name) }

// SetOnlineMode switches the device online mode.
func SetOnlineMode(enable bool) string { return Command(OpSetOnlineMode, boolToken(enable)) }

// SetLaserTuningInterval sets the laser tuning interval.
func SetLaserTuningInterval(interval int) string {
	return Command(OpSetLaserTuning, strconv.Itoa(interval))
}

// GetTaskParameters asks for the parameters of task taskID.
func GetTaskParameters(taskID int) string { return Command(OpTaskParameters, strconv.Itoa(taskID)) }

// SetComponentOrder sets the order of components in result replies.
func SetComponentOrder(cas ...string) string { return Command(OpSetComponentOrder, cas...) }

// SetConcentrationFormat selects the fields of result replies. Each flag is 0
// or 1. The inlet flag is only sent when it is 0 or 1.
func SetConcentrationFormat(showTime, showCAS, showConc, showInlet int) string {
	args := []string{strconv.Itoa(showTime), strconv.Itoa(showCAS), strconv.Itoa(showConc)}
	if showInlet == 0 || showInlet == 1 {
		args = append(args, strconv.Itoa(showInlet))
	}

	return Command(OpSetConcentrationFormat, args...)
}

func boolToken(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
