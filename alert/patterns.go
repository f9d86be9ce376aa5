package alert

import "time"

// Pattern names used by the sampler.
const (
	Triggered           = "triggered"
	Started             = "started"
	Paused              = "paused"
	Ended               = "ended"
	Warning             = "warning"
	Error               = "error"
	Fatal               = "fatal"
	OK                  = "ok"
	Cancel              = "cancel"
	Beacon              = "beacon"
	PowerOn             = "power_on"
	Shutdown            = "shutdown"
	LinkOK              = "tcp_link_ok"
	LinkLost            = "tcp_link_lost"
	MeasurementStarted  = "measurement_started"
	MeasurementFinished = "measurement_finished"
	DeviceBusy          = "device_busy"
	DeviceFault         = "device_fault"
	CalibrationStart    = "calibration_start"
	CalibrationDone     = "calibration_done"
	UpdateDone          = "update_done"
)

// DefaultPatterns maps pattern names to their definitions, see PatternPulses.
func DefaultPatterns() map[string]string {
	return map[string]string{
		Triggered:           ".-",
		Started:             ".",
		Paused:              "..",
		Ended:               "...",
		Warning:             "--",
		Error:               "ERR",
		Fatal:               "SOS",
		OK:                  "K",
		Cancel:              "N",
		Beacon:              "E",
		PowerOn:             "EE",
		Shutdown:            "SK",
		LinkOK:              "C",
		LinkLost:            "L",
		MeasurementStarted:  "M",
		MeasurementFinished: "F",
		DeviceBusy:          "E",
		DeviceFault:         "SOS",
		CalibrationStart:    "C",
		CalibrationDone:     "R",
		UpdateDone:          "K",
	}
}

// DefaultRateLimits is the minimum interval between two plays of a pattern.
func DefaultRateLimits() map[string]time.Duration {
	return map[string]time.Duration{
		Error: time.Second,
		Fatal: 5 * time.Second,
	}
}
