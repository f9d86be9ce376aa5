package gasera

import "sort"

// Device status codes reported by ASTS.
const (
	StatusInitializing = 0
	StatusInitError    = 1
	StatusIdle         = 2
	StatusSelfTest     = 3
	StatusMalfunction  = 4
	StatusMeasuring    = 5
	StatusCalibration  = 6
	StatusCancelling   = 7
	StatusLaserScan    = 8
	// StatusUnknown is the code of a status reply with the error flag set.
	StatusUnknown = -1
)

const unknownLabel = "Unknown"

var statusLabels = map[int]string{
	StatusInitializing: "Initializing",
	StatusInitError:    "Initialization error",
	StatusIdle:         "Idle",
	StatusSelfTest:     "Self-test in progress",
	StatusMalfunction:  "Malfunction",
	StatusMeasuring:    "Measuring",
	StatusCalibration:  "Calibration",
	StatusCancelling:   "Cancelling",
	StatusLaserScan:    "Laser scan",
}

// Measurement phases reported by AMST.
const (
	PhaseIdle        = 0
	PhaseGasExchange = 1
	PhaseIntegration = 2
	PhaseAnalysis    = 3
	PhaseLaserTuning = 4
)

var phaseLabels = map[int]string{
	PhaseIdle:        "Idle",
	PhaseGasExchange: "Gas exchange",
	PhaseIntegration: "Integration",
	PhaseAnalysis:    "Analysis",
	PhaseLaserTuning: "Laser tuning",
}

var selfTestLabels = map[int]string{
	0: "Not run",
	1: "In progress",
	2: "Passed",
	3: "Failed",
}

// StatusLabel returns the human label of a device status code.
func StatusLabel(code int) string { return label(statusLabels, code) }

// PhaseLabel returns the human label of a measurement phase code.
func PhaseLabel(code int) string { return label(phaseLabels, code) }

// SelfTestLabel returns the human label of a self-test result code.
func SelfTestLabel(code int) string { return label(selfTestLabels, code) }

func label(m map[int]string, code int) string {
	if s, ok := m[code]; ok {
		return s
	}

	return unknownLabel
}

// Measurement tasks known to be configured on the device.
const (
	TaskCalibration = "7"
	TaskDefault     = "11"
	TaskFlush       = "12"
	TaskMTest2      = "13"
)

var taskIDsByName = map[string]string{
	"Calibration Task": TaskCalibration,
	"DEFAULT":          TaskDefault,
	"FLUSH":            TaskFlush,
	"MTEST2":           TaskMTest2,
}

// KnownTaskID reports whether id is a known measurement task.
func KnownTaskID(id string) bool {
	for _, v := range taskIDsByName {
		if v == id {
			return true
		}
	}

	return false
}

// TaskIDByName returns the id of the known task name.
func TaskIDByName(name string) (string, bool) {
	id, ok := taskIDsByName[name]
	return id, ok
}

// KnownTasks returns the known tasks ordered by name.
func KnownTasks() []Task {
	tasks := make([]Task, 0, len(taskIDsByName))
	for name, id := range taskIDsByName {
		tasks = append(tasks, Task{ID: id, Name: name})
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })

	return tasks
}
