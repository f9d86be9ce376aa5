package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock of Logger.
//
// Calls are recorded as (msg, keysAndValues) so tests can assert on both:
//
//	l := logger.NewMockLogger()
//	l.On("Warn", "no response from device", mock.Anything).Return()
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger creates a MockLogger without expectations.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// AllowDebug accepts any Debug call, per-tick and wire dumps are rarely what a
// test asserts on.
func (m *MockLogger) AllowDebug() *MockLogger {
	m.On("Debug", mock.Anything, mock.Anything).Return().Maybe()
	return m
}

// Messages returns the messages logged through method, in call order.
func (m *MockLogger) Messages(method string) []string {
	var msgs []string
	for _, call := range m.Calls {
		if call.Method != method || len(call.Arguments) == 0 {
			continue
		}
		if msg, ok := call.Arguments.Get(0).(string); ok {
			msgs = append(msgs, msg)
		}
	}

	return msgs
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

func (m *MockLogger) With(keyValues ...any) Logger {
	args := m.Called(keyValues...)
	return args.Get(0).(Logger)
}
