package logger

type nopLogger struct{ level Level }

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return &nopLogger{level: ErrorLevel} }

func (*nopLogger) Debug(string, ...any)   {}
func (*nopLogger) Info(string, ...any)    {}
func (*nopLogger) Warn(string, ...any)    {}
func (*nopLogger) Error(string, ...any)   {}
func (*nopLogger) Fatal(string, ...any)   {}
func (l *nopLogger) With(...any) Logger   { return l }
func (l *nopLogger) Level() Level         { return l.level }
func (l *nopLogger) SetLevel(level Level) { l.level = level }
