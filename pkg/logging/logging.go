package logging

const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

type Logger interface {
	LogLevelf(level int, format string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

type LogLevelFunc func(level int, format string, args ...interface{})
type LogFunc func(format string, args ...interface{})

// LogFuncs are the backend sinks. When LogLevelf is set it receives every
// message and the per-level funcs are ignored; nil funcs discard.
type LogFuncs struct {
	LogLevelf LogLevelFunc
	Debugf    LogFunc
	Infof     LogFunc
	Warnf     LogFunc
	Errorf    LogFunc
}

// forLevel clamps out-of-range levels to the nearest known one.
func (f LogFuncs) forLevel(level int) LogFunc {
	switch {
	case level <= LogLevelDebug:
		return f.Debugf
	case level == LogLevelInfo:
		return f.Infof
	case level == LogLevelWarn:
		return f.Warnf
	default:
		return f.Errorf
	}
}

type logger struct {
	prefix string
	funcs  LogFuncs
}

// NewLogger wraps funcs; every message is prefixed with prefix.
func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &logger{
		prefix: prefix,
		funcs:  funcs,
	}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &logger{}
}

// Child tags everything logged through it with prefix, after any prefix the
// parent adds.
func Child(parent Logger, prefix string) Logger {
	return NewLogger(prefix, LogFuncs{LogLevelf: parent.LogLevelf})
}

func (l *logger) logf(level int, msg string, args ...interface{}) {
	msg = l.prefix + msg
	if l.funcs.LogLevelf != nil {
		l.funcs.LogLevelf(level, msg, args...)
		return
	}
	if f := l.funcs.forLevel(level); f != nil {
		f(msg, args...)
	}
}

func (l *logger) LogLevelf(level int, format string, args ...interface{}) {
	l.logf(level, format, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.logf(LogLevelDebug, msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.logf(LogLevelInfo, msg, args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.logf(LogLevelWarn, msg, args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.logf(LogLevelError, msg, args...)
}
