package b2extract

import (
	"fmt"

	"github.com/golang/glog"
)

// LogLevel is the severity of one logged event (trace, info, skip, warning, error, done). Every
// event reaches the host LogFunc whatever its severity; any UI-facing throttling is left to the
// host as a presentation concern, not a core one.
type LogLevel int

const (
	LogTrace LogLevel = iota
	LogInfo
	LogSkip
	LogWarning
	LogError
	LogDone
)

// LogFunc is the narrow callback the driver uses to notify a host UI of an event, kept as a
// function type rather than an interface so tests can pass a closure without a stub type.
type LogFunc func(level LogLevel, message string)

// ProgressFunc reports extraction progress as a 0-100 fraction. Advisory only.
type ProgressFunc func(fraction float64)

// prefix returns the emoji convention for a given level, used both for the glog line and for
// anything forwarded to a LogFunc so the two surfaces read the same.
func (l LogLevel) prefix() string {
	switch l {
	case LogInfo:
		return "✔"
	case LogSkip:
		return "⏭️"
	case LogWarning:
		return "⚠️"
	case LogError:
		return "❌"
	case LogDone:
		return "✅"
	default:
		return "🧭"
	}
}

// runLogger fans a single event out to glog (warnings and errors always; other levels only when
// glog verbosity is 2 or higher) and to the host-supplied LogFunc (subject to whatever throttling
// the host applies). The per-run extract_log file is written separately by the driver.
type runLogger struct {
	cb LogFunc
}

func newRunLogger(cb LogFunc) *runLogger {
	return &runLogger{cb: cb}
}

func (rl *runLogger) log(level LogLevel, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	line := level.prefix() + " " + msg

	switch level {
	case LogWarning:
		glog.Warning(line)
	case LogError:
		glog.Error(line)
	default:
		if glog.V(2) {
			glog.Info(line)
		}
	}

	if rl.cb != nil {
		rl.cb(level, msg)
	}
}

func (rl *runLogger) infof(format string, args ...any)  { rl.log(LogInfo, format, args...) }
func (rl *runLogger) skipf(format string, args ...any)  { rl.log(LogSkip, format, args...) }
func (rl *runLogger) warnf(format string, args ...any)  { rl.log(LogWarning, format, args...) }
func (rl *runLogger) errorf(format string, args ...any) { rl.log(LogError, format, args...) }
func (rl *runLogger) donef(format string, args ...any)  { rl.log(LogDone, format, args...) }
