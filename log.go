package uribeacon

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the logging interface shared by the controller and the
// backends. Components tag their output through ChildLogger.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	ChildLogger(fields map[string]interface{}) Logger
}

var (
	pkgLogger Logger
	pkgMu     sync.Mutex
)

// SetLogger replaces the package logger used by components that weren't
// given one.
func SetLogger(l Logger) {
	pkgMu.Lock()
	pkgLogger = l
	pkgMu.Unlock()
}

// GetLogger returns the package logger, a logrus text logger on stderr at
// info level unless SetLogger was called.
func GetLogger() Logger {
	pkgMu.Lock()
	defer pkgMu.Unlock()

	if pkgLogger == nil {
		pkgLogger = NewLogger(&logrus.Logger{
			Out:       os.Stderr,
			Formatter: &logrus.TextFormatter{DisableTimestamp: true},
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		})
	}
	return pkgLogger
}

// SetLogLevel applies a logrus level name ("debug", "warn", ...) to the
// package logger.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}

	l, ok := GetLogger().(*logrusLogger)
	if !ok {
		return errors.New("package logger is not logrus, can't set level")
	}
	l.Logger.SetLevel(lvl)
	return nil
}

// SetLogLevelMax turns the package logger up to trace.
func SetLogLevelMax() {
	if err := SetLogLevel(logrus.TraceLevel.String()); err != nil {
		GetLogger().Error(err)
	}
}

// NewLogger adapts a logrus logger.
func NewLogger(l *logrus.Logger) Logger {
	return &logrusLogger{logrus.NewEntry(l)}
}

type logrusLogger struct {
	*logrus.Entry
}

func (l *logrusLogger) ChildLogger(fields map[string]interface{}) Logger {
	return &logrusLogger{l.WithFields(fields)}
}
