package diag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
)

// MsgData - represents msgData structure
type MsgData map[string]interface{}

// Logger - logger interface
type Logger interface {
	Error(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Debug(ctx context.Context, msg string, args ...interface{})

	WithError(err error) Logger
	WithData(data MsgData) Logger
}

type logrusTarget interface {
	Log(level logrus.Level, args ...interface{})
	WithError(err error) *logrus.Entry
	WithField(key string, value interface{}) *logrus.Entry
}

type logrusLogger struct {
	root  *logrus.Logger
	entry *logrus.Entry
}

func newLogrusLogger(out io.Writer) *logrusLogger {
	root := &logrus.Logger{
		Out:       out,
		Formatter: new(logrus.JSONFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.DebugLevel,
	}
	return (&logrusLogger{root: root}).child(root.WithField("v", 1))
}

func (l *logrusLogger) target() logrusTarget {
	if l.entry != nil {
		return l.entry
	}
	return l.root
}

func (l *logrusLogger) child(entry *logrus.Entry) *logrusLogger {
	return &logrusLogger{root: l.root, entry: entry}
}

func (l *logrusLogger) log(ctx context.Context, level logrus.Level, msg string, args ...interface{}) {
	if !l.root.IsLevelEnabled(level) {
		return
	}
	target := l.target()
	if ctxData := contextData(ctx); ctxData != nil {
		target = target.WithField("context", ctxData)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	target.Log(level, msg)
}

func (l *logrusLogger) WithError(err error) Logger {
	return l.child(l.target().WithError(err))
}

func (l *logrusLogger) WithData(data MsgData) Logger {
	return l.child(l.target().WithField("msgData", data))
}

func (l *logrusLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, logrus.ErrorLevel, msg, args...)
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, logrus.WarnLevel, msg, args...)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, logrus.InfoLevel, msg, args...)
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, logrus.DebugLevel, msg, args...)
}

// LoggingSystemSetup - logging system setup interface
type LoggingSystemSetup interface {
	SetLogMode(string)
	SetLogLevel(string)
}

type loggingSystem struct {
	logger      *logrusLogger
	projectRoot string
}

// SetLogMode switches output. Supported modes:
// - json: JSON lines to stdout
// - test: JSON lines appended to test.log in the project root
func (s *loggingSystem) SetLogMode(mode string) {
	switch mode {
	case "json":
		s.logger.root.Formatter = new(logrus.JSONFormatter)
		s.logger.root.Out = os.Stdout
	case "test":
		path := filepath.Join(s.projectRoot, "test.log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			panic(err)
		}
		s.logger.root.Out = file
	default:
		panic(fmt.Sprintf("Unsupported log mode: %v", mode))
	}
}

// SetLogLevel sets min level to output (error, warn, info, debug)
func (s *loggingSystem) SetLogLevel(level string) {
	logrusLevel, err := logrus.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	s.logger.root.SetLevel(logrusLevel)
}

var defaultLoggingSystem loggingSystem

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("Can not get project root")
	}
	defaultLoggingSystem.projectRoot = filepath.Join(file, "..", "..", "..", "..")
	defaultLoggingSystem.logger = newLogrusLogger(os.Stdout)

	defaultLoggingSystem.SetLogMode(defaultLogMode(testing.Testing))
}

// defaultLogMode keeps test binaries output in test.log
func defaultLogMode(isTesting func() bool) string {
	if isTesting() {
		return "test"
	}
	return "json"
}

// SetupLoggingSystem initializes a root logger that is a base for all other loggers
// This method should be called just once during APP bootstrap
func SetupLoggingSystem(setup ...func(LoggingSystemSetup)) {
	for _, setupFn := range setup {
		setupFn(&defaultLoggingSystem)
	}
}

// CreateLogger will return logger derived from a root logger
// named after the calling package
func CreateLogger() Logger {
	loggerName := "unknown"
	if _, file, _, ok := runtime.Caller(1); ok {
		loggerName = filepath.Dir(file)
	}
	if rel, err := filepath.Rel(defaultLoggingSystem.projectRoot, loggerName); err == nil {
		loggerName = rel
	}
	root := defaultLoggingSystem.logger
	return root.child(root.target().WithField("package", loggerName))
}
