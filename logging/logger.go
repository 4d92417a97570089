// Package logging wires the package loggers of this module into dragonboat's
// logger registry and gives them a uniform line format.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// Packages lists the logger names used across the module.
var Packages = []string{"redis", "gonet", "resptest", "cmd"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

type pkgLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

// SetLevel may be called while other goroutines are logging.
func (l *pkgLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *pkgLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *pkgLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *pkgLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *pkgLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *pkgLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *pkgLogger) Panicf(format string, args ...interface{}) {
	if l.enabled(logger.CRITICAL) {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *pkgLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-10s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger is a logger.Factory writing to stderr so that command output on
// stdout stays machine readable.
func CreateLogger(pkgName string) logger.ILogger {
	l := &pkgLogger{
		name:   pkgName,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
	l.SetLevel(logger.WARNING)
	return l
}

// ParseLevel converts a level name to a logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error", level)
	}
}

var installFactory sync.Once

// Init installs CreateLogger as the logger factory and applies level to every
// logger in Packages.
func Init(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	installFactory.Do(func() { logger.SetLoggerFactory(CreateLogger) })
	for _, name := range Packages {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
