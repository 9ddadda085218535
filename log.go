package heap

import "io"
import "os"
import "fmt"
import "time"
import "strings"

// Logger interface lets an embedder integrate heap diagnostics with
// its own logging. If none is supplied SetLogger falls back to a
// defaultLogger writing to os.Stdout at Info level.
type Logger interface {
	SetLogLevel(string)
	Fatalf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Verbosef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
}

// LogLevel for heap diagnostics. Malloc and Free log at Trace level
// only when Options.Trace is set; the excess sweep logs at Warn level
// when the excess counter drifted during a sweep. Corruption is
// reported by panic, not logged.
type LogLevel int

const (
	logLevelIgnore LogLevel = iota + 1
	logLevelFatal
	logLevelError
	logLevelWarn
	logLevelInfo
	logLevelVerbose
	logLevelDebug
	logLevelTrace
)

var log Logger

func init() {
	SetLogger(nil, Settings{"log.level": "info", "log.file": ""})
}

// SetLogger installs logger, or builds a default one from setts when
// logger is nil.
func SetLogger(logger Logger, setts Settings) Logger {
	if logger != nil {
		log = logger
		return log
	}

	var err error
	level := string2logLevel(setts.String("log.level"))
	logfd := os.Stdout
	if logfile := setts.String("log.file"); logfile != "" {
		logfd, err = os.OpenFile(logfile, os.O_RDWR|os.O_APPEND, 0660)
		if err != nil {
			if logfd, err = os.Create(logfile); err != nil {
				panic(err)
			}
		}
	}
	log = &defaultLogger{level: level, output: logfd}
	return log
}

// defaultLogger writes "LEVEL timestamp message" lines to output.
type defaultLogger struct {
	level  LogLevel
	output io.Writer
}

func (l *defaultLogger) SetLogLevel(level string) {
	l.level = string2logLevel(level)
}

func (l *defaultLogger) logf(level LogLevel, prefix, format string, v ...interface{}) {
	if level > l.level {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	msg := fmt.Sprintf(format, v...)
	fmt.Fprintf(l.output, "%s [%s] %s\n", ts, prefix, msg)
}

func (l *defaultLogger) Fatalf(format string, v ...interface{}) {
	l.logf(logLevelFatal, "FATA", format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	l.logf(logLevelError, "ERRO", format, v...)
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	l.logf(logLevelWarn, "WARN", format, v...)
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	l.logf(logLevelInfo, "INFO", format, v...)
}

func (l *defaultLogger) Verbosef(format string, v ...interface{}) {
	l.logf(logLevelVerbose, "VERB", format, v...)
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	l.logf(logLevelDebug, "DEBU", format, v...)
}

func (l *defaultLogger) Tracef(format string, v ...interface{}) {
	l.logf(logLevelTrace, "TRAC", format, v...)
}

func string2logLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "ignore":
		return logLevelIgnore
	case "fatal":
		return logLevelFatal
	case "error":
		return logLevelError
	case "warn":
		return logLevelWarn
	case "info":
		return logLevelInfo
	case "verbose":
		return logLevelVerbose
	case "debug":
		return logLevelDebug
	case "trace":
		return logLevelTrace
	}
	return logLevelInfo
}
