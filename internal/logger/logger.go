// Package logger is the process-wide leveled log sink.
//
// Calls are printf-style and carry a bracketed component prefix, e.g.
// logger.Info("[Router] reply sent to %d", chatID).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity.
type Level = logrus.Level

const (
	TraceLevel = logrus.TraceLevel
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
	PanicLevel = logrus.PanicLevel
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetLevel(InfoLevel)
	return l
}

// ParseLevel converts a level name to a Level. "critical" is accepted as an
// alias for fatal.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return InfoLevel, nil
	case "critical":
		return FatalLevel, nil
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q: must be one of trace, debug, info, warn, error, fatal, panic", s)
	}
	return lvl, nil
}

// SetLevel sets the minimum severity written.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// GetLevel returns the current minimum severity.
func GetLevel() Level {
	return std.GetLevel()
}

// SetOutput replaces the primary writer.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// AddFile appends every log line to the file at path in addition to the
// current output. The returned closer closes the file.
func AddFile(path string) (io.Closer, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	std.SetOutput(io.MultiWriter(std.Out, f))
	return f, nil
}

// AddErrorFile writes lines at error severity and above to a separate file.
func AddErrorFile(path string) (io.Closer, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	std.AddHook(&errorFileHook{
		w:         f,
		formatter: &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
	})
	return f, nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type errorFileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *errorFileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *errorFileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}

// Std exposes the underlying logger for libraries that accept a Printf/Println
// style logger.
func Std() *logrus.Logger {
	return std
}

func Trace(format string, args ...any) { std.Tracef(format, args...) }
func Debug(format string, args ...any) { std.Debugf(format, args...) }
func Info(format string, args ...any)  { std.Infof(format, args...) }
func Warn(format string, args ...any)  { std.Warnf(format, args...) }
func Error(format string, args ...any) { std.Errorf(format, args...) }

// Fatal logs at fatal severity and exits the process.
func Fatal(format string, args ...any) { std.Fatalf(format, args...) }
