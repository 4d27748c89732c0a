// Package log provides structured logging for facemarks.
// It wraps logrus with a caller-first nested formatter and optional rotating
// file output.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// RequestIDKey is the field name used to correlate a detection request
const RequestIDKey = "request_id"

type Fields = logrus.Fields

// Options configures the global logger
type Options struct {
	Level   string    // debug, info, warn, error
	File    string    // optional rotating log file
	NoColor bool      // disable ANSI colours
	Output  io.Writer // defaults to stderr
}

// Init configures the global logger. Only the first call takes effect.
func Init(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.NoColor,
			TimestampFormat: "15:04:05.000",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			},
		})

		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		writers := []io.Writer{out}
		if opts.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    20,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(level >= logrus.DebugLevel)
	})

	return logger
}

// L returns the global logger, initializing it with defaults if needed
func L() *logrus.Logger {
	return Init(Options{Level: "info"})
}

func entry(fields Fields) *logrus.Entry {
	if fields == nil {
		fields = Fields{}
	}
	return L().WithFields(fields)
}

func Debug(fields Fields, msg string) {
	entry(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	entry(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	entry(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	entry(fields).Error(msg)
}

// WithRequest returns an entry tagged with a detection request ID
func WithRequest(id string) *logrus.Entry {
	if id == "" {
		id = "unknown"
	}
	return L().WithField(RequestIDKey, id)
}
