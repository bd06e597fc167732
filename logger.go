package hxview

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger     logrus.FieldLogger
	defaultLoggerOnce sync.Once
)

// DefaultLogger returns the logger used when no Logger option is given:
// text output on stderr at info level.
func DefaultLogger() logrus.FieldLogger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger(os.Stderr, logrus.InfoLevel)
	})
	return defaultLogger
}

// NewLogger builds a text logger writing to w.
func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05",
	})
	return l
}

// DiscardLogger returns a logger that drops everything. Useful in tests.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
