package monitoring

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger behind the package helpers. It writes text
// lines with full timestamps to stderr.
var Logger = newLogger(os.Stderr)

// Logf is the package-level diagnostic logger. It defaults to Logger.Infof but
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = Logger.Infof

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return l
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput redirects the structured logger.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetLevel sets the minimum level of the structured logger. Unknown names fall
// back to info.
func SetLevel(name string) {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		Logger.Warnf("unknown log level %q, using info", name)
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)
}

// Debugf logs at debug level.
func Debugf(format string, v ...interface{}) {
	Logger.Debugf(format, v...)
}

// Warnf logs at warning level.
func Warnf(format string, v ...interface{}) {
	Logger.Warnf(format, v...)
}

// Errorf logs at error level.
func Errorf(format string, v ...interface{}) {
	Logger.Errorf(format, v...)
}

// Criticalf logs an error that costs data (a dropped tick, a lost write).
// Entries carry severity=critical so they can be filtered.
func Criticalf(format string, v ...interface{}) {
	Logger.WithField("severity", "critical").Errorf(format, v...)
}

// WithSection returns an entry tagged with a section id.
func WithSection(sectionID string) *logrus.Entry {
	return Logger.WithField("section", sectionID)
}
