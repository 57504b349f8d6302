// Package logging configures the process loggers. Diagnostics go to stderr
// through the standard logrus logger; the per-page crawl report goes to
// stdout as bare lines.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger
func Setup(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return nil
}

// lineFormatter writes only the message, one per line
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(e.Message + "\n"), nil
}

// NewConsole returns a logger that prints each message as a plain line on w
func NewConsole(w io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       w,
		Formatter: lineFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
}
