package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Configure sets up the process wide logrus logger. Debug mode forces the
// debug level regardless of level.
func Configure(level string, format string, debug bool) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if debug {
		parsed = logrus.DebugLevel
	}

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(parsed)
	logrus.SetFormatter(formatter(format))
	return nil
}

func formatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{}
	}

	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	}
}
