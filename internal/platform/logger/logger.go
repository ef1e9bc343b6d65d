// Package logger configures the process-wide charmbracelet logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Setup installs a logger with the given level and format ("text" or
// "json") as the package default and returns it.
func Setup(level, format string) *log.Logger {
	return SetupWriter(os.Stderr, level, format)
}

func SetupWriter(w io.Writer, level, format string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	formatter := log.TextFormatter
	if strings.EqualFold(format, "json") {
		formatter = log.JSONFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "todo",
	})
	log.SetDefault(logger)
	return logger
}
