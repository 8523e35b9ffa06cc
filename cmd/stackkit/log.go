package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog logger backed by charmbracelet/log. format is
// "pretty", "text" (logfmt) or "json".
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	formatter := log.TextFormatter
	switch format {
	case "text":
		formatter = log.LogfmtFormatter
	case "json":
		formatter = log.JSONFormatter
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
		Formatter:       formatter,
	})
	return slog.New(handler), nil
}
