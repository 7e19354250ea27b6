package app

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/romenn/site-worker/internal/config"
)

// NewLogger returns a slog logger backed by charmbracelet/log at the
// configured level.
func NewLogger(w io.Writer, cfg *config.Config, formatter log.Formatter) *slog.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           log.Level(cfg.AppLogLevel),
		Formatter:       formatter,
		ReportTimestamp: true,
	})
	return slog.New(logger)
}
