// Package logging sets up the structured logger shared by the CLI and the
// service client.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Version is set at build time.
var Version = "dev"

// Options selects the logger's format and the attributes attached to every
// record.
type Options struct {
	Debug   bool
	JSON    bool
	Service string
	Version string
	// UID attaches a random uid attribute so the lines of one run can be
	// grouped.
	UID bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// Setup builds a logger from opts.
func Setup(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var log *slog.Logger
	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		log = slog.New(slog.NewTextHandler(w, handlerOpts))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	if opts.UID {
		log = log.With("uid", uuid.Must(uuid.NewRandom()).String())
	}
	return log
}
