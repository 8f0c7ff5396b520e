package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LogOptions selects level, format and an optional log directory.
type LogOptions struct {
	Level  string
	Format string // "console" or "json"
	// Dir, when set, receives a per-workstation log file in addition to stderr.
	Dir string
}

// NewLogger builds the process logger. The returned closer releases the log
// file, if one was opened; it is never nil.
func NewLogger(opts LogOptions) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return zerolog.Nop(), closer, errors.Wrap(err, "create log dir")
		}
		path := filepath.Join(opts.Dir, LogFileName())
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, errors.Wrap(err, "open log file")
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("host", Hostname()).Logger()
	return logger, closer, nil
}

// LogFileName is reciboqr_<host>_<user>.log so workstations sharing a
// network folder never write to the same file.
func LogFileName() string {
	return fmt.Sprintf("reciboqr_%s_%s.log", sanitize(Hostname()), sanitize(Username()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
