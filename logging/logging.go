package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New. Level defaults to info.
type Options struct {
	Level string
	// File, if set, receives a JSON copy of every log line. It is rotated at
	// 100 MB.
	File string
}

// New returns a logger writing to w, as colored console output if w is a
// terminal and JSON otherwise. The returned close function flushes and
// closes the log file, if any.
func New(w io.Writer, opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := w
	if isTerminal(w) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     28,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closeFn = file.Close
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
