package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/s3mirror/internal/utils"
)

const logTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// newLogger logs to out through tint and, when logFile is set, also to that file with line
// numbers and timestamps added by the interceptor.
func newLogger(out io.Writer, level slog.Level, logFile string) (*slog.Logger, func() error, error) {
	stdoutHandler := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: logTimeFormat,
		NoColor:    !isTerminal(out),
	})

	if logFile == "" {
		return slog.New(stdoutHandler), func() error { return nil }, nil
	}

	if err := utils.EnsureParent(logFile); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: level,
		// the interceptor stamps each line itself
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	closeLogs := func() error {
		if err := interceptor.Close(); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}

	return slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)), closeLogs, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
