package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/flamingods/glow/config"
)

// teeWriter is a thread-safe writer that can buffer output and later flush
// it to a new destination. Buffering is needed in TUI mode, where early log
// lines would corrupt the terminal before the log pane exists. It can also
// tee everything to a file.
type teeWriter struct {
	mu          sync.Mutex
	buffer      bytes.Buffer
	target      io.Writer
	file        *os.File
	isBuffering bool
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.isBuffering {
		w.buffer.Write(p)
	} else if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var writer *teeWriter

// Init initializes the slog backend from the logging config. With
// bufferOutput true, lines are held back until SetOutput provides a live
// destination.
func Init(conf config.LoggingConfig, bufferOutput bool) error {
	writer = &teeWriter{isBuffering: bufferOutput}
	if !bufferOutput {
		writer.target = os.Stderr
	}

	if conf.File != "" {
		file, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		writer.file = file
	}

	var level slog.Level
	switch strings.ToUpper(conf.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(conf.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// SetOutput flushes the buffer to the new writer and starts live logging.
func SetOutput(newTarget io.Writer) error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.buffer.Len() > 0 {
		if _, err := newTarget.Write(writer.buffer.Bytes()); err != nil {
			return err
		}
		writer.buffer.Reset()
	}
	writer.target = newTarget
	writer.isBuffering = false
	return nil
}

// Close flushes any remaining buffered logs and closes the log file.
func Close() error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.file != nil {
		if writer.buffer.Len() > 0 {
			if _, err := writer.file.Write(writer.buffer.Bytes()); err != nil {
				firstErr = err
			}
		}
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	} else if writer.target == nil && writer.buffer.Len() > 0 {
		if _, err := os.Stderr.Write(writer.buffer.Bytes()); err != nil {
			firstErr = err
		}
	}
	writer.buffer.Reset()
	return firstErr
}
