package ota

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/flamingods/glow/config"
	"github.com/flamingods/glow/engine"
)

// ErrInProgress is returned when an update is requested while one is
// already running.
var ErrInProgress = errors.New("ota update already in progress")

const copyChunkSize = 32 * 1024

// Updater receives firmware images and tracks the update lifecycle. Every
// phase change is emitted as an engine event; the transition controller
// forces the safe plan for the duration of the transfer. A successful
// update ends with the process restarting (handled outside), so Ended is
// terminal for the core.
type Updater struct {
	mu         sync.Mutex
	inProgress bool
	progress   int
	started    time.Time
	staging    string
	emit       func(engine.Event)
	create     func(path string) (io.WriteCloser, error)
}

// NewUpdater creates an updater that stages received firmware at the
// configured path. emit enqueues lifecycle events for the tick loop.
func NewUpdater(conf config.OTAConfig, emit func(engine.Event)) *Updater {
	return &Updater{
		staging: conf.StagingPath,
		emit:    emit,
		create:  func(path string) (io.WriteCloser, error) { return os.Create(path) },
	}
}

// InProgress reports whether a transfer is running.
func (u *Updater) InProgress() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inProgress
}

// Status returns the transfer state for the status endpoints. duration is
// zero when no update is active.
func (u *Updater) Status() (inProgress bool, progress int, duration time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inProgress {
		duration = time.Since(u.started)
	}
	return u.inProgress, u.progress, duration
}

// Receive streams a firmware image to the staging file, emitting Started,
// Progress and finally Ended or Failed. total is the expected size in
// bytes; with total <= 0 progress stays at zero until completion.
func (u *Updater) Receive(r io.Reader, total int64) error {
	if err := u.begin(); err != nil {
		return err
	}

	f, err := u.create(u.staging)
	if err != nil {
		u.fail(fmt.Errorf("creating staging file: %w", err))
		return err
	}

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				f.Close()
				u.fail(fmt.Errorf("writing staging file: %w", writeErr))
				return writeErr
			}
			written += int64(n)
			u.reportProgress(written, total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			u.fail(fmt.Errorf("reading firmware stream: %w", readErr))
			return readErr
		}
	}

	// Ended is only emitted once the staging file is flushed and closed.
	if err := f.Close(); err != nil {
		u.fail(fmt.Errorf("closing staging file: %w", err))
		return err
	}

	u.mu.Lock()
	u.progress = 100
	u.inProgress = false
	u.mu.Unlock()
	slog.Info("Firmware staged", "path", u.staging, "bytes", written)
	u.emit(engine.UpdateEvent{Phase: engine.UpdateEnded, Progress: 100})
	return nil
}

func (u *Updater) begin() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inProgress {
		return ErrInProgress
	}
	u.inProgress = true
	u.progress = 0
	u.started = time.Now()
	slog.Info("Firmware update started")
	u.emit(engine.UpdateEvent{Phase: engine.UpdateStarted})
	return nil
}

func (u *Updater) fail(err error) {
	u.mu.Lock()
	u.inProgress = false
	u.mu.Unlock()
	slog.Error("Firmware update failed", "error", err)
	u.emit(engine.UpdateEvent{Phase: engine.UpdateFailed})
}

// reportProgress emits a Progress event only when the whole percentage
// changes, to keep the event queue small between ticks.
func (u *Updater) reportProgress(written, total int64) {
	if total <= 0 {
		return
	}
	pct := int(written * 100 / total)
	if pct > 100 {
		pct = 100
	}
	u.mu.Lock()
	changed := pct != u.progress
	u.progress = pct
	u.mu.Unlock()
	if changed {
		u.emit(engine.UpdateEvent{Phase: engine.UpdateProgress, Progress: pct})
	}
}
