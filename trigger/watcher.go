package trigger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/flamingods/glow/config"
)

// Watcher polls a GPIO button and reports debounced press edges. Only the
// resulting button-active stream matters to the core; the raw pin handling
// stays in here.
type Watcher struct {
	conf     config.TriggerConfig
	onPress  func()
	read     func() bool
	pin      rpio.Pin
	gpioOpen bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher. onPress is called from the watcher
// goroutine once per debounced press.
func NewWatcher(conf config.TriggerConfig, onPress func()) *Watcher {
	return &Watcher{
		conf:     conf,
		onPress:  onPress,
		stopChan: make(chan struct{}),
	}
}

// SetRead replaces the raw pin read (true = pressed). Used by tests.
func (w *Watcher) SetRead(read func() bool) {
	w.read = read
}

// Start opens the GPIO pin (unless a read func was injected) and launches
// the poll loop.
func (w *Watcher) Start() error {
	if w.read == nil {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("opening gpio: %w", err)
		}
		w.gpioOpen = true
		w.pin = rpio.Pin(w.conf.Pin)
		w.pin.Input()
		w.pin.PullUp()
		// Pull-up wiring: the pin reads low while the button is held.
		w.read = func() bool { return w.pin.Read() == rpio.Low }
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop terminates the poll loop and releases the GPIO.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	if w.gpioOpen {
		if err := rpio.Close(); err != nil {
			slog.Error("Error closing gpio", "error", err)
		}
	}
}

func (w *Watcher) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.conf.Poll)
	defer ticker.Stop()

	var (
		lastRaw    bool
		active     bool
		lastChange time.Time
	)
	for {
		select {
		case <-w.stopChan:
			slog.Info("Ending trigger watcher go-routine")
			return
		case now := <-ticker.C:
			raw := w.read()
			if raw != lastRaw {
				lastChange = now
				lastRaw = raw
				continue
			}
			if now.Sub(lastChange) < w.conf.Debounce || raw == active {
				continue
			}
			active = raw
			if active {
				slog.Debug("Trigger button pressed")
				w.onPress()
			}
		}
	}
}
