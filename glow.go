package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/flamingods/glow/config"
	"github.com/flamingods/glow/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfile := flag.String("config", "config.yml", "Path to the config file")
	realp := flag.Bool("real", false, "Set to true if program runs on the real hardware")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	ossignalChan := make(chan os.Signal, 1)
	signal.Notify(ossignalChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	reloadChan := make(chan bool, 1)
	watcher := watchConfig(*cfile, reloadChan)
	if watcher != nil {
		defer watcher.Close()
	}

	for {
		if !runOnce(*cfile, *realp, ossignalChan, reloadChan) {
			return
		}
		slog.Info("Reloading configuration", "file", *cfile)
	}
}

// runOnce builds and runs the app until a signal or a config change stops
// it. It returns true when the app should be rebuilt with fresh config.
func runOnce(cfile string, realHW bool, ossignalChan chan os.Signal, reloadChan chan bool) bool {
	conf, err := config.ReadConfig(cfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}
	conf.RealHW = realHW

	// In TUI mode, logs are buffered until the log pane exists.
	if err := logging.Init(conf.Logging, !conf.RealHW); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	app, err := NewApp(conf, ossignalChan)
	if err != nil {
		slog.Error("Error building app", "error", err)
		os.Exit(1)
	}
	if err := app.Start(); err != nil {
		slog.Error("Error starting app", "error", err)
		os.Exit(1)
	}
	defer app.Stop()

	for {
		select {
		case sig := <-ossignalChan:
			if sig == syscall.SIGHUP {
				return true
			}
			slog.Info("Shutting down", "signal", sig)
			return false
		case <-reloadChan:
			return true
		}
	}
}

// watchConfig watches the config file's directory and pushes a reload when
// the file itself changes. Watching the directory survives editors that
// replace the file on save.
func watchConfig(cfile string, reloadChan chan bool) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("Config watching disabled", "error", err)
		return nil
	}

	absPath, err := filepath.Abs(cfile)
	if err != nil {
		slog.Warn("Config watching disabled", "error", err)
		watcher.Close()
		return nil
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		slog.Warn("Config watching disabled", "error", err)
		watcher.Close()
		return nil
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == absPath &&
					event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case reloadChan <- true:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			}
		}
	}()
	return watcher
}
