package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/flamingods/glow/config"
	"github.com/flamingods/glow/daylight"
	"github.com/flamingods/glow/engine"
	"github.com/flamingods/glow/ota"
	"github.com/flamingods/glow/plan"
	"github.com/flamingods/glow/platform"
	"github.com/flamingods/glow/server"
	"github.com/flamingods/glow/trigger"
	"github.com/flamingods/glow/wifi"
)

// App wires one device instance together: the state machine and its
// controller, the output platform, the connectivity monitor, the firmware
// updater, the HTTP command surface and the optional GPIO trigger.
type App struct {
	conf       *config.Config
	machine    *engine.Machine
	controller *engine.Controller
	platform   platform.Platform
	monitor    *wifi.Monitor
	updater    *ota.Updater
	srv        *server.Server
	trig       *trigger.Watcher
	dimmer     *daylight.Dimmer
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewApp builds the app from a validated config. ossignalChan is handed to
// the simulation platform so TUI keys can act like process signals.
func NewApp(conf *config.Config, ossignalChan chan os.Signal) (*App, error) {
	a := &App{
		conf:     conf,
		stopChan: make(chan struct{}),
	}

	a.machine = engine.NewMachine(conf.Device.LedsTotal)
	registerPlans(conf, a.machine)

	enqueue := func(ev engine.Event) { a.controller.Enqueue(ev) }

	a.updater = ota.NewUpdater(conf.OTA, enqueue)
	a.monitor = wifi.NewMonitor(conf.WiFi, func(connected bool) {
		enqueue(engine.ConnectivityEvent{Connected: connected})
	})

	// The initial plan depends on the link state, so probe once before the
	// controller exists. Without a monitor the link is assumed up.
	connected := true
	if conf.WiFi.Enabled {
		connected = a.monitor.ProbeNow()
	}

	safePlan, err := plan.Parse(conf.Device.SafePlan)
	if err != nil {
		return nil, err
	}
	policy := engine.Policy{
		SafePlan:      safePlan,
		ConnLocked:    map[plan.Plan]bool{plan.Button: conf.Plans.Button.ConnLocked},
		CommandLocked: map[plan.Plan]bool{plan.Button: conf.Plans.Button.CommandLocked},
	}
	a.controller = engine.NewController(a.machine, policy, connected)

	if conf.RealHW {
		a.platform = platform.NewRaspberryPiPlatform(conf)
	} else {
		a.platform = platform.NewTUIPlatform(conf, ossignalChan, enqueue)
	}

	if conf.Trigger.Enabled && conf.RealHW {
		a.trig = trigger.NewWatcher(conf.Trigger, func() {
			enqueue(engine.CommandEvent{Plan: plan.Button, Origin: "gpio"})
		})
	}

	a.dimmer = daylight.NewDimmer(conf.Daylight)
	a.srv = server.New(conf, a.machine, a.controller, a.updater, a.linkStatus, version)
	return a, nil
}

// linkStatus reports the network state for the status endpoint. Without a
// monitor it falls back to the controller's view, which the TUI toggles.
func (a *App) linkStatus() wifi.Status {
	if a.conf.WiFi.Enabled {
		return a.monitor.Status()
	}
	return wifi.Status{Connected: a.controller.Connected()}
}

// Start brings up all collaborators and launches the tick loop.
func (a *App) Start() error {
	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	<-a.platform.Ready()

	startPlan, err := plan.Parse(a.conf.Device.StartPlan)
	if err != nil {
		return err
	}
	if !a.controller.Connected() && a.machine.Supports(plan.Fallback) {
		startPlan = plan.Fallback
	}
	a.machine.SetPlan(startPlan, time.Now())
	slog.Info("Device starting", "name", a.conf.Device.Name, "plan", startPlan,
		"leds", a.conf.Device.LedsTotal, "tick", a.conf.Device.TickInterval)

	if a.conf.WiFi.Enabled {
		a.monitor.Start()
	}
	if a.trig != nil {
		if err := a.trig.Start(); err != nil {
			return fmt.Errorf("starting trigger watcher: %w", err)
		}
	}
	a.srv.Start()

	a.wg.Add(1)
	go a.tickLoop()
	return nil
}

// Stop tears everything down in reverse order of Start.
func (a *App) Stop() {
	close(a.stopChan)
	a.wg.Wait()
	a.srv.Stop()
	if a.trig != nil {
		a.trig.Stop()
	}
	if a.conf.WiFi.Enabled {
		a.monitor.Stop()
	}
	a.platform.Stop()
}

// tickLoop is the single writer of all plan state. Each tick applies at
// most one transition, renders the frame and pushes it to the platform.
func (a *App) tickLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.conf.Device.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			slog.Info("Ending tick loop go-routine")
			return
		case now := <-ticker.C:
			a.controller.Tick(now)
			a.platform.DisplayLeds(a.machine.Leds(), a.brightness(now))
		}
	}
}

// brightness combines the configured device brightness with the daylight
// factor into the [0,1] scalar the platform expects.
func (a *App) brightness(now time.Time) float64 {
	return a.conf.Device.Brightness / 255.0 * a.dimmer.Factor(now)
}

// registerPlans builds renderers for every enabled plan. Bounded plans get
// their configured duration; everything else runs until replaced.
func registerPlans(conf *config.Config, machine *engine.Machine) {
	plans := conf.Plans
	if plans.Idle.Enabled {
		machine.AddPlan(plan.Idle,
			plan.NewPulseRenderer(plan.Color(plans.Idle.Color), plans.Idle.Speed, plans.Idle.Wrap), 0)
	}
	if plans.Show.Enabled {
		machine.AddPlan(plan.Show,
			plan.NewPulseRenderer(plan.Color(plans.Show.Color), plans.Show.Speed, plans.Show.Wrap), 0)
	}
	if plans.Special.Enabled {
		machine.AddPlan(plan.Special,
			plan.NewPulseRenderer(plan.Color(plans.Special.Color), plans.Special.Speed, plans.Special.Wrap), 0)
	}
	if plans.Button.Enabled {
		machine.AddPlan(plan.Button,
			plan.NewPartyRenderer(plan.DefaultRand(), plans.Button.HueStep, plans.Button.GlitterChance),
			plans.Button.Duration)
	}
	if plans.Skip.Enabled {
		machine.AddPlan(plan.Skip,
			plan.NewSkipRenderer(plans.Skip.FlashInterval), plans.Skip.Duration)
	}
	if plans.Fallback.Enabled {
		f := plans.Fallback
		machine.AddPlan(plan.Fallback,
			plan.NewFallbackRenderer(plan.Color(f.Color), f.Speed, f.Wrap,
				f.Comets, f.CometSpacing, f.HueStep, f.TrailLen, f.TrailFade), 0)
	}
	if plans.Rainbow.Enabled {
		r := plans.Rainbow
		machine.AddPlan(plan.Rainbow,
			plan.NewRainbowRenderer(r.WaveSpeed, r.WaveStep, r.MaxBrightness), 0)
	}
}
