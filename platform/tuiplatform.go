package platform

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	c "github.com/flamingods/glow/config"
	"github.com/flamingods/glow/engine"
	"github.com/flamingods/glow/logging"
	p "github.com/flamingods/glow/plan"
)

// stationKeyColors maps the number keys to the five station button colors.
var stationKeyColors = map[string]string{
	"1": "red",
	"2": "green",
	"3": "blue",
	"4": "yellow",
	"5": "white",
}

// TUIPlatform simulates the LED chain in a terminal. Key bindings inject
// the same events the real collaborators would: plan commands, station
// colors, connectivity edges and update lifecycle phases.
type TUIPlatform struct {
	conf         *c.Config
	segments     []*segment
	inject       func(engine.Event)
	tviewapp     *tview.Application
	intro        *tview.TextView
	ledDisplay   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	simConnected bool
	logFlushOnce sync.Once
	readyChan    chan bool
	displayMutex sync.Mutex
	brightness   float64
}

// NewTUIPlatform creates the simulation platform. inject enqueues events
// exactly like the HTTP server or the wifi monitor would.
func NewTUIPlatform(conf *c.Config, ossignalchan chan os.Signal, inject func(engine.Event)) *TUIPlatform {
	return &TUIPlatform{
		conf:         conf,
		inject:       inject,
		ossignalChan: ossignalchan,
		simConnected: true,
		readyChan:    make(chan bool),
	}
}

func (s *TUIPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *TUIPlatform) Start() error {
	s.segments = parseSegments(s.conf.Hardware, s.conf.Device.LedsTotal)
	s.initSimulationTUI()
	return nil
}

func (s *TUIPlatform) Stop() {
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

func (s *TUIPlatform) DisplayLeds(leds []p.Led, brightness float64) {
	s.displayMutex.Lock()
	for _, seg := range s.segments {
		seg.setLeds(leds)
	}
	s.brightness = brightness
	s.displayMutex.Unlock()
	s.tviewapp.QueueUpdateDraw(s.simulateLedDisplay)
}

func (s *TUIPlatform) getIntroText() string {
	line1 := fmt.Sprintf("Device: [#ffff00]%s[white] | Plans: [blue]i[-]dle [blue]b[-]utton s[blue]k[-]ip [blue]s[-]how s[blue]p[-]ecial", s.conf.Device.Name)
	line2 := "Stations: [blue]1[-]=red [blue]2[-]=green [blue]3[-]=blue [blue]4[-]=yellow [blue]5[-]=white"
	line3 := fmt.Sprintf("[#ff0000]w[-] toggle wifi (now %t) | [#ff0000]o[-]/[#ff0000]e[-]/[#ff0000]f[-] update start/end/fail | [#ff0000]q[-] quit", s.simConnected)
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	// --- Intro Pane ---
	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.getIntroText())
	s.intro.SetBorder(true).SetTitle(" GLOW Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	// --- LED Display Pane ---
	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	// --- Log Pane ---
	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	// --- Layout ---
	stripeHeight := (3 * len(s.segments)) + 2 // 3 lines per segment, 2 for border

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, stripeHeight, 0, false).
		AddItem(s.logView, 0, 1, true)

	// --- Flush logs after first draw ---
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.signalReady(tview.ANSIWriter(s.logView))
	})

	// --- Input Handling ---
	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.tviewapp.Stop()
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			key := string(event.Rune())
			if color, ok := stationKeyColors[key]; ok {
				target, err := engine.MapColor(color)
				if err == nil {
					slog.Debug("Injecting station color", "color", color, "plan", target)
					s.inject(engine.CommandEvent{Plan: target, Origin: "tui-station"})
				}
				return nil
			}
			switch key {
			case "i":
				s.inject(engine.CommandEvent{Plan: p.Idle, Origin: "tui"})
			case "b":
				s.inject(engine.CommandEvent{Plan: p.Button, Origin: "tui"})
			case "k":
				s.inject(engine.CommandEvent{Plan: p.Skip, Origin: "tui"})
			case "s":
				s.inject(engine.CommandEvent{Plan: p.Show, Origin: "tui"})
			case "p":
				s.inject(engine.CommandEvent{Plan: p.Special, Origin: "tui"})
			case "w":
				s.simConnected = !s.simConnected
				s.inject(engine.ConnectivityEvent{Connected: s.simConnected})
				s.intro.SetText(s.getIntroText())
			case "o":
				s.inject(engine.UpdateEvent{Phase: engine.UpdateStarted})
			case "e":
				s.inject(engine.UpdateEvent{Phase: engine.UpdateEnded})
			case "f":
				s.inject(engine.UpdateEvent{Phase: engine.UpdateFailed})
			case "q", "Q":
				s.ossignalChan <- os.Interrupt
			case "r", "R":
				s.ossignalChan <- syscall.SIGHUP
			}
			return nil
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	// --- Start TUI ---
	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			s.failStartup(err)
		}
	}()
}

// signalReady routes log output to target, flushing anything buffered, and
// releases everyone blocked on Ready. Subsequent calls are no-ops.
func (s *TUIPlatform) signalReady(target io.Writer) {
	s.logFlushOnce.Do(func() {
		logging.SetOutput(target)
		close(s.readyChan)
	})
}

// failStartup handles a TUI that could not run at all (no TTY). Ready must
// still be released or the app would block on it forever; the interrupt
// then shuts the process down through the normal signal path.
func (s *TUIPlatform) failStartup(err error) {
	slog.Error("Error running TUI", "error", err)
	s.signalReady(os.Stderr)
	s.ossignalChan <- os.Interrupt
}

// simulateLedDisplay redraws the entire LED display pane. Must be called
// on the main TUI thread via app.QueueUpdateDraw().
func (s *TUIPlatform) simulateLedDisplay() {
	s.displayMutex.Lock()
	defer s.displayMutex.Unlock()

	var buf strings.Builder
	for _, seg := range s.segments {
		top, bottom := s.simulateLedSegment(seg)
		buf.WriteString(" ")
		buf.WriteString(top)
		buf.WriteString("\n ")
		buf.WriteString(bottom)
		buf.WriteString("\n\n")
	}
	s.ledDisplay.SetText(buf.String())
}

// simulateLedSegment generates the two-line representation for a single
// segment.
func (s *TUIPlatform) simulateLedSegment(segment *segment) (string, string) {
	var buf1, buf2 strings.Builder
	buf1.Grow(len(segment.leds) * (len("[-][#000000]") + 1))
	buf2.Grow(len(segment.leds) * (len("[-][#000000]") + 1))

	for _, v := range segment.leds {
		v = v.Scale(s.brightness)
		if v.IsEmpty() {
			buf1.WriteString(" ")
			buf2.WriteString(" ")
			continue
		}
		value := byte(math.Round((v.Red + v.Green + v.Blue) / 3.0))
		colorStr := scaledColor(v)
		buf1.WriteString(colorStr)
		buf2.WriteString(colorStr)

		topChar, bottomChar := " ", " "
		switch {
		case value <= 8:
			bottomChar = "▂"
		case value <= 16:
			bottomChar = "▄"
		case value <= 24:
			bottomChar = "▆"
		case value <= 48:
			bottomChar = "█"
		case value <= 96:
			topChar, bottomChar = "▄", "█"
		default:
			topChar, bottomChar = "█", "█"
		}
		buf1.WriteString(topChar)
		buf2.WriteString(bottomChar)
		buf1.WriteString("[-]")
		buf2.WriteString("[-]")
	}
	return buf1.String(), buf2.String()
}

// scaledColor maps a dim LED to a terminal color tag at full saturation so
// low brightness stays visible in the simulation.
func scaledColor(led p.Led) string {
	maxColor := math.Max(led.Red, math.Max(led.Green, led.Blue))
	if maxColor == 0 {
		return "[#000000]"
	}
	factor := 255 / maxColor
	red := math.Min(led.Red*factor, 255)
	green := math.Min(led.Green*factor, 255)
	blue := math.Min(led.Blue*factor, 255)

	return fmt.Sprintf("[#%02x%02x%02x]", byte(math.Round(red)), byte(math.Round(green)), byte(math.Round(blue)))
}
