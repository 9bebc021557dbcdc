package wifi

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flamingods/glow/config"
	"github.com/flamingods/glow/util"
)

// Status is the link state as last probed, plus the address data the status
// endpoint reports.
type Status struct {
	Connected bool
	IPAddress string
	RSSI      int
}

// Monitor probes connectivity at a fixed interval and reports edges. The
// actual reconnection handling lives outside the process (wpa_supplicant et
// al.); the core only cares about the boolean state.
type Monitor struct {
	conf     config.WiFiConfig
	probe    func() bool
	onChange func(connected bool)
	status   *util.AtomicEvent[Status]
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor. onChange is called from the monitor
// goroutine on every connectivity edge.
func NewMonitor(conf config.WiFiConfig, onChange func(connected bool)) *Monitor {
	m := &Monitor{
		conf:     conf,
		onChange: onChange,
		status:   util.NewAtomicEvent[Status](),
		stopChan: make(chan struct{}),
	}
	m.probe = m.dialProbe
	return m
}

// SetProbe replaces the connectivity probe. Used by tests and by the TUI
// simulation.
func (m *Monitor) SetProbe(probe func() bool) {
	m.probe = probe
}

// ProbeNow performs one synchronous probe and records the result. Called
// once at startup so the initial plan can depend on the link state.
func (m *Monitor) ProbeNow() bool {
	connected := m.probe()
	m.status.Send(m.snapshot(connected))
	return connected
}

// Start launches the periodic probe loop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop terminates the probe loop.
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

// Status returns the last probed link state.
func (m *Monitor) Status() Status {
	return m.status.Value()
}

func (m *Monitor) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.conf.ProbeInterval)
	defer ticker.Stop()

	last := m.status.Value().Connected
	for {
		select {
		case <-m.stopChan:
			slog.Info("Ending wifi monitor go-routine")
			return
		case <-ticker.C:
			connected := m.probe()
			m.status.Send(m.snapshot(connected))
			if connected != last {
				slog.Info("Connectivity changed", "connected", connected)
				last = connected
				m.onChange(connected)
			}
		}
	}
}

func (m *Monitor) snapshot(connected bool) Status {
	st := Status{Connected: connected}
	if connected {
		st.IPAddress = interfaceIP(m.conf.Interface)
		st.RSSI = wirelessRSSI(m.conf.Interface)
	}
	return st
}

func (m *Monitor) dialProbe() bool {
	conn, err := net.DialTimeout("tcp", m.conf.ProbeAddr, m.conf.ProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// interfaceIP returns the first IPv4 address of the named interface, or ""
// when unavailable.
func interfaceIP(name string) string {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return ""
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

// wirelessRSSI returns the signal level of the named interface in dBm as
// reported by /proc/net/wireless, or 0 when unavailable.
func wirelessRSSI(name string) int {
	f, err := os.Open("/proc/net/wireless")
	if err != nil {
		return 0
	}
	defer f.Close()
	return parseWirelessRSSI(f, name)
}

func parseWirelessRSSI(f io.Reader, name string) int {
	scanner := bufio.NewScanner(f)
	prefix := name + ":"
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(line)
		// iface: status link level noise ...
		if len(fields) < 4 {
			return 0
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			return 0
		}
		return int(level)
	}
	return 0
}

// String implements fmt.Stringer for log output.
func (s Status) String() string {
	return fmt.Sprintf("connected=%t ip=%s rssi=%d", s.Connected, s.IPAddress, s.RSSI)
}
