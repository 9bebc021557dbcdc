package wifi

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flamingods/glow/config"
)

func testConf() config.WiFiConfig {
	return config.WiFiConfig{
		Enabled:       true,
		Interface:     "wlan0",
		ProbeAddr:     "192.0.2.1:80",
		ProbeInterval: 5 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}
}

func TestMonitorProbeNow(t *testing.T) {
	m := NewMonitor(testConf(), func(bool) {})
	m.SetProbe(func() bool { return true })

	assert.True(t, m.ProbeNow())
	assert.True(t, m.Status().Connected)

	m.SetProbe(func() bool { return false })
	assert.False(t, m.ProbeNow())
	assert.False(t, m.Status().Connected)
}

func TestMonitorReportsEdges(t *testing.T) {
	var up atomic.Bool
	up.Store(true)

	edges := make(chan bool, 10)
	m := NewMonitor(testConf(), func(connected bool) { edges <- connected })
	m.SetProbe(func() bool { return up.Load() })
	m.ProbeNow()
	m.Start()
	defer m.Stop()

	up.Store(false)
	select {
	case connected := <-edges:
		assert.False(t, connected)
	case <-time.After(time.Second):
		t.Fatal("expected a disconnect edge")
	}

	up.Store(true)
	select {
	case connected := <-edges:
		assert.True(t, connected)
	case <-time.After(time.Second):
		t.Fatal("expected a reconnect edge")
	}
}

func TestMonitorNoEdgeWithoutChange(t *testing.T) {
	edges := make(chan bool, 10)
	m := NewMonitor(testConf(), func(connected bool) { edges <- connected })
	m.SetProbe(func() bool { return true })
	m.ProbeNow()
	m.Start()
	defer m.Stop()

	select {
	case <-edges:
		t.Fatal("steady link state must not produce edges")
	case <-time.After(50 * time.Millisecond):
	}
}

const wirelessSample = `Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
 wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
 wlan1: 0000   70.  -40.  -256        0      0      0      0      0        0
`

func TestParseWirelessRSSI(t *testing.T) {
	assert.Equal(t, -56, parseWirelessRSSI(strings.NewReader(wirelessSample), "wlan0"))
	assert.Equal(t, -40, parseWirelessRSSI(strings.NewReader(wirelessSample), "wlan1"))
	assert.Equal(t, 0, parseWirelessRSSI(strings.NewReader(wirelessSample), "eth0"))
	assert.Equal(t, 0, parseWirelessRSSI(strings.NewReader("garbage"), "wlan0"))
}

func TestStatusString(t *testing.T) {
	s := Status{Connected: true, IPAddress: "10.0.0.2", RSSI: -60}
	assert.Equal(t, "connected=true ip=10.0.0.2 rssi=-60", s.String())
}
