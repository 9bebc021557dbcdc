package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	c "github.com/flamingods/glow/config"
	"github.com/flamingods/glow/engine"
	"github.com/flamingods/glow/ota"
	"github.com/flamingods/glow/plan"
	"github.com/flamingods/glow/wifi"
)

type fixture struct {
	srv        *httptest.Server
	machine    *engine.Machine
	controller *engine.Controller
	updater    *ota.Updater
}

func newFixture(t *testing.T) *fixture {
	machine := engine.NewMachine(10)
	machine.AddPlan(plan.Idle, plan.NewPulseRenderer(plan.Color{255, 100, 0}, 2, 127), 0)
	machine.AddPlan(plan.Button, plan.NewPartyRenderer(plan.DefaultRand(), 3, 80), 10*time.Second)
	machine.AddPlan(plan.Skip, plan.NewSkipRenderer(150*time.Millisecond), 600*time.Millisecond)
	machine.AddPlan(plan.Fallback, plan.NewFallbackRenderer(plan.Color{255, 180, 80}, 2, 127, 3, 30, 5, 3, 50), 0)
	machine.SetPlan(plan.Idle, time.Now())

	controller := engine.NewController(machine, engine.Policy{SafePlan: plan.Fallback}, true)
	updater := ota.NewUpdater(
		c.OTAConfig{StagingPath: filepath.Join(t.TempDir(), "firmware.bin")},
		controller.Enqueue,
	)

	conf := &c.Config{}
	conf.Device.Name = "test-unit"
	conf.Server.Addr = ":0"
	conf.Configfile = filepath.Join(t.TempDir(), "config.yml")

	link := func() wifi.Status {
		return wifi.Status{Connected: true, IPAddress: "192.168.1.50", RSSI: -55}
	}
	s := New(conf, machine, controller, updater, link, "1.2.3")
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	return &fixture{srv: ts, machine: machine, controller: controller, updater: updater}
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	assert.NoError(t, err)
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	resp, err := http.Get(f.srv.URL + path)
	assert.NoError(t, err)
	return resp
}

func TestPlanCommandEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/button", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var reply map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	resp.Body.Close()
	assert.Equal(t, "success", reply["status"])
	assert.Equal(t, "button", reply["plan"])

	// The handler only enqueues; the switch happens on the next tick.
	assert.Equal(t, plan.Idle, f.machine.CurrentPlan())
	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Button, f.machine.CurrentPlan())
}

func TestPlanCommandWrongMethod(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/button")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPlanCommandUnsupportedPlan(t *testing.T) {
	f := newFixture(t)
	// The show plan is not registered on this device.
	resp := f.post(t, "/show", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlanCommandRejectedDuringUpdate(t *testing.T) {
	f := newFixture(t)
	f.controller.Enqueue(engine.UpdateEvent{Phase: engine.UpdateStarted})
	f.controller.Tick(time.Now())

	resp := f.post(t, "/idle", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/status")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "running", status["status"])
	assert.Equal(t, "test-unit", status["device"])
	assert.Equal(t, "idle", status["current_plan"])
	assert.Equal(t, true, status["wifi_connected"])
	assert.Equal(t, "192.168.1.50", status["ip_address"])
	assert.Equal(t, float64(-55), status["rssi"])
	assert.Equal(t, "1.2.3", status["firmware_version"])
	assert.Equal(t, false, status["ota_in_progress"])
}

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/health")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp = f.get(t, "/version")
	var ver map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&ver))
	resp.Body.Close()
	assert.Equal(t, "1.2.3", ver["firmware_version"])
	assert.Equal(t, "test-unit", ver["device"])
}

func TestStationColor(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/station-color",
		`{"station_id": 3, "station_name": "station-red", "action": "pressed", "color": "red", "timestamp": 1756500000}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Button, f.machine.CurrentPlan())
}

func TestStationColorBlueMapsToFallback(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/station-color", `{"station_id": 1, "color": "blue"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Fallback, f.machine.CurrentPlan())
}

func TestStationColorRejectsBadPayloads(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{not json`,
		`{"station_id": 1}`,
		`{"station_id": 1, "color": "pink"}`,
	} {
		resp := f.post(t, "/station-color", body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
	}

	// No command may reach the machine from a rejected payload.
	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Idle, f.machine.CurrentPlan())
}

func TestStationMixedColor(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/station-mixed-color",
		`{"station_id": 2, "colors": ["green", "white"]}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Button, f.machine.CurrentPlan(), "mixed colors always mean party")

	resp = f.post(t, "/station-mixed-color",
		`{"station_id": 2, "colors": ["red", "purple"]}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"out-of-table members do not invalidate a set")

	resp = f.post(t, "/station-mixed-color", `{"station_id": 2, "colors": []}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOTAUpload(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/ota", "firmware-image-bytes")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "staged")

	// The lifecycle events force the safe plan and end terminal.
	f.controller.Tick(time.Now())
	assert.Equal(t, plan.Fallback, f.machine.CurrentPlan())

	resp = f.get(t, "/ota-status")
	var status map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, false, status["ota_in_progress"])
	assert.Equal(t, float64(100), status["ota_progress"])
	assert.Contains(t, status, "uptime")
}

func TestOTAConflict(t *testing.T) {
	f := newFixture(t)

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- f.updater.Receive(pr, 100)
	}()
	for !f.updater.InProgress() {
		time.Sleep(time.Millisecond)
	}

	resp := f.post(t, "/ota", "second-image")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	pw.Write(make([]byte, 100))
	pw.Close()
	assert.NoError(t, <-done)
}

func TestNotFoundEchoesRequest(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/nope?x=1")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "URI: /nope")
	assert.Contains(t, string(body), "Method: GET")
	assert.Contains(t, string(body), "x: 1")
}

func TestConfigAPIWired(t *testing.T) {
	f := newFixture(t)

	// The fixture's config file does not exist, so the handler reports a
	// server-side error rather than a 404: the route itself is wired.
	resp := f.get(t, "/api/config")
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestConfigAPIRoundTrip(t *testing.T) {
	machine := engine.NewMachine(10)
	machine.AddPlan(plan.Idle, plan.NewPulseRenderer(plan.Color{255, 100, 0}, 2, 127), 0)
	machine.SetPlan(plan.Idle, time.Now())
	controller := engine.NewController(machine, engine.Policy{SafePlan: plan.Idle}, true)
	updater := ota.NewUpdater(c.OTAConfig{StagingPath: filepath.Join(t.TempDir(), "fw.bin")}, controller.Enqueue)

	cfile := filepath.Join(t.TempDir(), "config.yml")
	assert.NoError(t, os.WriteFile(cfile, []byte(`
Device:
  Name: test-unit
  LedsTotal: 10
Plans:
  Idle:
    Enabled: true
    Color: [255, 100, 0]
    Speed: 2
    Wrap: 127
`), 0o644))

	conf := &c.Config{}
	conf.Device.Name = "test-unit"
	conf.Configfile = cfile
	link := func() wifi.Status { return wifi.Status{Connected: true} }
	s := New(conf, machine, controller, updater, link, "1.2.3")
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/config")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rt c.RuntimeConfig
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&rt))
	assert.True(t, rt.Plans.Idle.Enabled)
}
