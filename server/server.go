package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	c "github.com/flamingods/glow/config"
	"github.com/flamingods/glow/engine"
	"github.com/flamingods/glow/ota"
	"github.com/flamingods/glow/plan"
	"github.com/flamingods/glow/wifi"
)

// stationPayload is the JSON body a station controller sends when a
// visitor presses its button.
type stationPayload struct {
	StationID   int      `json:"station_id"`
	StationName string   `json:"station_name"`
	Action      string   `json:"action"`
	Color       string   `json:"color"`
	Colors      []string `json:"colors"`
	Timestamp   int64    `json:"timestamp"`
}

// Server is the HTTP command surface of the device. Handlers never touch
// the state machine directly; they enqueue events for the tick loop.
type Server struct {
	conf       *c.Config
	machine    *engine.Machine
	controller *engine.Controller
	updater    *ota.Updater
	link       func() wifi.Status
	version    string
	started    time.Time
	httpSrv    *http.Server
}

// New creates the server. link supplies the current network status for the
// status endpoint; in simulation mode it reflects the controller state.
func New(conf *c.Config, machine *engine.Machine, controller *engine.Controller,
	updater *ota.Updater, link func() wifi.Status, version string) *Server {
	s := &Server{
		conf:       conf,
		machine:    machine,
		controller: controller,
		updater:    updater,
		link:       link,
		version:    version,
		started:    time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:    conf.Server.Addr,
		Handler: s.Routes(),
	}
	return s
}

// Routes builds the request mux. Exposed for httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	for _, p := range []plan.Plan{plan.Idle, plan.Button, plan.Skip, plan.Show, plan.Special} {
		mux.HandleFunc("/"+string(p), s.handlePlanCommand(p))
	}
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/ota", s.handleOTA)
	mux.HandleFunc("/ota-status", s.handleOTAStatus)
	mux.HandleFunc("/station-color", s.handleStationColor)
	mux.HandleFunc("/station-mixed-color", s.handleStationMixedColor)
	mux.HandleFunc("/api/config", c.ConfigHandler(s.conf.Configfile))
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("HTTP server listening", "addr", s.conf.Server.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
}

func (s *Server) handlePlanCommand(target plan.Plan) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.controller.UpdateActive() {
			http.Error(w, "Update in progress", http.StatusConflict)
			return
		}
		if !s.machine.Supports(target) {
			s.handleNotFound(w, r)
			return
		}
		s.controller.Enqueue(engine.CommandEvent{Plan: target, Origin: "http"})
		writeJSON(w, map[string]any{"status": "success", "plan": string(target)})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	link := s.link()
	inProgress, progress, _ := s.updater.Status()
	status := map[string]any{
		"status":           "running",
		"device":           s.conf.Device.Name,
		"current_plan":     string(s.machine.CurrentPlan()),
		"wifi_connected":   link.Connected,
		"ip_address":       link.IPAddress,
		"rssi":             link.RSSI,
		"uptime":           int64(time.Since(s.started).Seconds()),
		"firmware_version": s.version,
		"ota_in_progress":  inProgress,
		"ota_progress":     progress,
	}
	writeJSON(w, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fmt.Fprint(w, "OK")
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"status":           "running",
		"firmware_version": s.version,
		"device":           s.conf.Device.Name,
	})
}

func (s *Server) handleOTA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.updater.InProgress() {
		http.Error(w, "Update already in progress", http.StatusConflict)
		return
	}
	if err := s.updater.Receive(r.Body, r.ContentLength); err != nil {
		if err == ota.ErrInProgress {
			http.Error(w, "Update already in progress", http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("Update failed: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "Update staged, restarting")
}

func (s *Server) handleOTAStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	inProgress, progress, duration := s.updater.Status()
	status := map[string]any{
		"ota_in_progress": inProgress,
		"ota_progress":    progress,
		"uptime":          int64(time.Since(s.started).Seconds()),
	}
	if inProgress {
		status["ota_duration"] = int64(duration.Seconds())
	}
	writeJSON(w, status)
}

func (s *Server) handleStationColor(w http.ResponseWriter, r *http.Request) {
	s.handleStation(w, r, func(payload stationPayload) (plan.Plan, error) {
		if payload.Color == "" {
			return "", fmt.Errorf("missing color")
		}
		return engine.MapColor(payload.Color)
	})
}

func (s *Server) handleStationMixedColor(w http.ResponseWriter, r *http.Request) {
	s.handleStation(w, r, func(payload stationPayload) (plan.Plan, error) {
		return engine.MapColors(payload.Colors)
	})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request,
	mapping func(stationPayload) (plan.Plan, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload stationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	target, err := mapping(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	slog.Info("Station command received", "station", payload.StationName,
		"id", payload.StationID, "action", payload.Action, "plan", target)
	if !s.machine.Supports(target) {
		http.Error(w, fmt.Sprintf("Plan %s not enabled on this device", target), http.StatusBadRequest)
		return
	}
	s.controller.Enqueue(engine.CommandEvent{
		Plan:   target,
		Origin: fmt.Sprintf("station:%d", payload.StationID),
	})
	writeJSON(w, map[string]any{"status": "success", "plan": string(target)})
}

// handleNotFound echoes the request back, which makes probing the device
// from a shell pleasant.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "Not Found\n\nURI: %s\nMethod: %s\n", r.URL.Path, r.Method)
	if err := r.ParseForm(); err == nil && len(r.Form) > 0 {
		fmt.Fprintf(w, "Arguments: %d\n", len(r.Form))
		for k, vs := range r.Form {
			for _, v := range vs {
				fmt.Fprintf(w, " %s: %s\n", k, v)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding JSON response", "error", err)
	}
}
