// Package api serves the daemon's HTTP surface: live pose and device
// state, settings, pose resets, and recorded trace queries.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/stream"
	"github.com/questrig/questrig/internal/units"
)

// ANSI colors for the request log.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	tracker  *quest.Tracker
	commands *quest.CommandQueue
	reset    stream.ResetHandler
	db       *db.DB

	// Display units are settings-backed and may change at runtime via
	// POST /api/config.
	mu            sync.RWMutex
	angleUnits    string
	distanceUnits string
}

func NewServer(tracker *quest.Tracker, commands *quest.CommandQueue, reset stream.ResetHandler, database *db.DB, angleUnits, distanceUnits string) *Server {
	return &Server{
		tracker:       tracker,
		commands:      commands,
		reset:         reset,
		db:            database,
		angleUnits:    angleUnits,
		distanceUnits: distanceUnits,
	}
}

func (s *Server) displayUnits() (angle, distance string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.angleUnits, s.distanceUnits
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware writes one colorized line per request with the
// status, URI, and elapsed time.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", s.showPose)
	mux.HandleFunc("/api/device", s.showDevice)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/reset", s.resetPose)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/", s.showSessionSamples)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// displayPose reports the pose components converted to the configured
// display units. Without this struct the response would only carry the
// raw SI pose; we control the output format here.
type displayPose struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	Roll          float64 `json:"roll"`
	Pitch         float64 `json:"pitch"`
	Yaw           float64 `json:"yaw"`
	AngleUnits    string  `json:"angle_units"`
	DistanceUnits string  `json:"distance_units"`
}

type poseResponse struct {
	Pose    geometry.Pose3d `json:"pose"`
	Display displayPose     `json:"display"`
}

func (s *Server) showPose(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	pose, ok := s.tracker.CurrentPose()
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "No pose received yet")
		return
	}

	angleUnits, distanceUnits := s.displayUnits()
	resp := poseResponse{
		Pose: pose,
		Display: displayPose{
			X:             units.ConvertDistance(pose.Translation.X, distanceUnits),
			Y:             units.ConvertDistance(pose.Translation.Y, distanceUnits),
			Z:             units.ConvertDistance(pose.Translation.Z, distanceUnits),
			Roll:          units.ConvertAngle(pose.Rotation.X(), angleUnits),
			Pitch:         units.ConvertAngle(pose.Rotation.Y(), angleUnits),
			Yaw:           units.ConvertAngle(pose.Rotation.Z(), angleUnits),
			AngleUnits:    angleUnits,
			DistanceUnits: distanceUnits,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write pose")
		return
	}
}

// deviceResponse controls the JSON shape of the tracker snapshot.
type deviceResponse struct {
	Connected        bool    `json:"connected"`
	Tracking         bool    `json:"tracking"`
	BatteryPercent   int32   `json:"battery_percent"`
	FrameCount       int32   `json:"frame_count"`
	TrackingLost     int32   `json:"tracking_lost"`
	DroppedFrames    int64   `json:"dropped_frames"`
	OverflowedFrames int64   `json:"overflowed_frames"`
	LatencyMs        float64 `json:"latency_ms"`
}

func (s *Server) showDevice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	status := s.tracker.Status()
	resp := deviceResponse{
		Connected:        status.Connected,
		Tracking:         status.Tracking,
		BatteryPercent:   status.BatteryPercent,
		FrameCount:       status.FrameCount,
		TrackingLost:     status.TrackingLost,
		DroppedFrames:    status.DroppedFrames,
		OverflowedFrames: status.OverflowedFrames,
		LatencyMs:        status.LatencyMs,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write device state")
		return
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.showConfig(w, r)
	case http.MethodPost:
		s.updateConfig(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) currentConfig() (map[string]string, error) {
	angleUnits, distanceUnits := s.displayUnits()
	config := map[string]string{
		db.SettingAngleUnits:    angleUnits,
		db.SettingDistanceUnits: distanceUnits,
	}

	settings, err := s.db.AllSettings()
	if err != nil {
		return nil, err
	}
	for key, value := range settings {
		config[key] = value
	}
	return config, nil
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.currentConfig()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve settings: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

func validateSetting(key, value string) error {
	switch key {
	case db.SettingTeamNumber:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("team_number must be a non-negative integer, got %q", value)
		}
	case db.SettingResetTTLMs:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("reset_ttl_ms must be a positive integer, got %q", value)
		}
	case db.SettingStreamListen:
		if value == "" {
			return fmt.Errorf("stream_listen must not be empty")
		}
	case db.SettingAngleUnits:
		if !units.IsValidAngleUnit(value) {
			return fmt.Errorf("invalid angle units %q, valid units are: %s", value, units.GetValidAngleUnitsString())
		}
	case db.SettingDistanceUnits:
		if !units.IsValidDistanceUnit(value) {
			return fmt.Errorf("invalid distance units %q, valid units are: %s", value, units.GetValidDistanceUnitsString())
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid config body")
		return
	}
	if len(updates) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "No settings provided")
		return
	}

	for key, value := range updates {
		if err := validateSetting(key, value); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	for key, value := range updates {
		if err := s.db.SetSetting(key, value); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to store setting %s: %v", key, err))
			return
		}
	}

	s.mu.Lock()
	if v, ok := updates[db.SettingAngleUnits]; ok {
		s.angleUnits = v
	}
	if v, ok := updates[db.SettingDistanceUnits]; ok {
		s.distanceUnits = v
	}
	s.mu.Unlock()

	config, err := s.currentConfig()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve settings: %v", err))
		return
	}
	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

type resetRequest struct {
	TargetPose geometry.Pose3d `json:"target_pose"`

	// TimestampMs is when the caller built the request, unix
	// milliseconds. Zero means "issued now". Late commands are refused.
	TimestampMs float64 `json:"timestamp_ms,omitempty"`
}

type resetResponse struct {
	Success      bool   `json:"success"`
	CommandID    int32  `json:"command_id"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// resetPose runs the pose-reset command protocol for a field-frame
// target. A rejected command is reported in the body, not the HTTP
// status, the same way the stream RPC reports it.
func (s *Server) resetPose(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid reset request body")
		return
	}

	issuedAt := time.Now()
	if req.TimestampMs != 0 {
		issuedAt = time.Unix(0, int64(req.TimestampMs*1e6))
	}

	cmd := s.commands.IssuePoseReset(req.TargetPose)
	pose, err := s.commands.Accept(cmd, issuedAt)
	if err == nil {
		if s.reset == nil {
			err = fmt.Errorf("no frame source accepts pose resets")
		} else {
			err = s.reset.ResetPose(pose)
		}
	}

	resp := quest.NewResponse(cmd.CommandID, err)
	s.commands.Resolve(resp)
	if err != nil {
		log.Printf("[API] Pose reset %d rejected: %v", cmd.CommandID, err)
	} else {
		log.Printf("[API] Pose reset %d applied: %v", cmd.CommandID, pose)
	}

	if err := json.NewEncoder(w).Encode(resetResponse{
		Success:      resp.Success,
		CommandID:    resp.CommandID,
		ErrorMessage: resp.ErrorMessage,
	}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write reset response")
		return
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 0 // default applied by the store
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	sessions, err := s.db.ListSessions(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write sessions")
		return
	}
}

// showSessionSamples serves /api/sessions/<id>/samples.
func (s *Server) showSessionSamples(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		s.writeJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	sessionID := parts[0]

	if _, err := s.db.GetSession(sessionID); err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", sessionID))
		return
	}

	limit := 0 // all samples
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	samples, err := s.db.SamplesForSession(sessionID, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve samples: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(samples); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write samples")
		return
	}
}
