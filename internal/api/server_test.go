package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/db"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/quest/pb"
	"github.com/questrig/questrig/internal/units"
)

// Helper functions

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.NewDB(dbPath)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tracker := quest.NewTracker(quest.DefaultTrackerConfig(), nil)
	commands := quest.NewCommandQueue(0, nil)
	server := NewServer(tracker, commands, nil, database, units.Radians, units.Meters)

	return server, database
}

// ingestFieldPose feeds one frame into the server's tracker, encoded the
// way the headset sends it.
func ingestFieldPose(server *Server, count int32, timestamp float64, field geometry.Pose3d) {
	server.tracker.IngestFrame(&pb.FrameData{
		FrameCount: count,
		Timestamp:  timestamp,
		Pose:       geometry.FrcToUnityPose(field).ToProto(),
	})
}

type fakeResetHandler struct {
	mu     sync.Mutex
	calls  int
	target geometry.Pose3d
	err    error
}

func (f *fakeResetHandler) ResetPose(target geometry.Pose3d) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.target = target
	return f.err
}

func TestShowPose_NoFrames(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/pose", nil)
	w := httptest.NewRecorder()
	server.showPose(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestShowPose(t *testing.T) {
	server, _ := setupTestServer(t)

	field := geometry.NewPose3d(
		geometry.NewTranslation3d(3, 2, 0.5),
		geometry.NewRotation3dFromEuler(0, 0, math.Pi/2),
	)
	ingestFieldPose(server, 1, 0.01, field)

	req := httptest.NewRequest(http.MethodGet, "/api/pose", nil)
	w := httptest.NewRecorder()
	server.showPose(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp poseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Pose.ApproxEqual(field) {
		t.Errorf("Pose = %v, want %v", resp.Pose, field)
	}
	if resp.Display.AngleUnits != units.Radians {
		t.Errorf("AngleUnits = %s, want radians", resp.Display.AngleUnits)
	}
	if resp.Display.DistanceUnits != units.Meters {
		t.Errorf("DistanceUnits = %s, want meters", resp.Display.DistanceUnits)
	}
	if math.Abs(resp.Display.X-3) > 1e-9 {
		t.Errorf("Display.X = %f, want 3", resp.Display.X)
	}
	if math.Abs(resp.Display.Yaw-math.Pi/2) > 1e-9 {
		t.Errorf("Display.Yaw = %f, want %f", resp.Display.Yaw, math.Pi/2)
	}
}

func TestShowPose_DisplayConversion(t *testing.T) {
	server, _ := setupTestServer(t)
	server.angleUnits = units.Degrees
	server.distanceUnits = units.Feet

	field := geometry.NewPose3d(
		geometry.NewTranslation3d(0.3048, -0.6096, 0),
		geometry.NewRotation3dFromEuler(0, 0, math.Pi/2),
	)
	ingestFieldPose(server, 1, 0.01, field)

	req := httptest.NewRequest(http.MethodGet, "/api/pose", nil)
	w := httptest.NewRecorder()
	server.showPose(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp poseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if math.Abs(resp.Display.X-1) > 1e-6 {
		t.Errorf("Display.X = %f ft, want 1", resp.Display.X)
	}
	if math.Abs(resp.Display.Y+2) > 1e-6 {
		t.Errorf("Display.Y = %f ft, want -2", resp.Display.Y)
	}
	if math.Abs(resp.Display.Yaw-90) > 1e-6 {
		t.Errorf("Display.Yaw = %f deg, want 90", resp.Display.Yaw)
	}
	// The raw pose stays SI regardless of display units
	if math.Abs(resp.Pose.Translation.X-0.3048) > 1e-9 {
		t.Errorf("Pose.Translation.X = %f, want 0.3048", resp.Pose.Translation.X)
	}
}

func TestShowPose_MethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pose", nil)
	w := httptest.NewRecorder()
	server.showPose(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestShowDevice(t *testing.T) {
	server, _ := setupTestServer(t)

	ingestFieldPose(server, 7, 0.07, geometry.Pose3d{})
	server.tracker.IngestDevice(&pb.DeviceData{
		CurrentlyTracking:   true,
		TrackingLostCounter: 2,
		BatteryPercent:      81,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/device", nil)
	w := httptest.NewRecorder()
	server.showDevice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp deviceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Connected {
		t.Error("Expected connected true")
	}
	if !resp.Tracking {
		t.Error("Expected tracking true")
	}
	if resp.BatteryPercent != 81 {
		t.Errorf("BatteryPercent = %d, want 81", resp.BatteryPercent)
	}
	if resp.FrameCount != 7 {
		t.Errorf("FrameCount = %d, want 7", resp.FrameCount)
	}
	if resp.TrackingLost != 2 {
		t.Errorf("TrackingLost = %d, want 2", resp.TrackingLost)
	}
}

func TestShowConfig(t *testing.T) {
	server, dbInst := setupTestServer(t)

	if err := dbInst.SetSetting(db.SettingTeamNumber, "9999"); err != nil {
		t.Fatalf("Failed to set setting: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	server.handleConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var config map[string]string
	if err := json.NewDecoder(w.Body).Decode(&config); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if config[db.SettingAngleUnits] != units.Radians {
		t.Errorf("angle_units = %s, want radians", config[db.SettingAngleUnits])
	}
	if config[db.SettingDistanceUnits] != units.Meters {
		t.Errorf("distance_units = %s, want meters", config[db.SettingDistanceUnits])
	}
	if config[db.SettingTeamNumber] != "9999" {
		t.Errorf("team_number = %s, want 9999", config[db.SettingTeamNumber])
	}
}

func TestUpdateConfig(t *testing.T) {
	server, dbInst := setupTestServer(t)

	body := `{"angle_units": "degrees", "team_number": "1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(body))
	w := httptest.NewRecorder()
	server.handleConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var config map[string]string
	if err := json.NewDecoder(w.Body).Decode(&config); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if config[db.SettingAngleUnits] != units.Degrees {
		t.Errorf("angle_units = %s, want degrees", config[db.SettingAngleUnits])
	}
	if config[db.SettingTeamNumber] != "1234" {
		t.Errorf("team_number = %s, want 1234", config[db.SettingTeamNumber])
	}

	// Persisted
	stored, err := dbInst.GetSetting(db.SettingTeamNumber, "")
	if err != nil {
		t.Fatalf("Failed to read setting back: %v", err)
	}
	if stored != "1234" {
		t.Errorf("Stored team_number = %s, want 1234", stored)
	}

	// Display units switch immediately
	angle, _ := server.displayUnits()
	if angle != units.Degrees {
		t.Errorf("Server angle units = %s, want degrees", angle)
	}
}

func TestUpdateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", `{"favorite_color": "blue"}`},
		{"bad angle units", `{"angle_units": "gradians"}`},
		{"bad distance units", `{"distance_units": "cubits"}`},
		{"bad team number", `{"team_number": "-5"}`},
		{"bad reset ttl", `{"reset_ttl_ms": "0"}`},
		{"empty object", `{}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := setupTestServer(t)

			req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			server.handleConfig(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestResetPose(t *testing.T) {
	server, _ := setupTestServer(t)
	fake := &fakeResetHandler{}
	server.reset = fake

	target := geometry.NewPose3d(
		geometry.NewTranslation3d(1.5, 3.0, 0),
		geometry.NewRotation3dFromEuler(0, 0, math.Pi),
	)
	body, err := json.Marshal(resetRequest{TargetPose: target})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reset", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.resetPose(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp resetResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Fatalf("Expected success, got error %q", resp.ErrorMessage)
	}
	if resp.CommandID != 1 {
		t.Errorf("CommandID = %d, want 1", resp.CommandID)
	}
	if fake.calls != 1 {
		t.Fatalf("Reset handler calls = %d, want 1", fake.calls)
	}
	if !fake.target.ApproxEqual(target) {
		t.Errorf("Reset target = %v, want %v", fake.target, target)
	}
	if server.commands.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0 after resolve", server.commands.PendingCount())
	}
}

func TestResetPose_Stale(t *testing.T) {
	server, _ := setupTestServer(t)
	fake := &fakeResetHandler{}
	server.reset = fake

	stale := resetRequest{
		TargetPose:  geometry.Pose3d{},
		TimestampMs: float64(time.Now().Add(-100 * time.Millisecond).UnixMilli()),
	}
	body, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reset", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.resetPose(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp resetResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Success {
		t.Error("Expected stale reset to fail")
	}
	if !strings.Contains(resp.ErrorMessage, "command expired") {
		t.Errorf("ErrorMessage = %q, want mention of expiry", resp.ErrorMessage)
	}
	if fake.calls != 0 {
		t.Errorf("Reset handler calls = %d, want 0 for a stale command", fake.calls)
	}
	if server.commands.StaleCount() != 1 {
		t.Errorf("StaleCount = %d, want 1", server.commands.StaleCount())
	}
}

func TestResetPose_InvalidBody(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	server.resetPose(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestResetPose_MethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reset", nil)
	w := httptest.NewRecorder()
	server.resetPose(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{302, colorYellow + "302" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{500, colorBoldRed + "500" + colorReset},
		{100, "100"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			if got := statusCodeColor(tt.code); got != tt.want {
				t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418 to pass through, got %d", w.Code)
	}
}

func TestServeMux_Routes(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	// Every route should resolve to a handler, not the mux 404
	routes := []string{"/api/pose", "/api/device", "/api/config", "/api/reset", "/api/sessions", "/api/sessions/x/samples"}
	for _, route := range routes {
		req := httptest.NewRequest(http.MethodGet, route, nil)
		if _, pattern := mux.Handler(req); pattern == "" {
			t.Errorf("No handler registered for %s", route)
		}
	}
}
