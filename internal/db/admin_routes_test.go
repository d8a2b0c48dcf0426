package db

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func adminMux(t *testing.T) *http.ServeMux {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	mux := http.NewServeMux()
	database.AttachAdminRoutes(mux)
	return mux
}

func TestAdminRoutesRegistered(t *testing.T) {
	mux := adminMux(t)

	// tsweb gates /debug/ by caller address, so a non-local probe can
	// see 403, but a 404 means the route was never mounted.
	for _, route := range []string{"/debug/backup", "/debug/tailsql/"} {
		req := httptest.NewRequest(http.MethodGet, route, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code == http.StatusNotFound {
			t.Errorf("route %s not mounted", route)
		}
	}
}

func TestBackupDownload(t *testing.T) {
	mux := adminMux(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:54321" // loopback passes the debug gate
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("backup returned %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment; filename=backup-") {
		t.Errorf("Content-Disposition = %q", got)
	}

	// The payload must gunzip to a real SQLite file.
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("response is not gzip: %v", err)
	}
	defer zr.Close()
	header := make([]byte, 16)
	if _, err := io.ReadFull(zr, header); err != nil {
		t.Fatalf("reading backup header: %v", err)
	}
	if string(header) != "SQLite format 3\x00" {
		t.Errorf("backup does not start with the SQLite magic: %q", header)
	}
}
