// Package db persists pose traces and daemon settings in SQLite.
//
// The schema is managed by golang-migrate over the embedded migration
// files in migrations/. NewDB opens the database and brings the schema
// up to date; OpenDB opens it without touching the schema, which the
// migrate subcommand and tests use.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the SQLite database at path and applies the connection
// pragmas. The schema is left alone.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &DB{sqlDB}, nil
}

// NewDB opens the database and runs all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrationsFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// AttachAdminRoutes mounts the debug surface: a tailsql live SQL browser
// over the trace database and an on-demand gzipped backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://questrig.db", db.DB, &tailsql.DBOptions{
		Label: "QuestRig trace DB",
	})

	debug.Handle("tailsql/", "Browse the trace DB with live SQL", tsql.NewMux())
	debug.Handle("backup", "Download a gzipped snapshot of the trace DB", http.HandlerFunc(db.serveBackup))
}

// serveBackup snapshots the database with VACUUM INTO and streams the
// result gzipped. VACUUM runs in its own transaction, so the snapshot
// is consistent even while the recorder is writing.
func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("questrig-backup-%d.db", time.Now().UnixNano()))
	if _, err := db.Exec("VACUUM INTO ?", snapshot); err != nil {
		http.Error(w, fmt.Sprintf("backup failed: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.Remove(snapshot)

	f, err := os.Open(snapshot)
	if err != nil {
		http.Error(w, fmt.Sprintf("backup snapshot unreadable: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	name := fmt.Sprintf("backup-%s.db", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	// Headers are out once the copy starts, so a mid-stream failure can
	// only be logged.
	zw := gzip.NewWriter(w)
	defer zw.Close()
	if _, err := io.Copy(zw, f); err != nil {
		log.Printf("backup download aborted: %v", err)
	}
}
