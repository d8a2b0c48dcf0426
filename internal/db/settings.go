package db

import (
	"database/sql"
	"fmt"
)

// Setting keys the daemon reads at startup and the config API edits.
const (
	SettingTeamNumber    = "team_number"
	SettingResetTTLMs    = "reset_ttl_ms"
	SettingStreamListen  = "stream_listen"
	SettingAngleUnits    = "angle_units"
	SettingDistanceUnits = "distance_units"
)

// GetSetting returns the value for key, or fallback when unset.
func (db *DB) GetSetting(key, fallback string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting inserts or replaces a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, UNIXEPOCH('subsec'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// AllSettings returns every stored setting.
func (db *DB) AllSettings() (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return settings, nil
}

// DeleteSetting removes a setting; deleting an unset key is not an error.
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
