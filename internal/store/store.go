// Package store persists user settings in a small sqlite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rozadev/roza/pkg/rozalib"
	_ "modernc.org/sqlite"
)

const (
	// SettingsKey is the stable identifier the tracking preferences live under.
	SettingsKey = "ramzan-settings"
	// LocationKey holds a manually chosen location.
	LocationKey = "location"

	DefaultFileName = "roza.db"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("setting not found")

// Settings are the persisted preferences.
type Settings struct {
	Madhab        rozalib.Madhab       `json:"madhab"`
	CountdownMode rozalib.TrackingMode `json:"countdownMode"`
}

// DefaultSettings returns Hanafi with automatic tracking.
func DefaultSettings() Settings {
	return Settings{Madhab: rozalib.MadhabHanafi, CountdownMode: rozalib.ModeAutomatic}
}

// Store is a key/value table on top of sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path. Use ":memory:"
// for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS settings (
            key        TEXT PRIMARY KEY,
            value      TEXT NOT NULL,
            updated_at INTEGER NOT NULL
        )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot create settings table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the JSON value stored under key into v.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error: failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("error: corrupt value for %s: %w", key, err)
	}
	return nil
}

// Put stores v as JSON under key.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error: failed to encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `, key, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("error: failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// persistedSettings mirrors the stored JSON with loose string fields so a
// single bad field does not discard the other.
type persistedSettings struct {
	Madhab        string `json:"madhab"`
	CountdownMode string `json:"countdownMode"`
}

// LoadSettings reads the preferences, falling back per field to defaults.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	return s.LoadSettingsOr(ctx, DefaultSettings())
}

// LoadSettingsOr is LoadSettings with caller supplied defaults, used when
// the config file names other preferences than the built-in ones.
func (s *Store) LoadSettingsOr(ctx context.Context, def Settings) (Settings, error) {
	out := def
	var p persistedSettings
	if err := s.Get(ctx, SettingsKey, &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, nil
		}
		return out, err
	}
	if m, err := rozalib.ParseMadhab(p.Madhab); err == nil {
		out.Madhab = m
	}
	if mode, err := rozalib.ParseTrackingMode(p.CountdownMode); err == nil {
		out.CountdownMode = mode
	}
	return out, nil
}

// SaveSettings writes the preferences.
func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	return s.Put(ctx, SettingsKey, persistedSettings{
		Madhab:        string(st.Madhab),
		CountdownMode: st.CountdownMode.String(),
	})
}

// LoadLocation returns the manually chosen location, or ErrNotFound.
func (s *Store) LoadLocation(ctx context.Context) (rozalib.Location, error) {
	var loc rozalib.Location
	err := s.Get(ctx, LocationKey, &loc)
	return loc, err
}

// SaveLocation stores a manually chosen location.
func (s *Store) SaveLocation(ctx context.Context, loc rozalib.Location) error {
	return s.Put(ctx, LocationKey, loc)
}
