// Package settings provides the live application settings store consulted
// by the polling scheduler each cycle, and the fast-refresh interval policy.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/store"
)

// Interval bounds, in seconds. Writes outside the range are clamped, not rejected.
const (
	MinIntervalSeconds = 1
	MaxIntervalSeconds = 3600
)

// Probe timeout bounds.
const (
	minTimeout = 100 * time.Millisecond
	maxTimeout = 60 * time.Second
)

const (
	keyInterval      = "interval"
	keyTimeout       = "timeout"
	keyExportOnClose = "export_on_close"
)

// Defaults applied when a key is missing or unreadable.
const (
	DefaultIntervalSeconds = 10
	DefaultTimeout         = 2 * time.Second
)

// Store is the SQLite-backed settings store. Reads happen on every scheduler
// cycle, so every accessor degrades to a default instead of failing.
type Store struct {
	db     *store.SQLiteStore
	logger *zap.Logger
}

// NewStore creates the settings Store, applies its migration, and seeds defaults.
func NewStore(ctx context.Context, db *store.SQLiteStore, logger *zap.Logger) (*Store, error) {
	if err := db.Migrate(ctx, "settings", migrations()); err != nil {
		return nil, fmt.Errorf("settings migrations: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create settings table with defaults",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS settings (
						key        TEXT PRIMARY KEY,
						value      TEXT NOT NULL,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`INSERT OR IGNORE INTO settings (key, value) VALUES ('interval', '10')`,
					`INSERT OR IGNORE INTO settings (key, value) VALUES ('timeout', '2s')`,
					`INSERT OR IGNORE INTO settings (key, value) VALUES ('export_on_close', '0')`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// ClampInterval forces an interval into the valid [1, 3600] second range.
func ClampInterval(seconds int) int {
	if seconds < MinIntervalSeconds {
		return MinIntervalSeconds
	}
	if seconds > MaxIntervalSeconds {
		return MaxIntervalSeconds
	}
	return seconds
}

// Interval returns the polling interval in seconds, clamped to the valid
// range. Read failures degrade to the default.
func (s *Store) Interval(ctx context.Context) int {
	raw, err := s.get(ctx, keyInterval)
	if err != nil {
		s.logger.Warn("settings: interval read failed, using default", zap.Error(err))
		return DefaultIntervalSeconds
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Legacy databases stored intervals as floats.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			s.logger.Warn("settings: invalid interval value, using default", zap.String("value", raw))
			return DefaultIntervalSeconds
		}
		n = int(f)
	}
	return ClampInterval(n)
}

// SetInterval stores the polling interval, clamping it to [1, 3600] seconds.
func (s *Store) SetInterval(ctx context.Context, seconds int) error {
	return s.set(ctx, keyInterval, strconv.Itoa(ClampInterval(seconds)))
}

// Timeout returns the per-probe timeout. Read failures degrade to the default.
func (s *Store) Timeout(ctx context.Context) time.Duration {
	raw, err := s.get(ctx, keyTimeout)
	if err != nil {
		s.logger.Warn("settings: timeout read failed, using default", zap.Error(err))
		return DefaultTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Legacy databases stored the timeout as bare seconds.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			s.logger.Warn("settings: invalid timeout value, using default", zap.String("value", raw))
			return DefaultTimeout
		}
		d = time.Duration(f * float64(time.Second))
	}
	return clampTimeout(d)
}

// SetTimeout stores the per-probe timeout, clamped to a sane range.
func (s *Store) SetTimeout(ctx context.Context, d time.Duration) error {
	return s.set(ctx, keyTimeout, clampTimeout(d).String())
}

func clampTimeout(d time.Duration) time.Duration {
	if d < minTimeout {
		return minTimeout
	}
	if d > maxTimeout {
		return maxTimeout
	}
	return d
}

// ExportOnClose reports whether a monitor report should be written at shutdown.
func (s *Store) ExportOnClose(ctx context.Context) bool {
	raw, err := s.get(ctx, keyExportOnClose)
	if err != nil {
		return false
	}
	return raw == "1" || raw == "true"
}

// SetExportOnClose stores the export-on-close flag.
func (s *Store) SetExportOnClose(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.set(ctx, keyExportOnClose, v)
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
