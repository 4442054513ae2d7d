package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/fleetpulse/internal/store"
)

// Store provides database access for device records.
type Store struct {
	db *store.SQLiteStore
}

// NewStore creates a device Store and applies its migrations.
func NewStore(ctx context.Context, db *store.SQLiteStore) (*Store, error) {
	if err := db.Migrate(ctx, "device", migrations()); err != nil {
		return nil, fmt.Errorf("device migrations: %w", err)
	}
	return &Store{db: db}, nil
}

const deviceColumns = `id, name, host, method, port, team, enabled, monitoring,
	offline_since, last_offline_time, created_at, updated_at`

// Insert adds a new device. An empty ID is assigned a UUID.
func (s *Store) Insert(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Host, string(d.Method), d.Port, d.Team,
		boolToInt(d.Enabled), boolToInt(d.Monitoring),
		nullTime(d.OfflineSince), nullTime(d.LastOfflineTime),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// Get returns a device by ID. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*Device, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// Update rewrites the caller-editable fields of a device.
func (s *Store) Update(ctx context.Context, d *Device) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.DB().ExecContext(ctx, `
		UPDATE devices
		SET name = ?, host = ?, method = ?, port = ?, team = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.Host, string(d.Method), d.Port, d.Team, boolToInt(d.Enabled),
		d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a device. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.DB().ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// List returns all enabled devices, optionally filtered by team.
// Devices with an empty team label match every filter (legacy behavior).
func (s *Store) List(ctx context.Context, team string) ([]Device, error) {
	var rows *sql.Rows
	var err error
	if team == "" {
		rows, err = s.db.DB().QueryContext(ctx, `
			SELECT `+deviceColumns+` FROM devices WHERE enabled = 1 ORDER BY created_at`)
	} else {
		rows, err = s.db.DB().QueryContext(ctx, `
			SELECT `+deviceColumns+` FROM devices
			WHERE enabled = 1 AND (team = ? OR team = '') ORDER BY created_at`, team)
	}
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()
	return collectDevices(rows)
}

// ListMonitorable returns devices eligible for probing this cycle
// (enabled and actively monitored).
func (s *Store) ListMonitorable(ctx context.Context) ([]Device, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE enabled = 1 AND monitoring = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list monitorable devices: %w", err)
	}
	defer rows.Close()
	return collectDevices(rows)
}

// CountMonitored returns the number of enabled devices under active monitoring.
func (s *Store) CountMonitored(ctx context.Context) (int, error) {
	var n int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE enabled = 1 AND monitoring = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count monitored devices: %w", err)
	}
	return n, nil
}

// SetMonitoring flips the monitoring flag for a device.
func (s *Store) SetMonitoring(ctx context.Context, id string, on bool) error {
	res, err := s.db.DB().ExecContext(ctx, `
		UPDATE devices SET monitoring = ?, updated_at = ? WHERE id = ?`,
		boolToInt(on), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set monitoring: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetOfflineFields returns the offline bookkeeping fields for a device.
// An unknown ID yields nil, nil, nil rather than an error.
func (s *Store) GetOfflineFields(ctx context.Context, id string) (offlineSince, lastOffline *time.Time, err error) {
	var since, last sql.NullTime
	err = s.db.DB().QueryRowContext(ctx,
		`SELECT offline_since, last_offline_time FROM devices WHERE id = ?`, id,
	).Scan(&since, &last)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get offline fields: %w", err)
	}
	return timePtr(since), timePtr(last), nil
}

// SetOfflineFields overwrites both offline bookkeeping fields in one statement.
func (s *Store) SetOfflineFields(ctx context.Context, id string, offlineSince, lastOffline *time.Time) error {
	_, err := s.db.DB().ExecContext(ctx, `
		UPDATE devices SET offline_since = ?, last_offline_time = ? WHERE id = ?`,
		nullTime(offlineSince), nullTime(lastOffline), id,
	)
	if err != nil {
		return fmt.Errorf("set offline fields: %w", err)
	}
	return nil
}

// MarkOffline records the start of an offline episode at ts. It is a no-op
// when the device is already offline or unknown, so the original onset time
// is never overwritten. Returns whether a new episode began.
func (s *Store) MarkOffline(ctx context.Context, id string, ts time.Time) (bool, error) {
	res, err := s.db.DB().ExecContext(ctx, `
		UPDATE devices SET offline_since = ?, last_offline_time = ?
		WHERE id = ? AND offline_since IS NULL`,
		ts.UTC(), ts.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark offline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark offline: %w", err)
	}
	return n > 0, nil
}

// MarkOnline clears the current offline episode, leaving last_offline_time
// in place as a historical marker. Returns whether the device recovered
// (was previously offline).
func (s *Store) MarkOnline(ctx context.Context, id string) (bool, error) {
	res, err := s.db.DB().ExecContext(ctx, `
		UPDATE devices SET offline_since = NULL
		WHERE id = ? AND offline_since IS NOT NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark online: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark online: %w", err)
	}
	return n > 0, nil
}

// -- scan helpers --

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var method string
	var enabled, monitoring int
	var since, last sql.NullTime
	err := row.Scan(
		&d.ID, &d.Name, &d.Host, &method, &d.Port, &d.Team,
		&enabled, &monitoring, &since, &last, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Method = ParseMethod(method)
	d.Enabled = enabled != 0
	d.Monitoring = monitoring != 0
	d.OfflineSince = timePtr(since)
	d.LastOfflineTime = timePtr(last)
	return &d, nil
}

func collectDevices(rows *sql.Rows) ([]Device, error) {
	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time.UTC()
	return &tt
}
