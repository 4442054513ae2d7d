package device

import (
	"database/sql"

	"github.com/HerbHall/fleetpulse/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create devices table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS devices (
						id                TEXT PRIMARY KEY,
						name              TEXT NOT NULL DEFAULT '',
						host              TEXT NOT NULL,
						method            TEXT NOT NULL DEFAULT 'ping',
						port              INTEGER NOT NULL DEFAULT 0,
						team              TEXT NOT NULL DEFAULT '',
						enabled           INTEGER NOT NULL DEFAULT 1,
						monitoring        INTEGER NOT NULL DEFAULT 1,
						offline_since     DATETIME,
						last_offline_time DATETIME,
						created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_devices_monitorable ON devices(enabled, monitoring)`,
					`CREATE INDEX IF NOT EXISTS idx_devices_team ON devices(team)`,
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
