// Package journal persists closed positions to SQLite as an audit trade
// ledger, adapted from the teacher's internal/execution/journal.go.
package journal

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sniper-engine/internal/model"
)

// Journal is a mutex-guarded, open-on-demand SQLite writer for closed
// positions.
type Journal struct {
	mu  sync.Mutex
	db  *sql.DB
	log *slog.Logger
}

// New opens (or creates) the trade journal database at dbPath.
func New(dbPath string, log *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id           TEXT NOT NULL,
		mint                  TEXT NOT NULL,
		size                  REAL NOT NULL,
		entry_price           REAL NOT NULL,
		exit_price            REAL NOT NULL,
		realized_pnl_native   REAL NOT NULL,
		realized_pnl_fees     REAL NOT NULL,
		close_reason          TEXT,
		open_time             DATETIME NOT NULL,
		close_time            DATETIME NOT NULL,
		created_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_positions_mint ON positions(mint);
	CREATE INDEX IF NOT EXISTS idx_positions_close_time ON positions(close_time);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	if log != nil {
		log.Info("journal: opened trade journal", "path", dbPath)
	}
	return &Journal{db: db, log: log}, nil
}

// RecordClose persists a closed position.
func (j *Journal) RecordClose(pos model.Position) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO positions (position_id, mint, size, entry_price, exit_price, realized_pnl_native, realized_pnl_fees, close_reason, open_time, close_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID,
		pos.TokenMint,
		pos.Size,
		pos.EntryPrice,
		pos.CurrentPrice,
		pos.RealizedPnL.Native,
		pos.RealizedPnLWithFees.Native,
		pos.CloseReason,
		pos.OpenTime.Format(time.RFC3339Nano),
		pos.CloseTime.Format(time.RFC3339Nano),
	)
	return err
}

// Record is one row read back from the journal.
type Record struct {
	ID                int64   `json:"id"`
	PositionID        string  `json:"position_id"`
	Mint              string  `json:"mint"`
	Size              float64 `json:"size"`
	EntryPrice        float64 `json:"entry_price"`
	ExitPrice         float64 `json:"exit_price"`
	RealizedPnLNative float64 `json:"realized_pnl_native"`
	RealizedPnLFees   float64 `json:"realized_pnl_fees"`
	CloseReason       string  `json:"close_reason"`
	OpenTime          string  `json:"open_time"`
	CloseTime         string  `json:"close_time"`
}

// Recent returns the last limit closed positions, newest first.
func (j *Journal) Recent(limit int) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, position_id, mint, size, entry_price, exit_price, realized_pnl_native, realized_pnl_fees, close_reason, open_time, close_time
		 FROM positions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.PositionID, &r.Mint, &r.Size, &r.EntryPrice, &r.ExitPrice,
			&r.RealizedPnLNative, &r.RealizedPnLFees, &r.CloseReason, &r.OpenTime, &r.CloseTime); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
