// Package ledger persists confirmed violations. The store is append-only:
// nothing ever updates or deletes a recorded violation.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moderbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteLedger implements domain.Ledger using SQLite.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteLedger, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway, and one connection
	// gives the ledger strict append ordering.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLedger{db: db, logger: logger}

	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS violations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL,
		first_name  TEXT,
		last_name   TEXT,
		is_bot      INTEGER NOT NULL DEFAULT 0,
		date        DATETIME NOT NULL,
		text        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_violations_user ON violations(user_id);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Append stores one confirmed violation. It is the sole mutator.
func (l *SQLiteLedger) Append(ctx context.Context, rec domain.ViolationRecord) error {
	if rec.Date.IsZero() {
		rec.Date = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO violations (user_id, first_name, last_name, is_bot, date, text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.FirstName, rec.LastName, rec.IsBot, rec.Date, rec.Text,
	)
	return err
}

// CountFor returns the user's total violation count across all chats.
func (l *SQLiteLedger) CountFor(ctx context.Context, userID int64) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM violations WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListRecent returns the newest violations, for the history command.
func (l *SQLiteLedger) ListRecent(ctx context.Context, limit int) ([]domain.ViolationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, first_name, last_name, is_bot, date, text
		 FROM violations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.ViolationRecord
	for rows.Next() {
		var r domain.ViolationRecord
		var lastName sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.FirstName, &lastName, &r.IsBot, &r.Date, &r.Text); err != nil {
			return nil, err
		}
		r.LastName = lastName.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
