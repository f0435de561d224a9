package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
)

// Fixed-width UTC layout so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Journal interface {
	Record(ctx context.Context, event *Event) error
	Recent(ctx context.Context, limit int) ([]*Event, error)
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

type SQLiteJournal struct {
	log    *slog.Logger
	db     *sql.DB
	bootID string
}

func NewSQLiteJournal(log *slog.Logger, dbPath, bootID string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &SQLiteJournal{
		log:    log,
		db:     db,
		bootID: bootID,
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			boot_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			code INTEGER NOT NULL DEFAULT 0,
			detail TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
	`
	_, err := j.db.Exec(query)
	return err
}

func (j *SQLiteJournal) Record(ctx context.Context, event *Event) error {
	if event.BootID == "" {
		event.BootID = j.bootID
	}

	query := `
		INSERT INTO events (id, boot_id, kind, code, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		event.ID,
		event.BootID,
		string(event.Kind),
		event.Code,
		event.Detail,
		event.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	j.log.Debug("event journaled",
		slog.String("id", event.ID),
		slog.String("kind", string(event.Kind)),
	)
	return nil
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT id, boot_id, kind, code, detail, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			id, bootID, kind, createdAt string
			detail                      sql.NullString
			code                        int
		)

		if err := rows.Scan(&id, &bootID, &kind, &code, &detail, &createdAt); err != nil {
			j.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		ts, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			j.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}

		events = append(events, &Event{
			ID:        id,
			BootID:    bootID,
			Kind:      Kind(kind),
			Code:      code,
			Detail:    detail.String,
			Timestamp: ts,
		})
	}

	return events, rows.Err()
}

func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := j.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old events: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		j.log.Info("cleaned up old journal entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
