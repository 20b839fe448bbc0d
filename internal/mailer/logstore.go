// Package mailer consumes movie notifications and delivers them by email,
// keeping a log of every attempt so failures can be retried.
package mailer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

var ErrLogNotFound = errors.New("mailer: email log not found")

const schema = `
CREATE TABLE IF NOT EXISTS email_logs (
	id                TEXT PRIMARY KEY,
	recipient         TEXT NOT NULL,
	subject           TEXT NOT NULL,
	content           TEXT NOT NULL,
	status            TEXT NOT NULL,
	error_message     TEXT NOT NULL DEFAULT '',
	attempt_count     INTEGER NOT NULL DEFAULT 0,
	last_attempt_time TIMESTAMP,
	created_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_email_logs_status ON email_logs (status);
`

// LogStore keeps email logs in SQLite.
type LogStore struct {
	db *sql.DB
}

// OpenLogStore opens (or creates) the SQLite database at path. ":memory:" is allowed.
func OpenLogStore(path string) (*LogStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate email log: %w", err)
	}
	return &LogStore{db: db}, nil
}

func (s *LogStore) Close() error {
	return s.db.Close()
}

// Insert stores a new PENDING entry for msg.
func (s *LogStore) Insert(ctx context.Context, msg domain.EmailMessage) (domain.EmailLog, error) {
	entry := domain.EmailLog{
		ID:        uuid.NewString(),
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Content:   msg.Body,
		Status:    domain.EmailPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_logs (id, recipient, subject, content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Recipient, entry.Subject, entry.Content, entry.Status, entry.CreatedAt)
	if err != nil {
		return domain.EmailLog{}, fmt.Errorf("insert email log: %w", err)
	}
	return entry, nil
}

// RecordAttempt bumps the attempt counter and stores the outcome. A nil sendErr marks the entry SENT.
func (s *LogStore) RecordAttempt(ctx context.Context, id string, at time.Time, sendErr error) error {
	status, msg := domain.EmailSent, ""
	if sendErr != nil {
		status, msg = domain.EmailFailed, sendErr.Error()
	}
	return s.exec(ctx, `
		UPDATE email_logs
		SET status = ?, error_message = ?, attempt_count = attempt_count + 1, last_attempt_time = ?
		WHERE id = ?`, status, msg, at.UTC(), id)
}

// Cancel stops further retries of an entry.
func (s *LogStore) Cancel(ctx context.Context, id, reason string) error {
	return s.exec(ctx, `UPDATE email_logs SET status = ?, error_message = ? WHERE id = ?`,
		domain.EmailCancelled, reason, id)
}

func (s *LogStore) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update email log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update email log: %w", err)
	}
	if n == 0 {
		return ErrLogNotFound
	}
	return nil
}

// Get loads one entry.
func (s *LogStore) Get(ctx context.Context, id string) (domain.EmailLog, error) {
	row := s.db.QueryRowContext(ctx, selectLogs+` WHERE id = ?`, id)
	entry, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EmailLog{}, ErrLogNotFound
	}
	return entry, err
}

// ByStatus lists entries in status, oldest first.
func (s *LogStore) ByStatus(ctx context.Context, status domain.EmailStatus) ([]domain.EmailLog, error) {
	rows, err := s.db.QueryContext(ctx, selectLogs+` WHERE status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

const selectLogs = `
	SELECT id, recipient, subject, content, status, error_message, attempt_count, last_attempt_time, created_at
	FROM email_logs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLog(row scanner) (domain.EmailLog, error) {
	var (
		entry  domain.EmailLog
		status string
		last   sql.NullTime
	)
	if err := row.Scan(&entry.ID, &entry.Recipient, &entry.Subject, &entry.Content, &status,
		&entry.ErrorMessage, &entry.AttemptCount, &last, &entry.CreatedAt); err != nil {
		return domain.EmailLog{}, err
	}
	entry.Status = domain.EmailStatus(status)
	if last.Valid {
		t := last.Time
		entry.LastAttemptTime = &t
	}
	return entry, nil
}
