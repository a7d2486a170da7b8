package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the QuarantineRepository
// interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the quarantine database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// A single connection serializes all writes, so a release or delete
	// never interleaves with a half-written row
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quarantined_emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			sender TEXT,
			recipient TEXT,
			subject TEXT,
			body TEXT,
			ml_score REAL,
			rule_score REAL,
			combined_score REAL,
			detection_reasons TEXT,
			quarantine_date TEXT,
			status TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_status ON quarantined_emails(status);
		CREATE INDEX IF NOT EXISTS idx_quarantine_date ON quarantined_emails(quarantine_date)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new record in quarantined state and returns its id
func (s *SQLiteStore) Create(ctx context.Context, record *core.EmailRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO quarantined_emails
			(source_id, sender, recipient, subject, body,
			 ml_score, rule_score, combined_score, detection_reasons,
			 quarantine_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.SourceID, record.Sender, record.Recipient, record.Subject, record.Body,
		record.MLScore, record.RuleScore, record.CombinedScore, encodeReasons(record.DetectionReasons),
		formatTime(record.Timestamp), string(core.StatusQuarantined),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert email: %v", core.ErrStorageFailure, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read insert id: %v", core.ErrStorageFailure, err)
	}
	return id, nil
}

// Release transitions a record from quarantined to released. It reports
// whether a row was affected; a missing or already-released id is false,
// never an error.
func (s *SQLiteStore) Release(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE quarantined_emails SET status = ? WHERE id = ? AND status = ?
	`, string(core.StatusReleased), id, string(core.StatusQuarantined))
	if err != nil {
		return false, fmt.Errorf("%w: failed to release email: %v", core.ErrStorageFailure, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to read rows affected: %v", core.ErrStorageFailure, err)
	}
	return affected > 0, nil
}

// Delete permanently removes a record from any state
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM quarantined_emails WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete email: %v", core.ErrStorageFailure, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to read rows affected: %v", core.ErrStorageFailure, err)
	}
	return affected > 0, nil
}

// GetByID returns a record, or nil when it does not exist
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*core.EmailRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query email: %v", core.ErrStorageFailure, err)
	}
	return record, nil
}

// ListByStatus returns up to limit records newest first, optionally
// filtered by status
func (s *SQLiteStore) ListByStatus(ctx context.Context, limit int, status core.EmailStatus) ([]core.EmailRecord, error) {
	query := selectColumns
	args := make([]any, 0, 2)
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY quarantine_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list emails: %v", core.ErrStorageFailure, err)
	}
	defer rows.Close()

	records := make([]core.EmailRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan email row: %v", core.ErrStorageFailure, err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate email rows: %v", core.ErrStorageFailure, err)
	}

	return records, nil
}

// Stats computes the aggregate dashboard counters inside one transaction
// so the counts reflect a consistent snapshot.
//
// The total counts only rows still quarantined while the average spans all
// rows; the medium band is inclusive of both bounds.
func (s *SQLiteStore) Stats(ctx context.Context) (*core.QuarantineStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin stats transaction: %v", core.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	stats := &core.QuarantineStats{}
	cutoff := formatTime(time.Now().Add(-24 * time.Hour))

	queries := []struct {
		query string
		args  []any
		dest  *int
	}{
		{`SELECT COUNT(*) FROM quarantined_emails WHERE status = ?`,
			[]any{string(core.StatusQuarantined)}, &stats.TotalQuarantined},
		{`SELECT COUNT(*) FROM quarantined_emails WHERE combined_score > 0.8`,
			nil, &stats.HighRiskCount},
		{`SELECT COUNT(*) FROM quarantined_emails WHERE combined_score BETWEEN 0.5 AND 0.8`,
			nil, &stats.MediumRiskCount},
		{`SELECT COUNT(*) FROM quarantined_emails WHERE quarantine_date >= ?`,
			[]any{cutoff}, &stats.TodayCount},
	}
	for _, q := range queries {
		if err := tx.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("%w: failed to compute stats: %v", core.ErrStorageFailure, err)
		}
	}

	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx,
		`SELECT AVG(combined_score) FROM quarantined_emails`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("%w: failed to compute average score: %v", core.ErrStorageFailure, err)
	}
	stats.AverageRiskScore = toPercent(avg.Float64)

	return stats, nil
}

// RecentActivity returns condensed summaries of the newest records
func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]core.ActivitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, subject, combined_score, quarantine_date, status
		FROM quarantined_emails
		ORDER BY quarantine_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recent activity: %v", core.ErrStorageFailure, err)
	}
	defer rows.Close()

	return scanActivity(rows)
}
