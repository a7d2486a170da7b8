package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the QuarantineRepository
// interface. Row shapes and semantics match the SQLite store; timestamps
// are stored as UTC RFC3339 strings in both backends.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to the quarantine database described by dsn
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quarantined_emails (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			source_id VARCHAR(255) NOT NULL,
			sender TEXT,
			recipient TEXT,
			subject TEXT,
			body MEDIUMTEXT,
			ml_score DOUBLE,
			rule_score DOUBLE,
			combined_score DOUBLE,
			detection_reasons TEXT,
			quarantine_date VARCHAR(35),
			status VARCHAR(20),
			INDEX idx_status (status),
			INDEX idx_quarantine_date (quarantine_date)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Create inserts a new record in quarantined state and returns its id
func (s *MySQLStore) Create(ctx context.Context, record *core.EmailRecord) (int64, error) {
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

// Release transitions a record from quarantined to released
func (s *MySQLStore) Release(ctx context.Context, id int64) (bool, error) {
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
func (s *MySQLStore) Delete(ctx context.Context, id int64) (bool, error) {
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
func (s *MySQLStore) GetByID(ctx context.Context, id int64) (*core.EmailRecord, error) {
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
func (s *MySQLStore) ListByStatus(ctx context.Context, limit int, status core.EmailStatus) ([]core.EmailRecord, error) {
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

// Stats computes the aggregate dashboard counters inside one repeatable
// read transaction
func (s *MySQLStore) Stats(ctx context.Context) (*core.QuarantineStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
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
func (s *MySQLStore) RecentActivity(ctx context.Context, limit int) ([]core.ActivitySummary, error) {
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
