package store

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/mikey/phish-quarantine/internal/core"
)

const selectColumns = `
	SELECT id, source_id, sender, recipient, subject, body,
	       ml_score, rule_score, combined_score, detection_reasons,
	       quarantine_date, status
	FROM quarantined_emails`

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.EmailRecord, error) {
	var record core.EmailRecord
	var reasons, quarantineDate, status string

	err := row.Scan(
		&record.ID, &record.SourceID, &record.Sender, &record.Recipient,
		&record.Subject, &record.Body,
		&record.MLScore, &record.RuleScore, &record.CombinedScore, &reasons,
		&quarantineDate, &status,
	)
	if err != nil {
		return nil, err
	}

	record.DetectionReasons = decodeReasons(reasons)
	record.Timestamp = parseTime(quarantineDate)
	record.Status = core.EmailStatus(status)
	return &record, nil
}

func scanActivity(rows *sql.Rows) ([]core.ActivitySummary, error) {
	summaries := make([]core.ActivitySummary, 0)
	for rows.Next() {
		var sender, subject, date, status string
		var score float64
		if err := rows.Scan(&sender, &subject, &score, &date, &status); err != nil {
			return nil, err
		}
		summaries = append(summaries, core.ActivitySummary{
			Sender:    sender,
			Subject:   truncateSubject(subject),
			RiskScore: toPercent(score),
			Date:      parseTime(date),
			Status:    core.EmailStatus(status),
			RiskLevel: core.RiskLevelForScore(score),
		})
	}
	return summaries, rows.Err()
}

func encodeReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "[]"
	}
	data, err := json.Marshal(reasons)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeReasons(encoded string) []string {
	reasons := make([]string, 0)
	if err := json.Unmarshal([]byte(encoded), &reasons); err != nil {
		return []string{}
	}
	return reasons
}

// formatTime stores timestamps as UTC RFC3339 strings, which compare
// correctly both lexicographically and after parsing
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toPercent converts a [0,1] score to the 0-100 scale rounded to one
// decimal place
func toPercent(score float64) float64 {
	return math.Round(score*1000) / 10
}

// truncateSubject shortens long subjects to 50 characters, counting runes
// so a multi-byte character is never split
func truncateSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return subject
}
