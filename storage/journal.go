package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// CallEntry is one journaled backend call. It carries no request payload.
type CallEntry struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Callback   string `json:"callback"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	StartedAt  string `json:"started_at"`
}

type CallFilter struct {
	From    string
	To      string
	Action  string
	Outcome string
	Limit   int
}

type ActionStats struct {
	Action        string  `json:"action"`
	Calls         int     `json:"calls"`
	Failures      int     `json:"failures"`
	Timeouts      int     `json:"timeouts"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	LastCall      string  `json:"last_call"`
}

func OpenJournalDB() (*sql.DB, error) {
	if _, err := ensureConfigDir(); err != nil {
		return nil, err
	}
	path, err := JournalPath()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := ensureJournalSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func ensureJournalSchema(db *sql.DB) error {
	createTable := `
CREATE TABLE IF NOT EXISTS calls (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  callback TEXT,
  outcome TEXT NOT NULL,
  duration_ms INTEGER,
  started_at TEXT NOT NULL
);`

	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create calls table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at);"); err != nil {
		return fmt.Errorf("create calls index: %w", err)
	}
	return nil
}

// AddCall stores entry, assigning an ID when it has none.
func AddCall(db *sql.DB, entry CallEntry) (CallEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
INSERT INTO calls (id, action, callback, outcome, duration_ms, started_at)
VALUES (?, ?, ?, ?, ?, ?);`

	_, err := db.Exec(
		query,
		entry.ID,
		entry.Action,
		entry.Callback,
		entry.Outcome,
		entry.DurationMS,
		entry.StartedAt,
	)
	if err != nil {
		return CallEntry{}, err
	}
	return entry, nil
}

func ListCalls(db *sql.DB, filter CallFilter) ([]CallEntry, error) {
	base := `
SELECT id, action, callback, outcome, duration_ms, started_at
FROM calls`

	where, args := filter.conditions()
	query := base + where + " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []CallEntry{}
	for rows.Next() {
		var entry CallEntry
		var callback sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&callback,
			&entry.Outcome,
			&duration,
			&entry.StartedAt,
		); err != nil {
			return nil, err
		}
		if callback.Valid {
			entry.Callback = callback.String
		}
		if duration.Valid {
			entry.DurationMS = duration.Int64
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func CallStats(db *sql.DB, filter CallFilter) ([]ActionStats, error) {
	where, args := filter.conditions()
	query := `
SELECT action,
  COUNT(*),
  SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END),
  SUM(CASE WHEN outcome = 'timeout' THEN 1 ELSE 0 END),
  AVG(duration_ms),
  MAX(started_at)
FROM calls` + where + `
GROUP BY action
ORDER BY action`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []ActionStats{}
	for rows.Next() {
		var s ActionStats
		var avg sql.NullFloat64
		if err := rows.Scan(&s.Action, &s.Calls, &s.Failures, &s.Timeouts, &avg, &s.LastCall); err != nil {
			return nil, err
		}
		if avg.Valid {
			s.AvgDurationMS = avg.Float64
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// PruneCalls deletes entries started before cutoff.
func PruneCalls(db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM calls WHERE started_at < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (f CallFilter) conditions() (string, []any) {
	conds := []string{}
	args := []any{}

	if f.From != "" {
		conds = append(conds, "started_at >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conds = append(conds, "started_at < ?")
		args = append(args, f.To)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, f.Outcome)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
