// Package archive persists finished trials to SQLite so search history
// survives restarts and can be inspected offline.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jingdong00/FLAML/internal/search"
)

const schema = `
CREATE TABLE IF NOT EXISTS trials (
	job_id      TEXT    NOT NULL,
	trial_index INTEGER NOT NULL,
	config      TEXT    NOT NULL,
	metrics     TEXT,
	status      TEXT    NOT NULL,
	error       TEXT,
	elapsed_ms  INTEGER NOT NULL,
	recorded_ms INTEGER NOT NULL,
	PRIMARY KEY (job_id, trial_index)
);
CREATE INDEX IF NOT EXISTS idx_trials_job_status ON trials (job_id, status);
`

// StoredTrial is one archived trial row.
type StoredTrial struct {
	JobID      string
	Index      int
	Config     map[string]any
	Metrics    map[string]float64
	Status     string
	Error      string
	ElapsedMs  int64
	RecordedMs int64
}

// Archive is a SQLite-backed trial store. Safe for concurrent use.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at the given path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordTrial appends one finished trial for a job.
func (a *Archive) RecordTrial(jobID string, t *search.Trial) error {
	configJSON, err := json.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	var metricsJSON []byte
	if t.Metrics != nil {
		metricsJSON, err = json.Marshal(t.Metrics)
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}

	var errText string
	if t.Err != nil {
		errText = t.Err.Error()
	}

	_, err = a.db.Exec(
		`INSERT INTO trials (job_id, trial_index, config, metrics, status, error, elapsed_ms, recorded_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, t.Index, string(configJSON), nullableString(metricsJSON),
		string(t.Status), errText, t.Elapsed.Milliseconds(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record trial: %w", err)
	}
	return nil
}

// ListTrials returns every archived trial of a job in index order.
func (a *Archive) ListTrials(jobID string) ([]StoredTrial, error) {
	rows, err := a.db.Query(
		`SELECT job_id, trial_index, config, metrics, status, error, elapsed_ms, recorded_ms
		 FROM trials WHERE job_id = ? ORDER BY trial_index`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var out []StoredTrial
	for rows.Next() {
		var (
			st          StoredTrial
			configJSON  string
			metricsJSON sql.NullString
			errText     sql.NullString
		)
		if err := rows.Scan(&st.JobID, &st.Index, &configJSON, &metricsJSON,
			&st.Status, &errText, &st.ElapsedMs, &st.RecordedMs); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}

		if err := json.Unmarshal([]byte(configJSON), &st.Config); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		if metricsJSON.Valid && metricsJSON.String != "" {
			if err := json.Unmarshal([]byte(metricsJSON.String), &st.Metrics); err != nil {
				return nil, fmt.Errorf("failed to decode metrics: %w", err)
			}
		}
		st.Error = errText.String

		out = append(out, st)
	}
	return out, rows.Err()
}

// CountByStatus tallies a job's archived trials per status.
func (a *Archive) CountByStatus(jobID string) (map[string]int, error) {
	rows, err := a.db.Query(
		`SELECT status, COUNT(*) FROM trials WHERE job_id = ? GROUP BY status`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count trials: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Jobs returns the distinct job IDs present in the archive.
func (a *Archive) Jobs() ([]string, error) {
	rows, err := a.db.Query(`SELECT DISTINCT job_id FROM trials ORDER BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
