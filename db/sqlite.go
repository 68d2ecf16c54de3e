package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite decision audit store
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS decisions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        instance_idx INTEGER NOT NULL,
        probability REAL NOT NULL,
        label INTEGER NOT NULL,
        threshold REAL NOT NULL,
        created_at DATETIME NOT NULL,
        UNIQUE(request_id, instance_idx)
    );
    CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
    `

	_, err = database.Exec(query)
	return err
}

// DecisionRecord is one audited scoring outcome.
type DecisionRecord struct {
	RequestID   string    `json:"request_id"`
	InstanceIdx int       `json:"instance_idx"`
	Probability float64   `json:"probability"`
	Label       int       `json:"label"`
	Threshold   float64   `json:"threshold"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveDecisions writes one row per scored instance of a request. indices
// carries each instance's position in the original batch, which can be
// sparse when the annotate policy skipped invalid instances.
func SaveDecisions(requestID string, indices []int, probabilities []float64, labels []int, threshold float64) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if requestID == "" {
		return errors.New("request id required")
	}
	if len(probabilities) != len(labels) || len(probabilities) != len(indices) {
		return errors.New("indices/probabilities/labels length mismatch")
	}
	if len(probabilities) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT OR REPLACE INTO decisions (
            request_id, instance_idx, probability, label, threshold, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, prob := range probabilities {
		if _, err := stmt.Exec(requestID, indices[i], prob, labels[i], threshold, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryRecent returns the most recent audit rows, newest first.
func QueryRecent(limit int) ([]DecisionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT request_id, instance_idx, probability, label, threshold, created_at
        FROM decisions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]DecisionRecord, 0)
	for rows.Next() {
		var record DecisionRecord
		if err := rows.Scan(&record.RequestID, &record.InstanceIdx, &record.Probability,
			&record.Label, &record.Threshold, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
