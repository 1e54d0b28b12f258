// Package journal persists delivered alerts to SQLite so operators can
// audit what was sent. Candle data is never journaled; only the alert
// and its trade plan. The journal is optional and the whole package is
// bypassed when no path is configured.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-alertsv1/internal/model"
)

// Journal is a single-writer SQLite alert log.
type Journal struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Open initializes the journal database with WAL mode and schema.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	// Single writer; SQLite serializes anyway, this keeps the pool honest.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened database at %s", dbPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			feed_key   TEXT    NOT NULL,
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			pattern    TEXT    NOT NULL,
			direction  TEXT    NOT NULL,
			plan       TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_feed_key ON alerts (feed_key, created_at);
	`)
	return err
}

// Append records one delivered alert with its trade plan.
func (j *Journal) Append(feedKey string, alert model.Alert, plan *model.TradePlan) error {
	var planJSON []byte
	if plan != nil {
		var err error
		planJSON, err = json.Marshal(plan)
		if err != nil {
			return fmt.Errorf("journal marshal plan: %w", err)
		}
	}

	_, err := j.db.Exec(
		`INSERT INTO alerts (feed_key, symbol, timeframe, pattern, direction, plan, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		feedKey, alert.Symbol, alert.Timeframe, alert.Pattern, string(alert.Direction),
		string(planJSON), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Entry is one journaled alert.
type Entry struct {
	ID        int64
	FeedKey   string
	Symbol    string
	Timeframe string
	Pattern   string
	Direction string
	Plan      string
	CreatedAt time.Time
}

// Recent returns up to limit newest alerts for a feedKey.
func (j *Journal) Recent(feedKey string, limit int) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT id, feed_key, symbol, timeframe, pattern, direction, plan, created_at
		 FROM alerts WHERE feed_key = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		feedKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.FeedKey, &e.Symbol, &e.Timeframe, &e.Pattern, &e.Direction, &e.Plan, &ts); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes alerts older than maxAge and returns how many went.
func (j *Journal) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := j.db.Exec(`DELETE FROM alerts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("[journal] pruned %d alerts older than %v", n, maxAge)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
