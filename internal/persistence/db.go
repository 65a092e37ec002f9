// Package persistence stores run results in SQLite and simulation
// snapshots on disk.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/deepsim"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/search"
)

// Run kinds.
const (
	KindRun    = "run"
	KindDeep   = "deep"
	KindSearch = "search"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for result storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		seed INTEGER NOT NULL,
		days INTEGER NOT NULL,
		runs INTEGER NOT NULL,
		partial INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		config_json TEXT NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_stats (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		active_players INTEGER NOT NULL,
		revenue REAL NOT NULL,
		stats_json TEXT NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS aggregates (
		run_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		day INTEGER NOT NULL,
		mean REAL NOT NULL,
		std REAL NOT NULL,
		cv REAL NOT NULL,
		PRIMARY KEY (run_id, metric, day)
	);

	CREATE TABLE IF NOT EXISTS candidates (
		search_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		category TEXT NOT NULL,
		overall REAL NOT NULL,
		growth REAL NOT NULL,
		retention REAL NOT NULL,
		organic REAL NOT NULL,
		params_json TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (search_id, position)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_candidates_overall ON candidates(search_id, overall);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRecord is one stored run, deep simulation or search.
type RunRecord struct {
	ID          string `db:"id" json:"id"`
	Kind        string `db:"kind" json:"kind"`
	Seed        int64  `db:"seed" json:"seed"` // uint64 bits; see SeedValue
	Days        int    `db:"days" json:"days"`
	Runs        int    `db:"runs" json:"runs"`
	Partial     bool   `db:"partial" json:"partial"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	ConfigJSON  string `db:"config_json" json:"-"`
	SummaryJSON string `db:"summary_json" json:"-"`
}

// SeedValue returns the seed as the engine sees it. SQLite integers are
// signed, so seeds are stored by bit pattern.
func (r RunRecord) SeedValue() uint64 {
	return uint64(r.Seed)
}

// Created parses the creation timestamp.
func (r RunRecord) Created() (time.Time, error) {
	return time.Parse(timeLayout, r.CreatedAt)
}

// Config decodes the stored configuration.
func (r RunRecord) Config() (*config.Config, error) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(r.ConfigJSON), &cfg); err != nil {
		return nil, fmt.Errorf("decode config of %s: %w", r.ID, err)
	}
	return &cfg, nil
}

func (db *DB) insertRun(tx *sqlx.Tx, rec RunRecord) error {
	_, err := tx.NamedExec(`INSERT INTO runs
		(id, kind, seed, days, runs, partial, created_at, config_json, summary_json)
		VALUES (:id, :kind, :seed, :days, :runs, :partial, :created_at, :config_json, :summary_json)`,
		rec)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	return nil
}

func newRecord(id, kind string, seed uint64, cfg *config.Config, summary any) (RunRecord, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode config: %w", err)
	}
	sumJSON, err := json.Marshal(summary)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode summary: %w", err)
	}
	return RunRecord{
		ID:          id,
		Kind:        kind,
		Seed:        int64(seed),
		CreatedAt:   time.Now().UTC().Format(timeLayout),
		ConfigJSON:  string(cfgJSON),
		SummaryJSON: string(sumJSON),
	}, nil
}

// SaveRun stores a single run with its full daily history.
func (db *DB) SaveRun(id string, cfg *config.Config, res *engine.Result, partial bool) error {
	rec, err := newRecord(id, KindRun, res.Seed, cfg, res.Summary)
	if err != nil {
		return err
	}
	rec.Days = res.Days
	rec.Runs = 1
	rec.Partial = partial

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := db.insertRun(tx, rec); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO daily_stats
		(run_id, day, active_players, revenue, stats_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range res.History {
		statsJSON, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode day %d: %w", d.Day, err)
		}
		if _, err := stmt.Exec(id, d.Day, d.ActivePlayers, d.Revenue, string(statsJSON)); err != nil {
			return fmt.Errorf("insert day %d: %w", d.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run saved", "id", id, "days", res.Days)
	return nil
}

// SaveDeep stores an aggregated deep simulation: one row per metric per
// day plus the summary statistics.
func (db *DB) SaveDeep(id string, cfg *config.Config, master uint64, agg *deepsim.AggregatedResult) error {
	rec, err := newRecord(id, KindDeep, master, cfg, agg.Summary)
	if err != nil {
		return err
	}
	rec.Days = agg.Days
	rec.Runs = agg.Runs
	rec.Partial = agg.Partial

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := db.insertRun(tx, rec); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO aggregates
		(run_id, metric, day, mean, std, cv)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range agg.Metrics {
		for i, p := range m.Days {
			if _, err := stmt.Exec(id, m.Name, i+1, p.Mean, p.Std, p.CV); err != nil {
				return fmt.Errorf("insert %s day %d: %w", m.Name, i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("deep simulation saved", "id", id, "runs", agg.Runs, "metrics", len(agg.Metrics))
	return nil
}

// SaveSearch stores a search with every candidate, ranked ones first in
// rank order, then the failed ones.
func (db *DB) SaveSearch(id string, base *config.Config, master uint64, res *search.Result) error {
	summary := map[string]any{
		"mode":         res.Mode,
		"seeds":        res.Seeds,
		"weights":      res.Weights,
		"correlations": res.Correlations,
	}
	rec, err := newRecord(id, KindSearch, master, base, summary)
	if err != nil {
		return err
	}
	rec.Runs = len(res.Seeds)
	rec.Partial = res.Partial

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := db.insertRun(tx, rec); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO candidates
		(search_id, position, label, category, overall, growth, retention, organic,
		 params_json, summary_json, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	all := append(append([]*search.Candidate{}, res.Ranked...), res.Failed...)
	for pos, c := range all {
		paramsJSON, err := json.Marshal(c.Params)
		if err != nil {
			return fmt.Errorf("encode params of %s: %w", c.Label, err)
		}
		sumJSON, err := json.Marshal(c.Summary)
		if err != nil {
			return fmt.Errorf("encode summary of %s: %w", c.Label, err)
		}
		_, err = stmt.Exec(id, pos+1, c.Label, c.Category,
			c.Scores.Overall, c.Scores.Growth, c.Scores.Retention, c.Scores.Organic,
			string(paramsJSON), string(sumJSON), c.Err,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("search saved", "id", id, "candidates", len(all))
	return nil
}

// GetRun loads one run record.
func (db *DB) GetRun(id string) (RunRecord, error) {
	var rec RunRecord
	err := db.conn.Get(&rec, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// History returns the stored daily statistics of a single run in day order.
func (db *DB) History(runID string) ([]engine.DailyStats, error) {
	var rows []string
	if err := db.conn.Select(&rows,
		"SELECT stats_json FROM daily_stats WHERE run_id = ? ORDER BY day",
		runID,
	); err != nil {
		return nil, err
	}
	out := make([]engine.DailyStats, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal([]byte(r), &out[i]); err != nil {
			return nil, fmt.Errorf("decode day %d: %w", i+1, err)
		}
	}
	return out, nil
}

// AggregatePoint is one stored per-day statistic of a deep simulation.
type AggregatePoint struct {
	Day  int     `db:"day" json:"day"`
	Mean float64 `db:"mean" json:"mean"`
	Std  float64 `db:"std" json:"std"`
	CV   float64 `db:"cv" json:"cv"`
}

// Aggregate returns one metric of a deep simulation in day order.
func (db *DB) Aggregate(runID, metric string) ([]AggregatePoint, error) {
	var pts []AggregatePoint
	err := db.conn.Select(&pts,
		"SELECT day, mean, std, cv FROM aggregates WHERE run_id = ? AND metric = ? ORDER BY day",
		runID, metric,
	)
	return pts, err
}

// CandidateRecord is one stored search candidate.
type CandidateRecord struct {
	Position    int     `db:"position" json:"position"`
	Label       string  `db:"label" json:"label"`
	Category    string  `db:"category" json:"category,omitempty"`
	Overall     float64 `db:"overall" json:"overall"`
	Growth      float64 `db:"growth" json:"growth"`
	Retention   float64 `db:"retention" json:"retention"`
	Organic     float64 `db:"organic" json:"organic"`
	ParamsJSON  string  `db:"params_json" json:"-"`
	SummaryJSON string  `db:"summary_json" json:"-"`
	Error       string  `db:"error" json:"error,omitempty"`
}

// Params decodes the candidate's parameter overrides.
func (c CandidateRecord) Params() (map[string]float64, error) {
	var p map[string]float64
	err := json.Unmarshal([]byte(c.ParamsJSON), &p)
	return p, err
}

// Candidates returns the candidates of a search in stored order.
func (db *DB) Candidates(searchID string) ([]CandidateRecord, error) {
	var out []CandidateRecord
	err := db.conn.Select(&out,
		`SELECT position, label, category, overall, growth, retention, organic,
		        params_json, summary_json, error
		 FROM candidates WHERE search_id = ? ORDER BY position`,
		searchID,
	)
	return out, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
